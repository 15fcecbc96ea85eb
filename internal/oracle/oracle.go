// Package oracle defines the external decision-making collaborators the
// pipeline consults: similarity comparison for deduplication, weekly plan
// generation, and content safety evaluation. Each has an LLM-backed
// implementation with its own structured-response adapter.
package oracle

import (
	"context"
	"time"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
)

// SimilarityResult is the similarity oracle's judgement on whether an
// ingested event duplicates one of the candidate seeds.
type SimilarityResult struct {
	IsDuplicate bool    `json:"is_duplicate"`
	MatchID     string  `json:"match_id,omitempty"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

// SimilarityOracle compares an ingested event against recent canonical
// seeds.
type SimilarityOracle interface {
	Compare(ctx context.Context, event models.IngestedEvent, candidates []models.CanonicalSeed) (*SimilarityResult, error)
}

// PlanningContext is the input for one plan generation attempt.
type PlanningContext struct {
	Seeds          []models.CanonicalSeed
	InsightSummary string
	Guardrails     models.GuardrailPolicy
	WeekStartDate  time.Time
}

// PlanningOracle produces a candidate weekly allocation plan. Each call is
// a fresh generation; rejected candidates are discarded, not patched.
type PlanningOracle interface {
	Generate(ctx context.Context, pc PlanningContext) (*models.Plan, error)
}

// SafetyVerdict is the safety oracle's raw evaluation of a post. The
// approval decision itself is made deterministically by the caller.
// HasNoMisinformation is nil when the misinformation check does not apply
// (posts not grounded on a news event).
type SafetyVerdict struct {
	HasNoOffensiveContent bool     `json:"has_no_offensive_content"`
	HasNoMisinformation   *bool    `json:"has_no_misinformation,omitempty"`
	Reasoning             string   `json:"reasoning"`
	IssuesFound           []string `json:"issues_found"`
}

// SafetyOracle evaluates a post's text and media for offensive content and,
// where applicable, misinformation.
type SafetyOracle interface {
	Evaluate(ctx context.Context, post models.CompletedPost, media []models.MediaAsset) (*SafetyVerdict, error)
}
