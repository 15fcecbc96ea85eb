package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/llm"
)

const similaritySystemPrompt = `You compare a newly ingested event against a list of existing content seeds and decide whether the event describes the same underlying story as one of them. Consider names, locations, time windows and descriptions. Respond with ONLY a JSON object:
{"is_duplicate": bool, "match_id": "<seed id or empty>", "confidence": 0.0-1.0, "reasoning": "<one or two sentences>"}`

// LLMSimilarityOracle asks a language model whether an event duplicates an
// existing seed.
type LLMSimilarityOracle struct {
	provider llm.Provider
}

// NewSimilarityOracle creates an LLM-backed similarity oracle.
func NewSimilarityOracle(provider llm.Provider) *LLMSimilarityOracle {
	return &LLMSimilarityOracle{provider: provider}
}

// Compare submits the event and candidate seeds and decodes the model's
// duplicate judgement.
func (o *LLMSimilarityOracle) Compare(ctx context.Context, event models.IngestedEvent, candidates []models.CanonicalSeed) (*SimilarityResult, error) {
	raw, err := o.provider.Complete(ctx, llm.Request{
		System: similaritySystemPrompt,
		Prompt: buildSimilarityPrompt(event, candidates),
	})
	if err != nil {
		return nil, fmt.Errorf("similarity oracle: %w", err)
	}

	var result SimilarityResult
	if err := extractJSON("similarity", raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func buildSimilarityPrompt(event models.IngestedEvent, candidates []models.CanonicalSeed) string {
	var b strings.Builder

	b.WriteString("New event:\n")
	fmt.Fprintf(&b, "  name: %s\n", event.Name)
	if event.Location != "" {
		fmt.Fprintf(&b, "  location: %s\n", event.Location)
	}
	writeWindow(&b, event.WindowStart, event.WindowEnd)
	fmt.Fprintf(&b, "  description: %s\n", event.Description)

	b.WriteString("\nExisting seeds:\n")
	for _, seed := range candidates {
		fmt.Fprintf(&b, "- id: %s\n  kind: %s\n  title: %s\n", seed.ID, seed.Kind, seed.Title)
		if seed.Location != "" {
			fmt.Fprintf(&b, "  location: %s\n", seed.Location)
		}
		writeWindow(&b, seed.WindowStart, seed.WindowEnd)
		fmt.Fprintf(&b, "  description: %s\n", seed.Description)
	}

	return b.String()
}

func writeWindow(b *strings.Builder, start, end *time.Time) {
	if start != nil && end != nil {
		fmt.Fprintf(b, "  window: %s to %s\n", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
}
