package oracle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/llm"
)

type fakeProvider struct {
	response string
	err      error
	lastReq  llm.Request
}

func (f *fakeProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	f.lastReq = req
	return f.response, f.err
}

func TestExtractJSON(t *testing.T) {
	type payload struct {
		Value string `json:"value"`
	}

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"bare object", `{"value": "ok"}`, "ok", false},
		{"json fence", "```json\n{\"value\": \"ok\"}\n```", "ok", false},
		{"plain fence", "```\n{\"value\": \"ok\"}\n```", "ok", false},
		{"surrounding prose", "Here is my answer:\n{\"value\": \"ok\"}\nLet me know.", "ok", false},
		{"no object", "I cannot answer that.", "", true},
		{"invalid json", "{value: ok}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out payload
			err := extractJSON("test", tt.raw, &out)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				var malformed *MalformedResponseError
				if !errors.As(err, &malformed) {
					t.Errorf("expected MalformedResponseError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractJSON: %v", err)
			}
			if out.Value != tt.want {
				t.Errorf("expected %q, got %q", tt.want, out.Value)
			}
		})
	}
}

func TestSimilarityOracleCompare(t *testing.T) {
	provider := &fakeProvider{response: "```json\n" +
		`{"is_duplicate": true, "match_id": "seed-1", "confidence": 0.92, "reasoning": "same event"}` +
		"\n```"}
	oracle := NewSimilarityOracle(provider)

	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	event := models.IngestedEvent{
		Name:        "SEPTA fare hike",
		Location:    "Philadelphia",
		WindowStart: &start,
		WindowEnd:   &end,
		Description: "Fare increase announced for January 15",
	}
	seeds := []models.CanonicalSeed{{
		ID:    "seed-1",
		Kind:  models.SeedKindNewsEvent,
		Title: "SEPTA Fare Increase",
	}}

	result, err := oracle.Compare(context.Background(), event, seeds)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !result.IsDuplicate || result.MatchID != "seed-1" {
		t.Errorf("unexpected result: %+v", result)
	}
	if !strings.Contains(provider.lastReq.Prompt, "SEPTA fare hike") {
		t.Error("prompt missing event name")
	}
	if !strings.Contains(provider.lastReq.Prompt, "seed-1") {
		t.Error("prompt missing candidate seed id")
	}
}

func TestSimilarityOracleMalformed(t *testing.T) {
	provider := &fakeProvider{response: "the event looks new to me"}
	oracle := NewSimilarityOracle(provider)

	_, err := oracle.Compare(context.Background(), models.IngestedEvent{Name: "x"}, nil)
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
	if malformed.Oracle != "similarity" {
		t.Errorf("expected similarity oracle name, got %q", malformed.Oracle)
	}
}

func TestPlanningOracleGenerate(t *testing.T) {
	provider := &fakeProvider{response: `{
		"allocations": [
			{"seed_id": "seed-1", "seed_kind": "trend", "ig_image_posts": 3, "ig_reel_posts": 2, "fb_feed_posts": 3, "fb_video_posts": 1, "image_budget": 4, "video_budget": 2}
		],
		"reasoning": "trend is performing well"
	}`}
	oracle := NewPlanningOracle(provider)

	week := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	plan, err := oracle.Generate(context.Background(), PlanningContext{
		Seeds:         []models.CanonicalSeed{{ID: "seed-1", Kind: models.SeedKindTrend, Title: "t"}},
		Guardrails:    models.GuardrailPolicy{MinPosts: 5, MaxPosts: 20},
		WeekStartDate: week,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(plan.Allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(plan.Allocations))
	}
	if plan.Allocations[0].TotalPosts() != 9 {
		t.Errorf("expected 9 total posts, got %d", plan.Allocations[0].TotalPosts())
	}
	if !plan.WeekStartDate.Equal(week) {
		t.Errorf("week start not carried through: %v", plan.WeekStartDate)
	}
	if !strings.Contains(provider.lastReq.Prompt, "total posts: 5-20") {
		t.Error("prompt missing guardrail range")
	}
}

func TestSafetyOracleEvaluate(t *testing.T) {
	provider := &fakeProvider{response: `{
		"has_no_offensive_content": true,
		"has_no_misinformation": null,
		"reasoning": "harmless promotional copy",
		"issues_found": []
	}`}
	oracle := NewSafetyOracle(provider)

	verdict, err := oracle.Evaluate(context.Background(), models.CompletedPost{
		Platform: "instagram",
		PostType: "image",
		Body:     "Join us this weekend!",
	}, []models.MediaAsset{
		{ID: "m1", URL: "https://cdn.example.com/a.jpg", MimeType: "image/jpeg"},
		{ID: "m2", URL: "https://cdn.example.com/b.mp4", MimeType: "video/mp4"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !verdict.HasNoOffensiveContent {
		t.Error("expected no offensive content")
	}
	if verdict.HasNoMisinformation != nil {
		t.Errorf("expected nil misinformation flag, got %v", *verdict.HasNoMisinformation)
	}
	if len(provider.lastReq.Images) != 1 {
		t.Fatalf("expected 1 image attachment, got %d", len(provider.lastReq.Images))
	}
	if !strings.Contains(provider.lastReq.Prompt, "b.mp4") {
		t.Error("prompt missing non-image media reference")
	}
}

func TestSafetyOracleTransportError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	oracle := NewSafetyOracle(provider)

	_, err := oracle.Evaluate(context.Background(), models.CompletedPost{Body: "x"}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		t.Error("transport error must not be reported as malformed response")
	}
}
