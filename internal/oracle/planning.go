package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/llm"
)

const planningSystemPrompt = `You are a weekly social media content planner for Instagram and Facebook. Given content seeds and guardrail ranges, allocate posts across seeds. Respond with ONLY a JSON object:
{"allocations": [{"seed_id": "<id>", "seed_kind": "news_event|trend|ungrounded", "ig_image_posts": int, "ig_reel_posts": int, "fb_feed_posts": int, "fb_video_posts": int, "image_budget": int, "video_budget": int}], "reasoning": "<brief>"}
All counts must be non-negative integers and the totals must satisfy every guardrail range.`

// LLMPlanningOracle asks a language model for a candidate weekly plan.
type LLMPlanningOracle struct {
	provider llm.Provider
}

// NewPlanningOracle creates an LLM-backed planning oracle.
func NewPlanningOracle(provider llm.Provider) *LLMPlanningOracle {
	return &LLMPlanningOracle{provider: provider}
}

type planResponse struct {
	Allocations []models.Allocation `json:"allocations"`
	Reasoning   string              `json:"reasoning"`
}

// Generate requests a fresh candidate plan for the given context.
func (o *LLMPlanningOracle) Generate(ctx context.Context, pc PlanningContext) (*models.Plan, error) {
	raw, err := o.provider.Complete(ctx, llm.Request{
		System: planningSystemPrompt,
		Prompt: buildPlanningPrompt(pc),
	})
	if err != nil {
		return nil, fmt.Errorf("planning oracle: %w", err)
	}

	var resp planResponse
	if err := extractJSON("planning", raw, &resp); err != nil {
		return nil, err
	}

	return &models.Plan{
		Allocations:   resp.Allocations,
		Reasoning:     resp.Reasoning,
		WeekStartDate: pc.WeekStartDate,
	}, nil
}

func buildPlanningPrompt(pc PlanningContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Week starting %s.\n\n", pc.WeekStartDate.Format("2006-01-02"))

	g := pc.Guardrails
	b.WriteString("Guardrails (inclusive ranges):\n")
	fmt.Fprintf(&b, "  total posts: %d-%d\n", g.MinPosts, g.MaxPosts)
	fmt.Fprintf(&b, "  seeds used: %d-%d\n", g.MinSeeds, g.MaxSeeds)
	fmt.Fprintf(&b, "  video posts (reels + facebook videos): %d-%d\n", g.MinVideos, g.MaxVideos)
	fmt.Fprintf(&b, "  image budget total: %d-%d\n", g.MinImages, g.MaxImages)

	b.WriteString("\nAvailable seeds:\n")
	for _, seed := range pc.Seeds {
		fmt.Fprintf(&b, "- id: %s\n  kind: %s\n  title: %s\n  description: %s\n",
			seed.ID, seed.Kind, seed.Title, seed.Description)
		writeWindow(&b, seed.WindowStart, seed.WindowEnd)
	}

	if pc.InsightSummary != "" {
		fmt.Fprintf(&b, "\nRecent performance insights:\n%s\n", pc.InsightSummary)
	}

	return b.String()
}
