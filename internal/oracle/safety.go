package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/llm"
)

const safetySystemPrompt = `You review a social media post before publication. Check for offensive content (hate speech, harassment, explicit material, dangerous instructions). If the post reports on real events, also check its factual claims for misinformation. Respond with ONLY a JSON object:
{"has_no_offensive_content": bool, "has_no_misinformation": bool or null, "reasoning": "<brief>", "issues_found": ["<issue>", ...]}
Set has_no_misinformation to null when the post makes no checkable factual claims.`

// LLMSafetyOracle asks a language model to evaluate a post's text and
// attached media.
type LLMSafetyOracle struct {
	provider llm.Provider
}

// NewSafetyOracle creates an LLM-backed safety oracle.
func NewSafetyOracle(provider llm.Provider) *LLMSafetyOracle {
	return &LLMSafetyOracle{provider: provider}
}

// Evaluate submits the post body and media for review. Media assets are
// attached as image inputs when the model supports them.
func (o *LLMSafetyOracle) Evaluate(ctx context.Context, post models.CompletedPost, media []models.MediaAsset) (*SafetyVerdict, error) {
	var images []llm.Image
	for _, asset := range media {
		if strings.HasPrefix(asset.MimeType, "image/") {
			images = append(images, llm.Image{URL: asset.URL, MediaType: asset.MimeType})
		}
	}

	raw, err := o.provider.Complete(ctx, llm.Request{
		System: safetySystemPrompt,
		Prompt: buildSafetyPrompt(post, media),
		Images: images,
	})
	if err != nil {
		return nil, fmt.Errorf("safety oracle: %w", err)
	}

	var verdict SafetyVerdict
	if err := extractJSON("safety", raw, &verdict); err != nil {
		return nil, err
	}
	if verdict.IssuesFound == nil {
		verdict.IssuesFound = []string{}
	}
	return &verdict, nil
}

func buildSafetyPrompt(post models.CompletedPost, media []models.MediaAsset) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Platform: %s\nPost type: %s\n\nPost text:\n%s\n", post.Platform, post.PostType, post.Body)

	var nonImage []string
	for _, asset := range media {
		if !strings.HasPrefix(asset.MimeType, "image/") {
			nonImage = append(nonImage, fmt.Sprintf("%s (%s)", asset.URL, asset.MimeType))
		}
	}
	if len(nonImage) > 0 {
		b.WriteString("\nAttached media (not shown inline):\n")
		for _, m := range nonImage {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}

	return b.String()
}
