package guardrail

import (
	"strings"
	"testing"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
)

var testPolicy = models.GuardrailPolicy{
	MinPosts: 10, MaxPosts: 20,
	MinSeeds: 3, MaxSeeds: 8,
	MinVideos: 2, MaxVideos: 10,
	MinImages: 4, MaxImages: 15,
}

func alloc(seedID string, igImage, igReel, fbFeed, fbVideo, imageBudget, videoBudget int) models.Allocation {
	return models.Allocation{
		SeedID:       seedID,
		SeedKind:     models.SeedKindTrend,
		IGImagePosts: igImage,
		IGReelPosts:  igReel,
		FBFeedPosts:  fbFeed,
		FBVideoPosts: fbVideo,
		ImageBudget:  imageBudget,
		VideoBudget:  videoBudget,
	}
}

func TestValidateAcceptsPlanWithinRanges(t *testing.T) {
	v := NewValidator(testPolicy)

	ok, errs := v.Validate(&models.Plan{Allocations: []models.Allocation{
		alloc("seed-1", 2, 1, 1, 0, 2, 1),
		alloc("seed-2", 1, 1, 2, 0, 2, 1),
		alloc("seed-3", 1, 0, 2, 1, 2, 1),
	}})
	if !ok {
		t.Fatalf("expected valid plan, got errors: %v", errs)
	}
	if len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidateBelowMinimumPosts(t *testing.T) {
	v := NewValidator(testPolicy)

	// 8 total posts against a minimum of 10.
	ok, errs := v.Validate(&models.Plan{Allocations: []models.Allocation{
		alloc("seed-1", 2, 1, 1, 0, 2, 1),
		alloc("seed-2", 1, 1, 1, 0, 2, 1),
		alloc("seed-3", 0, 0, 1, 0, 2, 0),
	}})
	if ok {
		t.Fatal("expected invalid plan")
	}

	found := false
	for _, e := range errs {
		if strings.Contains(e, "below minimum") && strings.Contains(e, "total posts") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a below-minimum posts error, got %v", errs)
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	v := NewValidator(testPolicy)

	// One allocation: too few posts, too few seeds, too few videos, too few
	// images. Every violation must appear.
	ok, errs := v.Validate(&models.Plan{Allocations: []models.Allocation{
		alloc("seed-1", 1, 0, 0, 0, 0, 0),
	}})
	if ok {
		t.Fatal("expected invalid plan")
	}
	if len(errs) != 4 {
		t.Errorf("expected 4 violations, got %d: %v", len(errs), errs)
	}
}

func TestValidateVideosFromPostCountsNotBudget(t *testing.T) {
	v := NewValidator(testPolicy)

	// Large video budgets but zero reel/video posts: the videos metric must
	// read 0 and violate the minimum, regardless of the budget fields.
	ok, errs := v.Validate(&models.Plan{Allocations: []models.Allocation{
		alloc("seed-1", 4, 0, 2, 0, 2, 5),
		alloc("seed-2", 2, 0, 2, 0, 2, 5),
		alloc("seed-3", 1, 0, 1, 0, 2, 5),
	}})
	if ok {
		t.Fatal("expected invalid plan")
	}

	found := false
	for _, e := range errs {
		if strings.Contains(e, "video posts 0 is below minimum") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected video-posts violation derived from post counts, got %v", errs)
	}
}

func TestValidateImagesFromBudgetNotPostCounts(t *testing.T) {
	v := NewValidator(testPolicy)

	// Plenty of image posts but zero declared image budget: the images
	// metric reads the budgets, so the minimum is violated.
	ok, errs := v.Validate(&models.Plan{Allocations: []models.Allocation{
		alloc("seed-1", 4, 1, 0, 0, 0, 1),
		alloc("seed-2", 3, 1, 0, 0, 0, 1),
		alloc("seed-3", 2, 0, 0, 0, 0, 0),
	}})
	if ok {
		t.Fatal("expected invalid plan")
	}

	found := false
	for _, e := range errs {
		if strings.Contains(e, "image budget 0 is below minimum") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected image-budget violation, got %v", errs)
	}
}

func TestValidateStructuralErrors(t *testing.T) {
	v := NewValidator(testPolicy)

	bad := alloc("", 2, 1, 1, 0, 2, 1)
	bad.SeedKind = "meme"
	bad.ImageBudget = -1

	ok, errs := v.Validate(&models.Plan{Allocations: []models.Allocation{
		bad,
		alloc("seed-2", 3, 1, 2, 1, 3, 1),
		alloc("seed-3", 2, 0, 2, 1, 2, 1),
	}})
	if ok {
		t.Fatal("expected invalid plan")
	}

	var missingSeed, badKind, negative bool
	for _, e := range errs {
		if strings.Contains(e, "missing seed_id") {
			missingSeed = true
		}
		if strings.Contains(e, "invalid seed_kind") {
			badKind = true
		}
		if strings.Contains(e, "negative image_budget") {
			negative = true
		}
	}
	if !missingSeed || !badKind || !negative {
		t.Errorf("missing structural errors (missing=%v kind=%v negative=%v): %v",
			missingSeed, badKind, negative, errs)
	}
}
