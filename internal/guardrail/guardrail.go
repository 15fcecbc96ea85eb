// Package guardrail validates candidate weekly plans against the configured
// policy ranges. Validation is a pure function: no I/O, deterministic for a
// given plan and policy.
package guardrail

import (
	"fmt"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
)

// Validator checks candidate plans against one immutable policy.
type Validator struct {
	policy models.GuardrailPolicy
}

// NewValidator creates a validator for the given policy.
func NewValidator(policy models.GuardrailPolicy) *Validator {
	return &Validator{policy: policy}
}

// Policy returns the policy this validator enforces.
func (v *Validator) Policy() models.GuardrailPolicy {
	return v.policy
}

// Validate checks every allocation structurally and the plan's four
// aggregate metrics against their ranges. All violations are collected; the
// plan is valid only when the error list is empty.
//
// The videos metric is derived from the reel and video post counts, while
// the images metric is derived from the declared image budgets. The two
// derivations are intentionally different and must stay that way.
func (v *Validator) Validate(plan *models.Plan) (bool, []string) {
	var errs []string

	for _, a := range plan.Allocations {
		errs = append(errs, models.ValidateAllocation(a)...)
	}

	var posts, videos, images int
	for _, a := range plan.Allocations {
		posts += a.TotalPosts()
		videos += a.IGReelPosts + a.FBVideoPosts
		images += a.ImageBudget
	}
	seeds := len(plan.Allocations)

	errs = append(errs, checkRange("total posts", posts, v.policy.MinPosts, v.policy.MaxPosts)...)
	errs = append(errs, checkRange("seeds used", seeds, v.policy.MinSeeds, v.policy.MaxSeeds)...)
	errs = append(errs, checkRange("video posts", videos, v.policy.MinVideos, v.policy.MaxVideos)...)
	errs = append(errs, checkRange("image budget", images, v.policy.MinImages, v.policy.MaxImages)...)

	return len(errs) == 0, errs
}

func checkRange(metric string, value, min, max int) []string {
	var errs []string
	if value < min {
		errs = append(errs, fmt.Sprintf("%s %d is below minimum %d", metric, value, min))
	}
	if value > max {
		errs = append(errs, fmt.Sprintf("%s %d is above maximum %d", metric, value, max))
	}
	return errs
}
