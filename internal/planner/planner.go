// Package planner runs the bounded-retry plan generation loop and
// materializes validated plans into content creation tasks.
package planner

import (
	"context"
	"fmt"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/guardrail"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/oracle"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/monitoring"
)

// Result is the outcome of one planning run. On failure, Plan holds the
// last rejected candidate and Errors its violations, so operators can see
// what the model kept getting wrong.
type Result struct {
	Success  bool         `json:"success"`
	Attempts int          `json:"attempts"`
	Plan     *models.Plan `json:"plan,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// Runner drives the generate/validate loop.
type Runner struct {
	oracle     oracle.PlanningOracle
	validator  *guardrail.Validator
	maxRetries int
	logger     logging.Logger
	metrics    *monitoring.PipelineMetrics
}

// NewRunner creates a runner allowing up to maxRetries generation attempts.
// Metrics may be nil.
func NewRunner(planning oracle.PlanningOracle, validator *guardrail.Validator, maxRetries int, logger logging.Logger, metrics *monitoring.PipelineMetrics) *Runner {
	return &Runner{
		oracle:     planning,
		validator:  validator,
		maxRetries: maxRetries,
		logger:     logger,
		metrics:    metrics,
	}
}

// Policy returns the guardrail policy candidate plans are validated
// against.
func (r *Runner) Policy() models.GuardrailPolicy {
	return r.validator.Policy()
}

// Run asks the planning oracle for candidate plans until one validates or
// the attempt budget is spent. Every attempt is a fresh generation; a
// rejected candidate is discarded, never patched. An oracle error is
// retried like an invalid plan except on the final attempt, where it
// propagates.
func (r *Runner) Run(ctx context.Context, pc oracle.PlanningContext) (*Result, error) {
	var lastPlan *models.Plan
	var lastErrors []string

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		plan, err := r.oracle.Generate(ctx, pc)
		if err != nil {
			if attempt == r.maxRetries {
				r.observeAttempt("error", attempt)
				return nil, fmt.Errorf("plan generation failed on final attempt %d: %w", attempt, err)
			}
			r.logger.WithFields(logging.Fields{
				"attempt": attempt,
				"error":   err.Error(),
			}).Warn("Plan generation failed, retrying")
			continue
		}

		ok, errs := r.validator.Validate(plan)
		if ok {
			r.observeAttempt("success", attempt)
			r.logger.WithFields(logging.Fields{
				"attempt":     attempt,
				"allocations": len(plan.Allocations),
			}).Info("Plan validated")
			return &Result{Success: true, Attempts: attempt, Plan: plan}, nil
		}

		lastPlan = plan
		lastErrors = errs
		r.logger.WithFields(logging.Fields{
			"attempt":    attempt,
			"violations": errs,
		}).Warn("Candidate plan rejected")
	}

	r.observeAttempt("exhausted", r.maxRetries)
	return &Result{
		Success:  false,
		Attempts: r.maxRetries,
		Plan:     lastPlan,
		Errors:   lastErrors,
	}, nil
}

func (r *Runner) observeAttempt(result string, attempt int) {
	if r.metrics != nil {
		r.metrics.PlanAttempts.WithLabelValues(result).Observe(float64(attempt))
	}
}
