// Package handlers exposes the pipeline's administrative HTTP API.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/credentials"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/dedup"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/oracle"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/planner"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/scheduler"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/store"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/verify"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/middleware"
)

// Dependencies holds all external dependencies for handlers
type Dependencies struct {
	Logger       logging.Logger
	Store        *store.Store
	Consolidator *dedup.Consolidator
	Runner       *planner.Runner
	Materializer *planner.Materializer
	Scheduler    *scheduler.Scheduler
	Verifier     *verify.Coordinator
	Credentials  *credentials.Cache
}

var deps Dependencies

// Init initializes the handlers with dependencies
func Init(d Dependencies) {
	deps = d
	deps.Logger.Info("Handlers initialized")
}

// ConsolidateEvents runs the deduplicator over a batch of unprocessed
// events.
func ConsolidateEvents(c middleware.Context) {
	var req struct {
		BatchLimit int `json:"batch_limit"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "Invalid request body"})
		return
	}
	if req.BatchLimit <= 0 {
		req.BatchLimit = 50
	}

	outcomes, err := deps.Consolidator.Run(c.Request.Context(), req.BatchLimit)
	if err != nil {
		deps.Logger.WithError(err).Error("Consolidation run failed")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, middleware.H{
		"processed": len(outcomes),
		"outcomes":  outcomes,
	})
}

// GeneratePlan runs the planning loop for a week and materializes the
// validated plan into tasks. A run that exhausts its retries returns the
// last rejected candidate and its violations with 422.
func GeneratePlan(c middleware.Context) {
	var req struct {
		WeekStartDate  string `json:"week_start_date"`
		InsightSummary string `json:"insight_summary"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "Invalid request body"})
		return
	}

	weekStart, err := time.Parse("2006-01-02", req.WeekStartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "week_start_date must be YYYY-MM-DD"})
		return
	}

	ctx := c.Request.Context()
	seeds, err := deps.Store.ListSeeds(ctx)
	if err != nil {
		deps.Logger.WithError(err).Error("Failed to load seeds for planning")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Internal server error"})
		return
	}
	if len(seeds) == 0 {
		c.JSON(http.StatusConflict, middleware.H{"error": "No seeds available for planning"})
		return
	}

	result, err := deps.Runner.Run(ctx, oracle.PlanningContext{
		Seeds:          seeds,
		InsightSummary: req.InsightSummary,
		Guardrails:     deps.Runner.Policy(),
		WeekStartDate:  weekStart,
	})
	if err != nil {
		deps.Logger.WithError(err).Error("Planning run failed")
		c.JSON(http.StatusBadGateway, middleware.H{"error": "Plan generation failed"})
		return
	}

	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, middleware.H{
			"success":   false,
			"attempts":  result.Attempts,
			"errors":    result.Errors,
			"last_plan": result.Plan,
		})
		return
	}

	tasks, failed := deps.Materializer.Materialize(ctx, result.Plan)
	c.JSON(http.StatusOK, middleware.H{
		"success":      true,
		"attempts":     result.Attempts,
		"reasoning":    result.Plan.Reasoning,
		"tasks":        tasks,
		"failed_tasks": failed,
	})
}

// SchedulePost assigns the next posting slot to one post.
func SchedulePost(c middleware.Context) {
	postID := c.Param("id")

	post, err := deps.Store.GetPost(c.Request.Context(), postID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, middleware.H{"error": "Post not found"})
		return
	}
	if err != nil {
		deps.Logger.WithError(err).Error("Failed to load post")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Internal server error"})
		return
	}

	slot, err := deps.Scheduler.Schedule(c.Request.Context(), post)
	if err != nil {
		deps.Logger.WithError(err).WithField("post_id", postID).Error("Failed to schedule post")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, middleware.H{
		"post_id":                postID,
		"scheduled_posting_time": slot,
	})
}

// ReindexPlatform reassigns every pending post for a platform onto a clean
// schedule.
func ReindexPlatform(c middleware.Context) {
	platform := c.Param("platform")

	n, err := deps.Scheduler.Reindex(c.Request.Context(), platform)
	if err != nil {
		deps.Logger.WithError(err).WithField("platform", platform).Error("Reindex failed")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, middleware.H{
		"platform":  platform,
		"reindexed": n,
	})
}

// VerifyPost runs safety verification for the group the post belongs to.
func VerifyPost(c middleware.Context) {
	postID := c.Param("id")

	result, err := deps.Verifier.Verify(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, middleware.H{"error": "Post not found"})
			return
		}
		deps.Logger.WithError(err).WithField("post_id", postID).Warn("Verification rejected")
		c.JSON(http.StatusConflict, middleware.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// OverridePost moves a rejected post (and its group) to manually_overridden.
func OverridePost(c middleware.Context) {
	postID := c.Param("id")

	updated, err := deps.Verifier.Override(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, middleware.H{"error": "Post not found"})
			return
		}
		deps.Logger.WithError(err).WithField("post_id", postID).Warn("Override rejected")
		c.JSON(http.StatusConflict, middleware.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, middleware.H{
		"post_id": postID,
		"updated": updated,
	})
}

// ListSeeds returns every canonical seed.
func ListSeeds(c middleware.Context) {
	seeds, err := deps.Store.ListSeeds(c.Request.Context())
	if err != nil {
		deps.Logger.WithError(err).Error("Failed to list seeds")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, middleware.H{"seeds": seeds})
}

// ListTasks returns content creation tasks, optionally filtered by status.
func ListTasks(c middleware.Context) {
	ctx := c.Request.Context()

	var tasks []models.ContentCreationTask
	var err error
	if status := c.Query("status"); status != "" {
		tasks, err = deps.Store.ListTasksByStatus(ctx, models.TaskStatus(status))
	} else {
		tasks, err = deps.Store.ListTasks(ctx)
	}
	if err != nil {
		deps.Logger.WithError(err).Error("Failed to list tasks")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, middleware.H{"tasks": tasks})
}

// ListPosts returns completed posts, optionally pending-only for one
// platform.
func ListPosts(c middleware.Context) {
	ctx := c.Request.Context()

	var posts []models.CompletedPost
	var err error
	if platform := c.Query("platform"); platform != "" {
		posts, err = deps.Store.ListPendingPosts(ctx, platform)
	} else {
		posts, err = deps.Store.ListPosts(ctx)
	}
	if err != nil {
		deps.Logger.WithError(err).Error("Failed to list posts")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, middleware.H{"posts": posts})
}

// UpsertCredential stores or rotates a platform credential and invalidates
// the cached copy.
func UpsertCredential(c middleware.Context) {
	platform := c.Param("platform")

	var req struct {
		AccessToken string `json:"access_token" binding:"required"`
		AccountRef  string `json:"account_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, middleware.H{"error": "access_token is required"})
		return
	}

	cred := &models.PlatformCredential{
		Platform:    platform,
		AccessToken: req.AccessToken,
		AccountRef:  req.AccountRef,
	}
	if err := deps.Store.UpsertCredential(c.Request.Context(), cred); err != nil {
		deps.Logger.WithError(err).WithField("platform", platform).Error("Failed to upsert credential")
		c.JSON(http.StatusInternalServerError, middleware.H{"error": "Internal server error"})
		return
	}
	deps.Credentials.Invalidate(platform)

	c.JSON(http.StatusOK, middleware.H{"platform": platform})
}
