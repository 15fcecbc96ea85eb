// Package scheduler assigns publish timestamps to completed posts, one
// queue per platform.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/config"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/monitoring"
)

// Store is the persistence surface the scheduler needs.
type Store interface {
	LatestScheduledTime(ctx context.Context, platform string) (*time.Time, error)
	ListPendingPosts(ctx context.Context, platform string) ([]models.CompletedPost, error)
	UpdateScheduledTime(ctx context.Context, id string, at time.Time) error
}

// Scheduler computes posting slots per platform. Slot assignment reads the
// latest scheduled time and writes a new one with no serialization between
// the two, so concurrent assignments for one platform can land on the same
// slot; Reindex repairs the queue when that happens.
type Scheduler struct {
	store     Store
	platforms map[string]config.PlatformSchedule
	logger    logging.Logger
	metrics   *monitoring.PipelineMetrics
	now       func() time.Time
}

// New creates a scheduler for the configured platforms. Metrics may be nil.
func New(store Store, platforms map[string]config.PlatformSchedule, logger logging.Logger, metrics *monitoring.PipelineMetrics) *Scheduler {
	return &Scheduler{
		store:     store,
		platforms: platforms,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// ComputeNextSlot returns the next posting time for a platform: interval
// past the latest scheduled pending post, or now plus the initial delay
// when the queue is empty or has gone stale ("catch-up reset").
func (s *Scheduler) ComputeNextSlot(ctx context.Context, platform string) (time.Time, error) {
	sched, ok := s.platforms[platform]
	if !ok {
		return time.Time{}, fmt.Errorf("no schedule configured for platform %q", platform)
	}

	now := s.now().UTC()
	interval := time.Duration(sched.IntervalHours) * time.Hour
	initialDelay := time.Duration(sched.InitialDelayHours) * time.Hour

	latest, err := s.store.LatestScheduledTime(ctx, platform)
	if err != nil {
		return time.Time{}, err
	}

	if latest == nil {
		s.countSlot(platform, "initial")
		return now.Add(initialDelay), nil
	}

	candidate := latest.Add(interval)
	if candidate.Before(now) {
		s.countSlot(platform, "catch_up_reset")
		s.logger.WithFields(logging.Fields{
			"platform": platform,
			"latest":   latest,
		}).Info("Schedule went stale, resetting to initial delay")
		return now.Add(initialDelay), nil
	}

	s.countSlot(platform, "appended")
	return candidate, nil
}

// Schedule assigns the next slot to one post and persists it.
func (s *Scheduler) Schedule(ctx context.Context, post *models.CompletedPost) (time.Time, error) {
	slot, err := s.ComputeNextSlot(ctx, post.Platform)
	if err != nil {
		return time.Time{}, err
	}
	if err := s.store.UpdateScheduledTime(ctx, post.ID, slot); err != nil {
		return time.Time{}, fmt.Errorf("schedule post %s: %w", post.ID, err)
	}
	post.ScheduledPostingTime = &slot
	return slot, nil
}

// Reindex reassigns every pending post for a platform onto a clean
// arithmetic progression starting at now plus the initial delay, ordered by
// creation time. Prior scheduled times are ignored. Used to repair drift
// after an outage or racing slot assignments.
func (s *Scheduler) Reindex(ctx context.Context, platform string) (int, error) {
	sched, ok := s.platforms[platform]
	if !ok {
		return 0, fmt.Errorf("no schedule configured for platform %q", platform)
	}

	posts, err := s.store.ListPendingPosts(ctx, platform)
	if err != nil {
		return 0, err
	}

	interval := time.Duration(sched.IntervalHours) * time.Hour
	slot := s.now().UTC().Add(time.Duration(sched.InitialDelayHours) * time.Hour)

	for i := range posts {
		if err := s.store.UpdateScheduledTime(ctx, posts[i].ID, slot); err != nil {
			return i, fmt.Errorf("reindex post %s: %w", posts[i].ID, err)
		}
		slot = slot.Add(interval)
	}

	s.logger.WithFields(logging.Fields{
		"platform": platform,
		"posts":    len(posts),
	}).Info("Reindexed platform schedule")

	return len(posts), nil
}

func (s *Scheduler) countSlot(platform, mode string) {
	if s.metrics != nil {
		s.metrics.ScheduledSlots.WithLabelValues(platform, mode).Inc()
	}
}
