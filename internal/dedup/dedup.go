// Package dedup consolidates ingested events into canonical seeds, merging
// duplicates detected by the similarity oracle.
package dedup

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/oracle"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/monitoring"
)

// mergeMarker prefixes description text appended during a merge so the
// original wording stays intact as an audit trail.
const mergeMarker = "\n\n[additional information] "

// Store is the persistence surface the consolidator needs.
type Store interface {
	ListUnprocessedEvents(ctx context.Context, limit int) ([]models.IngestedEvent, error)
	CreateSeed(ctx context.Context, seed *models.CanonicalSeed) error
	GetSeed(ctx context.Context, id string) (*models.CanonicalSeed, error)
	UpdateSeedMerge(ctx context.Context, id, description string, sources []models.Source) error
	MarkEventProcessed(ctx context.Context, eventID, seedID string) error
}

// SeedSource supplies the recent-seed comparison window and accepts
// invalidation after writes.
type SeedSource interface {
	Recent(ctx context.Context, limit int) ([]models.CanonicalSeed, error)
	Invalidate(ctx context.Context)
}

// Outcome records how one event was consolidated.
type Outcome struct {
	EventID  string `json:"event_id"`
	SeedID   string `json:"seed_id"`
	Merged   bool   `json:"merged"`
	Fallback bool   `json:"fallback"`
}

// Consolidator turns ingested events into canonical seeds. Ambiguity is
// always resolved as "not a duplicate": a failed or unusable oracle answer
// falls back to creating a fresh seed.
type Consolidator struct {
	store   Store
	seeds   SeedSource
	oracle  oracle.SimilarityOracle
	window  int
	logger  logging.Logger
	metrics *monitoring.PipelineMetrics
}

// NewConsolidator creates a consolidator comparing against the given number
// of recent seeds. Metrics may be nil.
func NewConsolidator(store Store, seeds SeedSource, similarity oracle.SimilarityOracle, window int, logger logging.Logger, metrics *monitoring.PipelineMetrics) *Consolidator {
	return &Consolidator{
		store:   store,
		seeds:   seeds,
		oracle:  similarity,
		window:  window,
		logger:  logger,
		metrics: metrics,
	}
}

// Consolidate decides merge-or-create for one event and marks it processed.
// The processed mark is written on every branch, including fallbacks, so an
// event is consolidated at most once.
func (c *Consolidator) Consolidate(ctx context.Context, event models.IngestedEvent) (*Outcome, error) {
	recent, err := c.seeds.Recent(ctx, c.window)
	if err != nil {
		return nil, fmt.Errorf("load recent seeds: %w", err)
	}

	if len(recent) == 0 {
		return c.create(ctx, event, false)
	}

	result, err := c.oracle.Compare(ctx, event, recent)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event_id": event.ID,
			"error":    err.Error(),
		}).Warn("Similarity comparison failed, treating event as new")
		return c.create(ctx, event, true)
	}

	if !result.IsDuplicate {
		c.logger.WithFields(logging.Fields{
			"event_id":   event.ID,
			"confidence": result.Confidence,
		}).Debug("Event is not a duplicate")
		return c.create(ctx, event, false)
	}

	matchID, ok := sanitizeMatchID(result.MatchID)
	if !ok {
		c.logger.WithFields(logging.Fields{
			"event_id": event.ID,
			"match_id": result.MatchID,
		}).Warn("Duplicate signalled with unusable match id, creating new seed")
		return c.create(ctx, event, true)
	}

	seed, err := c.store.GetSeed(ctx, matchID)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event_id": event.ID,
			"match_id": matchID,
			"error":    err.Error(),
		}).Warn("Matched seed not loadable, creating new seed")
		return c.create(ctx, event, true)
	}

	return c.merge(ctx, event, seed, result.Confidence)
}

// Run consolidates a batch of unprocessed events. A failure on one event is
// logged and does not stop the rest of the batch.
func (c *Consolidator) Run(ctx context.Context, batchLimit int) ([]Outcome, error) {
	events, err := c.store.ListUnprocessedEvents(ctx, batchLimit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed events: %w", err)
	}

	var outcomes []Outcome
	for _, event := range events {
		outcome, err := c.Consolidate(ctx, event)
		if err != nil {
			c.logger.WithFields(logging.Fields{
				"event_id": event.ID,
				"error":    err.Error(),
			}).Error("Failed to consolidate event")
			continue
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, nil
}

func (c *Consolidator) create(ctx context.Context, event models.IngestedEvent, fallback bool) (*Outcome, error) {
	seed := &models.CanonicalSeed{
		Kind:        models.SeedKindNewsEvent,
		Title:       event.Name,
		Description: event.Description,
		Location:    event.Location,
		WindowStart: event.WindowStart,
		WindowEnd:   event.WindowEnd,
		Sources:     unionSources(nil, event.Sources),
	}
	if err := c.store.CreateSeed(ctx, seed); err != nil {
		return nil, fmt.Errorf("create seed: %w", err)
	}
	c.seeds.Invalidate(ctx)
	c.markProcessed(ctx, event.ID, seed.ID)

	outcome := "created"
	if fallback {
		outcome = "fallback_created"
	}
	c.countOutcome(outcome)

	c.logger.WithFields(logging.Fields{
		"event_id": event.ID,
		"seed_id":  seed.ID,
		"fallback": fallback,
	}).Info("Created canonical seed from event")

	return &Outcome{EventID: event.ID, SeedID: seed.ID, Fallback: fallback}, nil
}

func (c *Consolidator) merge(ctx context.Context, event models.IngestedEvent, seed *models.CanonicalSeed, confidence float64) (*Outcome, error) {
	description := seed.Description + mergeMarker + event.Description
	sources := unionSources(seed.Sources, event.Sources)

	if err := c.store.UpdateSeedMerge(ctx, seed.ID, description, sources); err != nil {
		return nil, fmt.Errorf("merge into seed %s: %w", seed.ID, err)
	}
	c.seeds.Invalidate(ctx)
	c.markProcessed(ctx, event.ID, seed.ID)
	c.countOutcome("merged")

	c.logger.WithFields(logging.Fields{
		"event_id":   event.ID,
		"seed_id":    seed.ID,
		"confidence": confidence,
	}).Info("Merged event into existing seed")

	return &Outcome{EventID: event.ID, SeedID: seed.ID, Merged: true}, nil
}

func (c *Consolidator) markProcessed(ctx context.Context, eventID, seedID string) {
	if err := c.store.MarkEventProcessed(ctx, eventID, seedID); err != nil {
		c.logger.WithFields(logging.Fields{
			"event_id": eventID,
			"seed_id":  seedID,
			"error":    err.Error(),
		}).Warn("Failed to mark event processed")
	}
}

func (c *Consolidator) countOutcome(outcome string) {
	if c.metrics != nil {
		c.metrics.DedupOutcomes.WithLabelValues(outcome).Inc()
	}
}

// sanitizeMatchID trims whitespace and surrounding quotes from an oracle-
// returned id and checks it parses as a UUID.
func sanitizeMatchID(raw string) (string, bool) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.Trim(cleaned, `"'`)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", false
	}
	if _, err := uuid.Parse(cleaned); err != nil {
		return "", false
	}
	return cleaned, true
}

// unionSources appends only sources whose trimmed url is not already
// present. Existing entries are never removed or rewritten.
func unionSources(existing, incoming []models.Source) []models.Source {
	merged := make([]models.Source, len(existing))
	copy(merged, existing)

	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[strings.TrimSpace(s.URL)] = true
	}
	for _, s := range incoming {
		key := strings.TrimSpace(s.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, s)
	}
	return merged
}
