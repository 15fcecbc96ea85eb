package planner

import (
	"context"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/monitoring"
)

// TaskStore persists content creation tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.ContentCreationTask) error
}

// Materializer converts a validated plan's allocations into persisted
// tasks. Each allocation is handled independently: one failed insert is
// logged and skipped, never rolling back or blocking its siblings.
type Materializer struct {
	store   TaskStore
	logger  logging.Logger
	metrics *monitoring.PipelineMetrics
}

// NewMaterializer creates a materializer. Metrics may be nil.
func NewMaterializer(store TaskStore, logger logging.Logger, metrics *monitoring.PipelineMetrics) *Materializer {
	return &Materializer{store: store, logger: logger, metrics: metrics}
}

// Materialize creates one pending task per allocation and returns the
// created tasks alongside the number of allocations that failed.
func (m *Materializer) Materialize(ctx context.Context, plan *models.Plan) ([]models.ContentCreationTask, int) {
	var created []models.ContentCreationTask
	failed := 0

	for _, allocation := range plan.Allocations {
		task := &models.ContentCreationTask{
			Allocation:    allocation,
			WeekStartDate: plan.WeekStartDate,
			Status:        models.TaskPending,
		}
		if err := m.store.CreateTask(ctx, task); err != nil {
			failed++
			m.count("failed")
			m.logger.WithFields(logging.Fields{
				"seed_id": allocation.SeedID,
				"error":   err.Error(),
			}).Error("Failed to materialize allocation, skipping")
			continue
		}
		m.count("created")
		created = append(created, *task)
	}

	m.logger.WithFields(logging.Fields{
		"created": len(created),
		"failed":  failed,
	}).Info("Materialized plan")

	return created, failed
}

func (m *Materializer) count(result string) {
	if m.metrics != nil {
		m.metrics.TasksMaterialized.WithLabelValues(result).Inc()
	}
}
