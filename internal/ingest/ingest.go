// Package ingest consumes candidate event signals from Kafka and persists
// them for the deduplicator to consolidate.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/kafka"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/monitoring"
)

const consumerName = "campaign-ingest"

// EventStore persists ingested events.
type EventStore interface {
	CreateEvent(ctx context.Context, event *models.IngestedEvent) error
}

// DLQProducer publishes undecodable messages for later inspection.
type DLQProducer interface {
	ProduceMessage(topic string, key []byte, value []byte, headers map[string]string) error
}

// eventMessage is the wire format published by discovery collaborators.
type eventMessage struct {
	Name        string          `json:"name"`
	Location    string          `json:"location,omitempty"`
	WindowStart *time.Time      `json:"window_start,omitempty"`
	WindowEnd   *time.Time      `json:"window_end,omitempty"`
	Description string          `json:"description"`
	Sources     []models.Source `json:"sources"`
}

// Worker decodes event messages and stores them. Messages that cannot be
// decoded go to the dead letter topic; storage failures are returned so the
// consumer retries the offset.
type Worker struct {
	store    EventStore
	dlq      DLQProducer
	dlqTopic string
	logger   logging.Logger
	metrics  *monitoring.PipelineMetrics
}

// NewWorker creates an ingest worker. DLQ and metrics may be nil.
func NewWorker(store EventStore, dlq DLQProducer, dlqTopic string, logger logging.Logger, metrics *monitoring.PipelineMetrics) *Worker {
	return &Worker{
		store:    store,
		dlq:      dlq,
		dlqTopic: dlqTopic,
		logger:   logger,
		metrics:  metrics,
	}
}

// HandleMessage is the Kafka handler for the events topic.
func (w *Worker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var wire eventMessage
	if err := json.Unmarshal(msg.Value, &wire); err != nil {
		return w.sendToDLQ(msg, fmt.Errorf("decode event message: %w", err))
	}
	if wire.Name == "" || wire.Description == "" {
		return w.sendToDLQ(msg, fmt.Errorf("event message missing name or description"))
	}

	event := &models.IngestedEvent{
		Name:        wire.Name,
		Location:    wire.Location,
		WindowStart: wire.WindowStart,
		WindowEnd:   wire.WindowEnd,
		Description: wire.Description,
		Sources:     wire.Sources,
	}
	if err := w.store.CreateEvent(ctx, event); err != nil {
		// Persistence failures are retryable; leave the offset uncommitted.
		return fmt.Errorf("store ingested event: %w", err)
	}

	w.count("stored")
	w.logger.WithFields(logging.Fields{
		"event_id": event.ID,
		"name":     event.Name,
		"topic":    msg.Topic,
		"offset":   msg.Offset,
	}).Info("Ingested event stored")

	return nil
}

// sendToDLQ parks a bad message and commits the offset. A message that can
// never decode must not block the partition.
func (w *Worker) sendToDLQ(msg kafka.Message, cause error) error {
	w.count("rejected")
	w.logger.WithFields(logging.Fields{
		"topic":  msg.Topic,
		"offset": msg.Offset,
		"error":  cause.Error(),
	}).Warn("Rejecting undecodable event message")

	if w.dlq == nil || w.dlqTopic == "" {
		return nil
	}

	payload, err := kafka.EncodeDLQMessage(msg, cause, consumerName)
	if err != nil {
		return err
	}
	if err := w.dlq.ProduceMessage(w.dlqTopic, msg.Key, payload, nil); err != nil {
		return fmt.Errorf("produce to dlq: %w", err)
	}
	return nil
}

func (w *Worker) count(status string) {
	if w.metrics != nil {
		w.metrics.EventsIngested.WithLabelValues(status).Inc()
	}
}
