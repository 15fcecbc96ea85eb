package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/kafka"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
)

type fakeEventStore struct {
	events []*models.IngestedEvent
	err    error
}

func (f *fakeEventStore) CreateEvent(_ context.Context, event *models.IngestedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type fakeDLQ struct {
	topic  string
	values [][]byte
}

func (f *fakeDLQ) ProduceMessage(topic string, _ []byte, value []byte, _ map[string]string) error {
	f.topic = topic
	f.values = append(f.values, value)
	return nil
}

func TestHandleMessageStoresEvent(t *testing.T) {
	store := &fakeEventStore{}
	worker := NewWorker(store, &fakeDLQ{}, "campaign.events.dlq", logging.NewLogger(), nil)

	value, _ := json.Marshal(map[string]interface{}{
		"name":        "Night Market",
		"location":    "Chinatown",
		"description": "Monthly night market returns",
		"sources":     []map[string]string{{"url": "https://example.com/market"}},
	})

	err := worker.HandleMessage(context.Background(), kafka.Message{
		Topic: "campaign.events",
		Value: value,
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 stored event, got %d", len(store.events))
	}
	if store.events[0].Name != "Night Market" || len(store.events[0].Sources) != 1 {
		t.Errorf("event not decoded correctly: %+v", store.events[0])
	}
}

func TestHandleMessageUndecodableGoesToDLQ(t *testing.T) {
	store := &fakeEventStore{}
	dlq := &fakeDLQ{}
	worker := NewWorker(store, dlq, "campaign.events.dlq", logging.NewLogger(), nil)

	original := []byte("not json at all")
	err := worker.HandleMessage(context.Background(), kafka.Message{
		Topic: "campaign.events",
		Value: original,
	})
	if err != nil {
		t.Fatalf("undecodable message must not return an error, got %v", err)
	}
	if len(store.events) != 0 {
		t.Error("undecodable message must not be stored")
	}
	if len(dlq.values) != 1 || dlq.topic != "campaign.events.dlq" {
		t.Fatalf("expected 1 DLQ message on campaign.events.dlq, got %d on %q", len(dlq.values), dlq.topic)
	}

	var payload kafka.DLQPayload
	if err := json.Unmarshal(dlq.values[0], &payload); err != nil {
		t.Fatalf("DLQ payload not json: %v", err)
	}
	decoded, _ := base64.StdEncoding.DecodeString(payload.ValueBase64)
	if string(decoded) != string(original) {
		t.Error("DLQ payload does not carry the original value")
	}
	if payload.Error == "" {
		t.Error("DLQ payload missing the decode error")
	}
}

func TestHandleMessageMissingFieldsGoesToDLQ(t *testing.T) {
	dlq := &fakeDLQ{}
	worker := NewWorker(&fakeEventStore{}, dlq, "campaign.events.dlq", logging.NewLogger(), nil)

	value, _ := json.Marshal(map[string]string{"location": "somewhere"})
	if err := worker.HandleMessage(context.Background(), kafka.Message{Value: value}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(dlq.values) != 1 {
		t.Errorf("expected DLQ message for incomplete event, got %d", len(dlq.values))
	}
}

func TestHandleMessageStoreFailureIsRetryable(t *testing.T) {
	store := &fakeEventStore{err: errors.New("connection reset")}
	dlq := &fakeDLQ{}
	worker := NewWorker(store, dlq, "campaign.events.dlq", logging.NewLogger(), nil)

	value, _ := json.Marshal(map[string]string{"name": "x", "description": "y"})
	err := worker.HandleMessage(context.Background(), kafka.Message{Value: value})
	if err == nil {
		t.Fatal("store failure must surface so the offset is retried")
	}
	if len(dlq.values) != 0 {
		t.Error("store failure must not dead-letter the message")
	}
}
