// Package store implements the persistence layer for the campaign pipeline
// on PostgreSQL.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
)

// ErrNotFound is returned when a lookup matches no rows, and by updates
// whose guard clause matched nothing (e.g. marking an already-processed
// event).
var ErrNotFound = errors.New("record not found")

// Store provides access to all persisted pipeline records.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// New creates a store backed by the given database handle.
func New(db *sql.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func marshalSources(sources []models.Source) ([]byte, error) {
	if sources == nil {
		sources = []models.Source{}
	}
	b, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("marshal sources: %w", err)
	}
	return b, nil
}

func unmarshalSources(raw []byte) ([]models.Source, error) {
	var sources []models.Source
	if len(raw) == 0 {
		return []models.Source{}, nil
	}
	if err := json.Unmarshal(raw, &sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	return sources, nil
}

func marshalStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return b, nil
}

func unmarshalStrings(raw []byte) ([]string, error) {
	var values []string
	if len(raw) == 0 {
		return []string{}, nil
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("unmarshal string list: %w", err)
	}
	return values, nil
}
