package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
)

// CreateEvent persists a new ingested event. The event starts unprocessed.
func (s *Store) CreateEvent(ctx context.Context, event *models.IngestedEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	sources, err := marshalSources(event.Sources)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaign.ingested_events
			(id, name, location, window_start, window_end, description, sources, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
	`, event.ID, event.Name, nullString(event.Location), event.WindowStart, event.WindowEnd,
		event.Description, sources, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ingested event: %w", err)
	}

	return nil
}

// GetEvent fetches a single ingested event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (*models.IngestedEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(location, ''), window_start, window_end,
		       description, sources, processed, COALESCE(resulting_seed_id::text, ''), created_at
		FROM campaign.ingested_events
		WHERE id = $1
	`, id)

	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ingested event: %w", err)
	}
	return event, nil
}

// ListUnprocessedEvents returns up to limit events awaiting consolidation,
// oldest first.
func (s *Store) ListUnprocessedEvents(ctx context.Context, limit int) ([]models.IngestedEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(location, ''), window_start, window_end,
		       description, sources, processed, COALESCE(resulting_seed_id::text, ''), created_at
		FROM campaign.ingested_events
		WHERE processed = FALSE
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []models.IngestedEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingested event: %w", err)
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// MarkEventProcessed records the consolidation outcome for an event. The
// processed guard makes this at-most-once: an event already marked is left
// untouched and ErrNotFound is returned.
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, seedID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaign.ingested_events
		SET processed = TRUE, resulting_seed_id = $2
		WHERE id = $1 AND processed = FALSE
	`, eventID, seedID)
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.IngestedEvent, error) {
	var event models.IngestedEvent
	var sources []byte
	if err := row.Scan(&event.ID, &event.Name, &event.Location, &event.WindowStart, &event.WindowEnd,
		&event.Description, &sources, &event.Processed, &event.ResultingSeedID, &event.CreatedAt); err != nil {
		return nil, err
	}

	parsed, err := unmarshalSources(sources)
	if err != nil {
		return nil, err
	}
	event.Sources = parsed
	return &event, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
