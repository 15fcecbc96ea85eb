package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
)

// CreateSeed persists a new canonical seed.
func (s *Store) CreateSeed(ctx context.Context, seed *models.CanonicalSeed) error {
	if seed.ID == "" {
		seed.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = now
	}
	seed.UpdatedAt = now

	sources, err := marshalSources(seed.Sources)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaign.canonical_seeds
			(id, kind, title, description, location, window_start, window_end, sources, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, seed.ID, string(seed.Kind), seed.Title, seed.Description, nullString(seed.Location),
		seed.WindowStart, seed.WindowEnd, sources, seed.CreatedAt, seed.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert canonical seed: %w", err)
	}

	return nil
}

// GetSeed fetches a single canonical seed by id.
func (s *Store) GetSeed(ctx context.Context, id string) (*models.CanonicalSeed, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, title, description, COALESCE(location, ''),
		       window_start, window_end, sources, created_at, updated_at
		FROM campaign.canonical_seeds
		WHERE id = $1
	`, id)

	seed, err := scanSeed(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get canonical seed: %w", err)
	}
	return seed, nil
}

// UpdateSeedMerge replaces a seed's description and source list after a
// duplicate event has been merged into it.
func (s *Store) UpdateSeedMerge(ctx context.Context, id, description string, sources []models.Source) error {
	raw, err := marshalSources(sources)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE campaign.canonical_seeds
		SET description = $2, sources = $3, updated_at = NOW()
		WHERE id = $1
	`, id, description, raw)
	if err != nil {
		return fmt.Errorf("update seed merge: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update seed merge: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecentSeeds returns the most recently created seeds, newest first.
// This is the comparison window for deduplication.
func (s *Store) ListRecentSeeds(ctx context.Context, limit int) ([]models.CanonicalSeed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, title, description, COALESCE(location, ''),
		       window_start, window_end, sources, created_at, updated_at
		FROM campaign.canonical_seeds
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent seeds: %w", err)
	}
	defer rows.Close()

	var seeds []models.CanonicalSeed
	for rows.Next() {
		seed, err := scanSeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan canonical seed: %w", err)
		}
		seeds = append(seeds, *seed)
	}
	return seeds, rows.Err()
}

// ListSeeds returns all canonical seeds, newest first.
func (s *Store) ListSeeds(ctx context.Context) ([]models.CanonicalSeed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, title, description, COALESCE(location, ''),
		       window_start, window_end, sources, created_at, updated_at
		FROM campaign.canonical_seeds
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list seeds: %w", err)
	}
	defer rows.Close()

	var seeds []models.CanonicalSeed
	for rows.Next() {
		seed, err := scanSeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan canonical seed: %w", err)
		}
		seeds = append(seeds, *seed)
	}
	return seeds, rows.Err()
}

func scanSeed(row rowScanner) (*models.CanonicalSeed, error) {
	var seed models.CanonicalSeed
	var kind string
	var sources []byte
	if err := row.Scan(&seed.ID, &kind, &seed.Title, &seed.Description, &seed.Location,
		&seed.WindowStart, &seed.WindowEnd, &sources, &seed.CreatedAt, &seed.UpdatedAt); err != nil {
		return nil, err
	}
	seed.Kind = models.SeedKind(kind)

	parsed, err := unmarshalSources(sources)
	if err != nil {
		return nil, err
	}
	seed.Sources = parsed
	return &seed, nil
}
