package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
)

// CreateMediaAsset registers a media asset so posts can reference it by id.
func (s *Store) CreateMediaAsset(ctx context.Context, asset *models.MediaAsset) error {
	if asset.ID == "" {
		asset.ID = uuid.New().String()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaign.media_assets (id, url, mime_type, created_at)
		VALUES ($1, $2, $3, $4)
	`, asset.ID, asset.URL, nullString(asset.MimeType), asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert media asset: %w", err)
	}

	return nil
}

// GetMediaAssets resolves media ids to assets. Unknown ids are simply absent
// from the result; callers decide whether that matters.
func (s *Store) GetMediaAssets(ctx context.Context, ids []string) ([]models.MediaAsset, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, COALESCE(mime_type, ''), created_at
		FROM campaign.media_assets
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get media assets: %w", err)
	}
	defer rows.Close()

	var assets []models.MediaAsset
	for rows.Next() {
		var asset models.MediaAsset
		if err := rows.Scan(&asset.ID, &asset.URL, &asset.MimeType, &asset.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}
