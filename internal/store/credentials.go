package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
)

// ListCredentials returns the stored credential for every platform.
func (s *Store) ListCredentials(ctx context.Context) ([]models.PlatformCredential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, access_token, COALESCE(account_ref, ''), updated_at
		FROM campaign.platform_credentials
		ORDER BY platform ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var creds []models.PlatformCredential
	for rows.Next() {
		var cred models.PlatformCredential
		if err := rows.Scan(&cred.Platform, &cred.AccessToken, &cred.AccountRef, &cred.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// GetCredential fetches the credential for one platform.
func (s *Store) GetCredential(ctx context.Context, platform string) (*models.PlatformCredential, error) {
	var cred models.PlatformCredential
	err := s.db.QueryRowContext(ctx, `
		SELECT platform, access_token, COALESCE(account_ref, ''), updated_at
		FROM campaign.platform_credentials
		WHERE platform = $1
	`, platform).Scan(&cred.Platform, &cred.AccessToken, &cred.AccountRef, &cred.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &cred, nil
}

// UpsertCredential stores or replaces the credential for a platform.
func (s *Store) UpsertCredential(ctx context.Context, cred *models.PlatformCredential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaign.platform_credentials (platform, access_token, account_ref, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (platform) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    account_ref = EXCLUDED.account_ref,
		    updated_at = NOW()
	`, cred.Platform, cred.AccessToken, nullString(cred.AccountRef))
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}
