package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
)

// CreateVerifierResult persists the verdict for one verification subject.
// The subject id is unique: exactly one verdict per group.
func (s *Store) CreateVerifierResult(ctx context.Context, result *models.VerifierResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	issues, err := marshalStrings(result.IssuesFound)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaign.verifier_results
			(id, subject_id, is_approved, has_no_offensive_content, has_no_misinformation,
			 reasoning, issues_found, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, result.ID, result.SubjectID, result.IsApproved, result.HasNoOffensiveContent,
		result.HasNoMisinformation, result.Reasoning, issues, result.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert verifier result: %w", err)
	}

	return nil
}

// GetVerifierResultBySubject fetches the verdict recorded for a
// verification subject (a group id, or a lone post's own id).
func (s *Store) GetVerifierResultBySubject(ctx context.Context, subjectID string) (*models.VerifierResult, error) {
	var result models.VerifierResult
	var issues []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, is_approved, has_no_offensive_content, has_no_misinformation,
		       reasoning, issues_found, created_at
		FROM campaign.verifier_results
		WHERE subject_id = $1
	`, subjectID).Scan(&result.ID, &result.SubjectID, &result.IsApproved,
		&result.HasNoOffensiveContent, &result.HasNoMisinformation,
		&result.Reasoning, &issues, &result.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get verifier result: %w", err)
	}

	parsed, err := unmarshalStrings(issues)
	if err != nil {
		return nil, err
	}
	result.IssuesFound = parsed
	return &result, nil
}
