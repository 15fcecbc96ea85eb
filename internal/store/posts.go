package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
)

const postColumns = `id, COALESCE(task_id::text, ''), platform, post_type, body, media_ids,
	       scheduled_posting_time, COALESCE(verification_group_id::text, ''),
	       is_verification_primary, verification_status, status, created_at`

// CreatePost persists a completed post awaiting scheduling and verification.
func (s *Store) CreatePost(ctx context.Context, post *models.CompletedPost) error {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if post.VerificationStatus == "" {
		post.VerificationStatus = models.VerificationUnverified
	}
	if post.Status == "" {
		post.Status = models.PostPending
	}

	mediaIDs, err := marshalStrings(post.MediaIDs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaign.completed_posts
			(id, task_id, platform, post_type, body, media_ids, scheduled_posting_time,
			 verification_group_id, is_verification_primary, verification_status, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, post.ID, nullString(post.TaskID), post.Platform, post.PostType, post.Body, mediaIDs,
		post.ScheduledPostingTime, nullString(post.VerificationGroupID), post.IsVerificationPrimary,
		string(post.VerificationStatus), string(post.Status), post.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert completed post: %w", err)
	}

	return nil
}

// GetPost fetches a single completed post by id.
func (s *Store) GetPost(ctx context.Context, id string) (*models.CompletedPost, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+`
		FROM campaign.completed_posts
		WHERE id = $1
	`, id)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get completed post: %w", err)
	}
	return post, nil
}

// ListPosts returns all completed posts, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]models.CompletedPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM campaign.completed_posts
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// ListPendingPosts returns a platform's pending posts ordered by creation
// time, the order slot reindexing walks.
func (s *Store) ListPendingPosts(ctx context.Context, platform string) ([]models.CompletedPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM campaign.completed_posts
		WHERE platform = $1 AND status = 'pending'
		ORDER BY created_at ASC
	`, platform)
	if err != nil {
		return nil, fmt.Errorf("list pending posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// LatestScheduledTime returns the most distant scheduled posting time among
// a platform's pending posts, or nil when none are scheduled.
func (s *Store) LatestScheduledTime(ctx context.Context, platform string) (*time.Time, error) {
	var latest *time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(scheduled_posting_time)
		FROM campaign.completed_posts
		WHERE platform = $1 AND status = 'pending'
	`, platform).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("latest scheduled time: %w", err)
	}
	return latest, nil
}

// UpdateScheduledTime sets a post's scheduled posting time.
func (s *Store) UpdateScheduledTime(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaign.completed_posts
		SET scheduled_posting_time = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("update scheduled time: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update scheduled time: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListGroupMembers returns every post sharing a verification group, the
// primary first.
func (s *Store) ListGroupMembers(ctx context.Context, groupID string) ([]models.CompletedPost, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM campaign.completed_posts
		WHERE verification_group_id = $1
		ORDER BY is_verification_primary DESC, created_at ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// UpdatePostVerificationStatus sets one post's verification status.
func (s *Store) UpdatePostVerificationStatus(ctx context.Context, id string, status models.VerificationStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaign.completed_posts
		SET verification_status = $2
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("update post verification status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update post verification status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateGroupVerificationStatus moves every member of a verification group
// from one verification status to another. It returns the number of posts
// updated.
func (s *Store) UpdateGroupVerificationStatus(ctx context.Context, groupID string, from, to models.VerificationStatus) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaign.completed_posts
		SET verification_status = $3
		WHERE verification_group_id = $1 AND verification_status = $2
	`, groupID, string(from), string(to))
	if err != nil {
		return 0, fmt.Errorf("update group verification status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update group verification status: %w", err)
	}
	return int(n), nil
}

func scanPost(row rowScanner) (*models.CompletedPost, error) {
	var post models.CompletedPost
	var mediaIDs []byte
	var verification, status string
	if err := row.Scan(&post.ID, &post.TaskID, &post.Platform, &post.PostType, &post.Body,
		&mediaIDs, &post.ScheduledPostingTime, &post.VerificationGroupID,
		&post.IsVerificationPrimary, &verification, &status, &post.CreatedAt); err != nil {
		return nil, err
	}
	post.VerificationStatus = models.VerificationStatus(verification)
	post.Status = models.PostStatus(status)

	parsed, err := unmarshalStrings(mediaIDs)
	if err != nil {
		return nil, err
	}
	post.MediaIDs = parsed
	return &post, nil
}

func collectPosts(rows *sql.Rows) ([]models.CompletedPost, error) {
	var posts []models.CompletedPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completed post: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}
