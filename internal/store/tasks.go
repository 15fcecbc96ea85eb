package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
)

// CreateTask persists one content creation task from a validated allocation.
func (s *Store) CreateTask(ctx context.Context, task *models.ContentCreationTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = models.TaskPending
	}

	a := task.Allocation
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaign.content_tasks
			(id, seed_id, seed_kind, ig_image_posts, ig_reel_posts, fb_feed_posts, fb_video_posts,
			 image_budget, video_budget, week_start, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, task.ID, a.SeedID, string(a.SeedKind), a.IGImagePosts, a.IGReelPosts, a.FBFeedPosts,
		a.FBVideoPosts, a.ImageBudget, a.VideoBudget, task.WeekStartDate, string(task.Status),
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert content task: %w", err)
	}

	return nil
}

// GetTask fetches a single content creation task by id.
func (s *Store) GetTask(ctx context.Context, id string) (*models.ContentCreationTask, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seed_id, seed_kind, ig_image_posts, ig_reel_posts, fb_feed_posts, fb_video_posts,
		       image_budget, video_budget, week_start, status, created_at, updated_at
		FROM campaign.content_tasks
		WHERE id = $1
	`, id)

	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content task: %w", err)
	}
	return task, nil
}

// ListTasksByStatus returns tasks in the given status, oldest first.
func (s *Store) ListTasksByStatus(ctx context.Context, status models.TaskStatus) ([]models.ContentCreationTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed_id, seed_kind, ig_image_posts, ig_reel_posts, fb_feed_posts, fb_video_posts,
		       image_budget, video_budget, week_start, status, created_at, updated_at
		FROM campaign.content_tasks
		WHERE status = $1
		ORDER BY created_at ASC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list tasks by status: %w", err)
	}
	defer rows.Close()

	var tasks []models.ContentCreationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// ListTasks returns all content creation tasks, newest first.
func (s *Store) ListTasks(ctx context.Context) ([]models.ContentCreationTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed_id, seed_kind, ig_image_posts, ig_reel_posts, fb_feed_posts, fb_video_posts,
		       image_budget, video_budget, week_start, status, created_at, updated_at
		FROM campaign.content_tasks
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.ContentCreationTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus moves a task to a new lifecycle state.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaign.content_tasks
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTask(row rowScanner) (*models.ContentCreationTask, error) {
	var task models.ContentCreationTask
	var kind, status string
	if err := row.Scan(&task.ID, &task.Allocation.SeedID, &kind,
		&task.Allocation.IGImagePosts, &task.Allocation.IGReelPosts,
		&task.Allocation.FBFeedPosts, &task.Allocation.FBVideoPosts,
		&task.Allocation.ImageBudget, &task.Allocation.VideoBudget,
		&task.WeekStartDate, &status, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	task.Allocation.SeedKind = models.SeedKind(kind)
	task.Status = models.TaskStatus(status)
	return &task, nil
}
