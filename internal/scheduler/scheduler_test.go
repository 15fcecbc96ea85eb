package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/config"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
)

type fakeStore struct {
	latest    map[string]*time.Time
	pending   map[string][]models.CompletedPost
	scheduled map[string]time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		latest:    make(map[string]*time.Time),
		pending:   make(map[string][]models.CompletedPost),
		scheduled: make(map[string]time.Time),
	}
}

func (f *fakeStore) LatestScheduledTime(_ context.Context, platform string) (*time.Time, error) {
	return f.latest[platform], nil
}

func (f *fakeStore) ListPendingPosts(_ context.Context, platform string) ([]models.CompletedPost, error) {
	return f.pending[platform], nil
}

func (f *fakeStore) UpdateScheduledTime(_ context.Context, id string, at time.Time) error {
	f.scheduled[id] = at
	return nil
}

var testPlatforms = map[string]config.PlatformSchedule{
	"instagram": {IntervalHours: 24, InitialDelayHours: 2},
	"facebook":  {IntervalHours: 12, InitialDelayHours: 1},
}

func newScheduler(store Store, now time.Time) *Scheduler {
	s := New(store, testPlatforms, logging.NewLogger(), nil)
	s.now = func() time.Time { return now }
	return s
}

func TestComputeNextSlotEmptyQueue(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := newScheduler(newFakeStore(), now)

	slot, err := s.ComputeNextSlot(context.Background(), "instagram")
	if err != nil {
		t.Fatalf("ComputeNextSlot: %v", err)
	}
	if want := now.Add(2 * time.Hour); !slot.Equal(want) {
		t.Errorf("expected %v, got %v", want, slot)
	}
}

func TestComputeNextSlotAppendsInterval(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	latest := now.Add(2 * time.Hour) // first slot already taken
	store.latest["instagram"] = &latest
	s := newScheduler(store, now)

	slot, err := s.ComputeNextSlot(context.Background(), "instagram")
	if err != nil {
		t.Fatalf("ComputeNextSlot: %v", err)
	}
	if want := now.Add(26 * time.Hour); !slot.Equal(want) {
		t.Errorf("expected %v, got %v", want, slot)
	}
}

func TestComputeNextSlotCatchUpReset(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	stale := now.Add(-72 * time.Hour) // queue died days ago
	store.latest["instagram"] = &stale
	s := newScheduler(store, now)

	slot, err := s.ComputeNextSlot(context.Background(), "instagram")
	if err != nil {
		t.Fatalf("ComputeNextSlot: %v", err)
	}
	if want := now.Add(2 * time.Hour); !slot.Equal(want) {
		t.Errorf("expected catch-up reset to %v, got %v", want, slot)
	}
}

func TestComputeNextSlotNeverBeforeNow(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	for _, offset := range []time.Duration{-100 * time.Hour, -1 * time.Minute, 0, time.Hour, 50 * time.Hour} {
		latest := now.Add(offset)
		store.latest["facebook"] = &latest
		s := newScheduler(store, now)

		slot, err := s.ComputeNextSlot(context.Background(), "facebook")
		if err != nil {
			t.Fatalf("ComputeNextSlot: %v", err)
		}
		if slot.Before(now) {
			t.Errorf("offset %v: slot %v is before now %v", offset, slot, now)
		}
	}
}

func TestComputeNextSlotUnknownPlatform(t *testing.T) {
	s := newScheduler(newFakeStore(), time.Now())
	if _, err := s.ComputeNextSlot(context.Background(), "tiktok"); err == nil {
		t.Fatal("expected error for unconfigured platform")
	}
}

func TestSchedulePersistsSlot(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	s := newScheduler(store, now)

	post := &models.CompletedPost{ID: "post-1", Platform: "facebook"}
	slot, err := s.Schedule(context.Background(), post)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if got := store.scheduled["post-1"]; !got.Equal(slot) {
		t.Errorf("persisted %v, returned %v", got, slot)
	}
	if post.ScheduledPostingTime == nil || !post.ScheduledPostingTime.Equal(slot) {
		t.Error("post not updated with assigned slot")
	}
}

func TestReindexArithmeticProgression(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := newFakeStore()
	stale := now.Add(-10 * time.Hour)
	store.pending["instagram"] = []models.CompletedPost{
		{ID: "post-1", Platform: "instagram", ScheduledPostingTime: &stale},
		{ID: "post-2", Platform: "instagram", ScheduledPostingTime: &stale},
		{ID: "post-3", Platform: "instagram"},
	}
	s := newScheduler(store, now)

	n, err := s.Reindex(context.Background(), "instagram")
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 reindexed posts, got %d", n)
	}

	first := now.Add(2 * time.Hour)
	for i, id := range []string{"post-1", "post-2", "post-3"} {
		want := first.Add(time.Duration(i) * 24 * time.Hour)
		if got := store.scheduled[id]; !got.Equal(want) {
			t.Errorf("%s: expected %v, got %v", id, want, got)
		}
	}
}

func TestReindexEmptyQueue(t *testing.T) {
	s := newScheduler(newFakeStore(), time.Now())
	n, err := s.Reindex(context.Background(), "facebook")
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}
