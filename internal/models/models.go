package models

import (
	"fmt"
	"time"
)

// SeedKind discriminates which underlying signal a canonical seed is
// grounded on. Exactly one kind applies to a record; there are no optional
// per-kind foreign keys.
type SeedKind string

const (
	SeedKindNewsEvent  SeedKind = "news_event"
	SeedKindTrend      SeedKind = "trend"
	SeedKindUngrounded SeedKind = "ungrounded"
)

// Valid reports whether the kind is one of the three known variants.
func (k SeedKind) Valid() bool {
	switch k {
	case SeedKindNewsEvent, SeedKindTrend, SeedKindUngrounded:
		return true
	}
	return false
}

// Grounded reports whether posts from this seed make factual claims that a
// misinformation check applies to.
func (k SeedKind) Grounded() bool {
	return k == SeedKindNewsEvent
}

// Source is one reference backing an event or seed. Sources are appended,
// never removed; URL (after trimming) is the dedup key.
type Source struct {
	URL         string `json:"url"`
	KeyFindings string `json:"key_findings,omitempty"`
	FoundBy     string `json:"found_by,omitempty"`
}

// IngestedEvent is a raw candidate signal produced by ingestion. It is
// mutated exactly once, when the deduplicator marks it processed.
type IngestedEvent struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Location        string     `json:"location,omitempty"`
	WindowStart     *time.Time `json:"window_start,omitempty"`
	WindowEnd       *time.Time `json:"window_end,omitempty"`
	Description     string     `json:"description"`
	Sources         []Source   `json:"sources"`
	Processed       bool       `json:"processed"`
	ResultingSeedID string     `json:"resulting_seed_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CanonicalSeed is a deduplicated content idea used as planning input.
type CanonicalSeed struct {
	ID          string     `json:"id"`
	Kind        SeedKind   `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location,omitempty"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
	Sources     []Source   `json:"sources"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// GuardrailPolicy is the immutable weekly constraint set: four metrics,
// each with an inclusive [min, max] range.
type GuardrailPolicy struct {
	MinPosts  int `json:"min_posts"`
	MaxPosts  int `json:"max_posts"`
	MinSeeds  int `json:"min_seeds"`
	MaxSeeds  int `json:"max_seeds"`
	MinVideos int `json:"min_videos"`
	MaxVideos int `json:"max_videos"`
	MinImages int `json:"min_images"`
	MaxImages int `json:"max_images"`
}

// Allocation is one plan line item: post counts per platform/type and media
// budgets for a single seed.
type Allocation struct {
	SeedID       string   `json:"seed_id"`
	SeedKind     SeedKind `json:"seed_kind"`
	IGImagePosts int      `json:"ig_image_posts"`
	IGReelPosts  int      `json:"ig_reel_posts"`
	FBFeedPosts  int      `json:"fb_feed_posts"`
	FBVideoPosts int      `json:"fb_video_posts"`
	ImageBudget  int      `json:"image_budget"`
	VideoBudget  int      `json:"video_budget"`
}

// TotalPosts returns the post count this allocation contributes to the
// weekly posts metric.
func (a Allocation) TotalPosts() int {
	return a.IGImagePosts + a.IGReelPosts + a.FBFeedPosts + a.FBVideoPosts
}

// Plan is a candidate weekly allocation. It only exists during the
// generate/validate loop until it is materialized into tasks.
type Plan struct {
	Allocations   []Allocation `json:"allocations"`
	Reasoning     string       `json:"reasoning"`
	WeekStartDate time.Time    `json:"week_start_date"`
}

// TaskStatus is the lifecycle state of a content creation task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// ContentCreationTask is a persisted copy of one validated allocation.
type ContentCreationTask struct {
	ID            string     `json:"id"`
	Allocation    Allocation `json:"allocation"`
	WeekStartDate time.Time  `json:"week_start_date"`
	Status        TaskStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// VerificationStatus is the safety-verification state of a completed post.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
	VerificationOverridden VerificationStatus = "manually_overridden"
)

// PostStatus is the publishing state of a completed post.
type PostStatus string

const (
	PostPending   PostStatus = "pending"
	PostPublished PostStatus = "published"
	PostFailed    PostStatus = "failed"
)

// CompletedPost is an authored post awaiting scheduling, verification and
// publishing.
type CompletedPost struct {
	ID                    string             `json:"id"`
	TaskID                string             `json:"task_id,omitempty"`
	Platform              string             `json:"platform"`
	PostType              string             `json:"post_type"`
	Body                  string             `json:"body"`
	MediaIDs              []string           `json:"media_ids"`
	ScheduledPostingTime  *time.Time         `json:"scheduled_posting_time,omitempty"`
	VerificationGroupID   string             `json:"verification_group_id,omitempty"`
	IsVerificationPrimary bool               `json:"is_verification_primary"`
	VerificationStatus    VerificationStatus `json:"verification_status"`
	Status                PostStatus         `json:"status"`
	CreatedAt             time.Time          `json:"created_at"`
}

// VerificationSubject returns the identifier a verifier result is keyed by:
// the group id when the post belongs to a group, otherwise the post's own id
// (a singleton group).
func (p CompletedPost) VerificationSubject() string {
	if p.VerificationGroupID != "" {
		return p.VerificationGroupID
	}
	return p.ID
}

// VerifierResult is the single persisted verdict for one verification run.
type VerifierResult struct {
	ID                    string    `json:"id"`
	SubjectID             string    `json:"subject_id"`
	IsApproved            bool      `json:"is_approved"`
	HasNoOffensiveContent bool      `json:"has_no_offensive_content"`
	HasNoMisinformation   *bool     `json:"has_no_misinformation,omitempty"`
	Reasoning             string    `json:"reasoning"`
	IssuesFound           []string  `json:"issues_found"`
	CreatedAt             time.Time `json:"created_at"`
}

// MediaAsset resolves a media id to a fetchable URL.
type MediaAsset struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PlatformCredential holds publishing credentials for one platform.
type PlatformCredential struct {
	Platform    string    `json:"platform"`
	AccessToken string    `json:"-"`
	AccountRef  string    `json:"account_ref,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidateAllocation checks the structural invariants of a single
// allocation: required fields, known seed kind and non-negative counts.
func ValidateAllocation(a Allocation) []string {
	var errs []string
	if a.SeedID == "" {
		errs = append(errs, "allocation missing seed_id")
	}
	if !a.SeedKind.Valid() {
		errs = append(errs, fmt.Sprintf("allocation for seed %q has invalid seed_kind %q", a.SeedID, a.SeedKind))
	}
	counts := []struct {
		name  string
		value int
	}{
		{"ig_image_posts", a.IGImagePosts},
		{"ig_reel_posts", a.IGReelPosts},
		{"fb_feed_posts", a.FBFeedPosts},
		{"fb_video_posts", a.FBVideoPosts},
		{"image_budget", a.ImageBudget},
		{"video_budget", a.VideoBudget},
	}
	for _, c := range counts {
		if c.value < 0 {
			errs = append(errs, fmt.Sprintf("allocation for seed %q has negative %s (%d)", a.SeedID, c.name, c.value))
		}
	}
	return errs
}
