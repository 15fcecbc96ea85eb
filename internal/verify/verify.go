// Package verify gates posts on safety evaluation: one oracle call per
// verification group, fanned out to every member.
package verify

import (
	"context"
	"fmt"

	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/models"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/internal/oracle"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/logging"
	"github.com/ethanrimes/agentic-campaign-mgmt-v2-sub000/pkg/monitoring"
)

// failClosedIssue is recorded when the safety evaluation itself failed; the
// post is rejected rather than silently approved.
const failClosedIssue = "safety evaluation failed; manual review required"

// Store is the persistence surface the coordinator needs.
type Store interface {
	GetPost(ctx context.Context, id string) (*models.CompletedPost, error)
	ListGroupMembers(ctx context.Context, groupID string) ([]models.CompletedPost, error)
	GetMediaAssets(ctx context.Context, ids []string) ([]models.MediaAsset, error)
	CreateVerifierResult(ctx context.Context, result *models.VerifierResult) error
	UpdatePostVerificationStatus(ctx context.Context, id string, status models.VerificationStatus) error
	UpdateGroupVerificationStatus(ctx context.Context, groupID string, from, to models.VerificationStatus) (int, error)
}

// Coordinator runs safety verification over post groups.
type Coordinator struct {
	store   Store
	oracle  oracle.SafetyOracle
	logger  logging.Logger
	metrics *monitoring.PipelineMetrics
}

// NewCoordinator creates a coordinator. Metrics may be nil.
func NewCoordinator(store Store, safety oracle.SafetyOracle, logger logging.Logger, metrics *monitoring.PipelineMetrics) *Coordinator {
	return &Coordinator{store: store, oracle: safety, logger: logger, metrics: metrics}
}

// Verify evaluates the group the given post belongs to. The oracle is
// called once with the group's primary; the verdict is persisted once,
// keyed by the group, and written to every member. A post with no group is
// its own singleton group.
//
// Approval is decided here, not by the oracle: the post must be free of
// offensive content, and free of misinformation when that check applies.
// A nil misinformation flag means the check was not applicable and that
// clause auto-passes. Evaluation failure rejects the group.
func (c *Coordinator) Verify(ctx context.Context, postID string) (*models.VerifierResult, error) {
	post, err := c.store.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("load post %s: %w", postID, err)
	}

	primary, members, err := c.resolveGroup(ctx, post)
	if err != nil {
		return nil, err
	}

	for _, member := range members {
		if member.VerificationStatus != models.VerificationUnverified {
			return nil, fmt.Errorf("post %s has verification status %q, only unverified posts can be verified",
				member.ID, member.VerificationStatus)
		}
	}

	verdict := c.evaluate(ctx, primary)

	approved := verdict.HasNoOffensiveContent &&
		(verdict.HasNoMisinformation == nil || *verdict.HasNoMisinformation)

	result := &models.VerifierResult{
		SubjectID:             primary.VerificationSubject(),
		IsApproved:            approved,
		HasNoOffensiveContent: verdict.HasNoOffensiveContent,
		HasNoMisinformation:   verdict.HasNoMisinformation,
		Reasoning:             verdict.Reasoning,
		IssuesFound:           verdict.IssuesFound,
	}
	if err := c.store.CreateVerifierResult(ctx, result); err != nil {
		return nil, fmt.Errorf("persist verifier result: %w", err)
	}

	status := models.VerificationRejected
	if approved {
		status = models.VerificationVerified
	}
	if err := c.fanOut(ctx, primary, members, status); err != nil {
		return nil, err
	}

	c.countVerdict(string(status))
	c.logger.WithFields(logging.Fields{
		"subject_id": result.SubjectID,
		"approved":   approved,
		"members":    len(members),
	}).Info("Verification completed")

	return result, nil
}

// Override moves a rejected post, and every rejected member of its group,
// to the terminal manually_overridden state. Only an operator action
// reaches this path.
func (c *Coordinator) Override(ctx context.Context, postID string) (int, error) {
	post, err := c.store.GetPost(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("load post %s: %w", postID, err)
	}

	if post.VerificationStatus != models.VerificationRejected {
		return 0, fmt.Errorf("post %s has verification status %q, only rejected posts can be overridden",
			postID, post.VerificationStatus)
	}

	var updated int
	if post.VerificationGroupID != "" {
		updated, err = c.store.UpdateGroupVerificationStatus(ctx, post.VerificationGroupID,
			models.VerificationRejected, models.VerificationOverridden)
		if err != nil {
			return 0, err
		}
	} else {
		if err := c.store.UpdatePostVerificationStatus(ctx, postID, models.VerificationOverridden); err != nil {
			return 0, err
		}
		updated = 1
	}

	c.countVerdict("overridden")
	c.logger.WithFields(logging.Fields{
		"post_id": postID,
		"updated": updated,
	}).Info("Verification manually overridden")

	return updated, nil
}

// resolveGroup returns the group's primary and all members. For a post
// without a group id, the post itself is the only member and the primary.
func (c *Coordinator) resolveGroup(ctx context.Context, post *models.CompletedPost) (*models.CompletedPost, []models.CompletedPost, error) {
	if post.VerificationGroupID == "" {
		return post, []models.CompletedPost{*post}, nil
	}

	members, err := c.store.ListGroupMembers(ctx, post.VerificationGroupID)
	if err != nil {
		return nil, nil, fmt.Errorf("load group %s: %w", post.VerificationGroupID, err)
	}
	if len(members) == 0 {
		return nil, nil, fmt.Errorf("group %s has no members", post.VerificationGroupID)
	}

	for i := range members {
		if members[i].IsVerificationPrimary {
			return &members[i], members, nil
		}
	}
	return nil, nil, fmt.Errorf("group %s has no primary member", post.VerificationGroupID)
}

// evaluate calls the safety oracle and converts any failure into a
// rejecting verdict.
func (c *Coordinator) evaluate(ctx context.Context, primary *models.CompletedPost) *oracle.SafetyVerdict {
	media, err := c.store.GetMediaAssets(ctx, primary.MediaIDs)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"post_id": primary.ID,
			"error":   err.Error(),
		}).Error("Failed to load media for verification, rejecting")
		return failClosedVerdict()
	}

	verdict, err := c.oracle.Evaluate(ctx, *primary, media)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"post_id": primary.ID,
			"error":   err.Error(),
		}).Error("Safety evaluation failed, rejecting")
		return failClosedVerdict()
	}
	return verdict
}

func (c *Coordinator) fanOut(ctx context.Context, primary *models.CompletedPost, members []models.CompletedPost, status models.VerificationStatus) error {
	if primary.VerificationGroupID == "" {
		if err := c.store.UpdatePostVerificationStatus(ctx, primary.ID, status); err != nil {
			return fmt.Errorf("update post %s: %w", primary.ID, err)
		}
		return nil
	}

	updated, err := c.store.UpdateGroupVerificationStatus(ctx, primary.VerificationGroupID,
		models.VerificationUnverified, status)
	if err != nil {
		return fmt.Errorf("update group %s: %w", primary.VerificationGroupID, err)
	}
	if updated != len(members) {
		c.logger.WithFields(logging.Fields{
			"group_id": primary.VerificationGroupID,
			"expected": len(members),
			"updated":  updated,
		}).Warn("Group fan-out updated an unexpected number of posts")
	}
	return nil
}

func (c *Coordinator) countVerdict(verdict string) {
	if c.metrics != nil {
		c.metrics.VerificationVerdicts.WithLabelValues(verdict).Inc()
	}
}

func failClosedVerdict() *oracle.SafetyVerdict {
	return &oracle.SafetyVerdict{
		HasNoOffensiveContent: false,
		Reasoning:             "safety evaluation did not complete",
		IssuesFound:           []string{failClosedIssue},
	}
}
