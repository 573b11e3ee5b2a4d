// Package repository provides data access layer for the assignment module.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	assignmentModel "github.com/reviewflow/reviewflow/internal/assignment/model"
	pullrequestModel "github.com/reviewflow/reviewflow/internal/pullrequest/model"
)

// Repository defines the interface for assignment data access operations.
type Repository interface {
	// Create inserts a new review assignment. Returns ErrAssignmentExists
	// when the (pull request, reviewer) pair is already assigned.
	Create(ctx context.Context, assignment *assignmentModel.ReviewAssignment) error

	// GetByID finds an assignment by id.
	GetByID(ctx context.Context, id int64) (*assignmentModel.ReviewAssignment, error)

	// GetByPullRequestAndReviewer finds the assignment for one reviewer on one PR.
	GetByPullRequestAndReviewer(
		ctx context.Context,
		prID, reviewerID string,
	) (*assignmentModel.ReviewAssignment, error)

	// ListByPullRequest returns all assignments for a pull request.
	ListByPullRequest(ctx context.Context, prID string) ([]assignmentModel.ReviewAssignment, error)

	// UpdateStatus sets the review status and optional completion timestamp.
	UpdateStatus(ctx context.Context, id int64, status string, completedAt *time.Time) error

	// ListDueForReminder returns pending assignments at level none, assigned
	// before the cutoff, not yet reminded, whose pull request is still open.
	ListDueForReminder(ctx context.Context, cutoff time.Time) ([]assignmentModel.ReviewAssignment, error)

	// ListDueForEscalation returns pending assignments at exactly level
	// reminded, assigned before the cutoff, not yet escalated, whose pull
	// request is still open.
	ListDueForEscalation(ctx context.Context, cutoff time.Time) ([]assignmentModel.ReviewAssignment, error)

	// MarkFirstNotified stamps first_notified_at if it is still null.
	MarkFirstNotified(ctx context.Context, id int64, at time.Time) (bool, error)

	// MarkReminded advances the assignment to level reminded and stamps
	// reminded_at, guarded by reminded_at IS NULL. Returns false when the
	// guard no longer holds, which makes the transition exactly-once even
	// under overlapping sweeps.
	MarkReminded(ctx context.Context, id int64, at time.Time) (bool, error)

	// MarkEscalated advances the assignment to level escalated and stamps
	// escalated_at, guarded by escalated_at IS NULL and the current level
	// being exactly reminded.
	MarkEscalated(ctx context.Context, id int64, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// New creates a new assignment repository instance.
func New(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create inserts a new review assignment.
func (r *repository) Create(
	ctx context.Context,
	assignment *assignmentModel.ReviewAssignment,
) error {
	err := r.db.WithContext(ctx).Create(assignment).Error
	if err != nil {
		if isDuplicateError(err) {
			return assignmentModel.ErrAssignmentExists
		}
		return err
	}
	return nil
}

// isDuplicateError checks if error is a unique constraint violation.
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint")
}

// GetByID finds an assignment by id.
func (r *repository) GetByID(
	ctx context.Context,
	id int64,
) (*assignmentModel.ReviewAssignment, error) {
	var assignment assignmentModel.ReviewAssignment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&assignment).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, assignmentModel.ErrAssignmentNotFound
		}
		return nil, err
	}

	return &assignment, nil
}

// GetByPullRequestAndReviewer finds the assignment for one reviewer on one PR.
func (r *repository) GetByPullRequestAndReviewer(
	ctx context.Context,
	prID, reviewerID string,
) (*assignmentModel.ReviewAssignment, error) {
	var assignment assignmentModel.ReviewAssignment
	err := r.db.WithContext(ctx).
		Where("pull_request_id = ? AND reviewer_id = ?", prID, reviewerID).
		First(&assignment).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, assignmentModel.ErrAssignmentNotFound
		}
		return nil, err
	}

	return &assignment, nil
}

// ListByPullRequest returns all assignments for a pull request.
func (r *repository) ListByPullRequest(
	ctx context.Context,
	prID string,
) ([]assignmentModel.ReviewAssignment, error) {
	var assignments []assignmentModel.ReviewAssignment
	err := r.db.WithContext(ctx).
		Where("pull_request_id = ?", prID).
		Order("id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpdateStatus sets the review status and optional completion timestamp.
func (r *repository) UpdateStatus(
	ctx context.Context,
	id int64,
	status string,
	completedAt *time.Time,
) error {
	updates := map[string]interface{}{
		"status": status,
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}

	result := r.db.WithContext(ctx).
		Model(&assignmentModel.ReviewAssignment{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return assignmentModel.ErrAssignmentNotFound
	}

	return nil
}

// ListDueForReminder returns assignments due for a reminder.
func (r *repository) ListDueForReminder(
	ctx context.Context,
	cutoff time.Time,
) ([]assignmentModel.ReviewAssignment, error) {
	return r.listDue(ctx, assignmentModel.LevelNone, "reminded_at", cutoff)
}

// ListDueForEscalation returns assignments due for escalation.
func (r *repository) ListDueForEscalation(
	ctx context.Context,
	cutoff time.Time,
) ([]assignmentModel.ReviewAssignment, error) {
	return r.listDue(ctx, assignmentModel.LevelReminded, "escalated_at", cutoff)
}

// listDue is the shared sweep query: pending assignments at the source
// level, past the threshold, with the guard timestamp unset and an open PR.
func (r *repository) listDue(
	ctx context.Context,
	level, guardColumn string,
	cutoff time.Time,
) ([]assignmentModel.ReviewAssignment, error) {
	var assignments []assignmentModel.ReviewAssignment
	err := r.db.WithContext(ctx).
		Joins("JOIN pull_requests ON pull_requests.pull_request_id = review_assignments.pull_request_id").
		Where("review_assignments.status = ?", assignmentModel.StatusPending).
		Where("review_assignments.escalation_level = ?", level).
		Where("review_assignments.assigned_at <= ?", cutoff).
		Where("review_assignments."+guardColumn+" IS NULL").
		Where("pull_requests.state = ?", pullrequestModel.StateOpen).
		Order("review_assignments.id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// MarkFirstNotified stamps first_notified_at if it is still null.
func (r *repository) MarkFirstNotified(
	ctx context.Context,
	id int64,
	at time.Time,
) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&assignmentModel.ReviewAssignment{}).
		Where("id = ? AND first_notified_at IS NULL", id).
		Update("first_notified_at", at)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkReminded advances the assignment to level reminded.
func (r *repository) MarkReminded(
	ctx context.Context,
	id int64,
	at time.Time,
) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&assignmentModel.ReviewAssignment{}).
		Where("id = ? AND escalation_level = ? AND reminded_at IS NULL",
			id, assignmentModel.LevelNone).
		Updates(map[string]interface{}{
			"escalation_level": assignmentModel.LevelReminded,
			"reminded_at":      at,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkEscalated advances the assignment to level escalated.
func (r *repository) MarkEscalated(
	ctx context.Context,
	id int64,
	at time.Time,
) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&assignmentModel.ReviewAssignment{}).
		Where("id = ? AND escalation_level = ? AND escalated_at IS NULL",
			id, assignmentModel.LevelReminded).
		Updates(map[string]interface{}{
			"escalation_level": assignmentModel.LevelEscalated,
			"escalated_at":     at,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
