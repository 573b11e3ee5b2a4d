// Package repository provides data access layer for the pullrequest module.
package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pullrequestModel "github.com/reviewflow/reviewflow/internal/pullrequest/model"
)

// Repository defines the interface for pullrequest data access operations.
type Repository interface {
	// Upsert inserts the pull request mirror row or refreshes its mutable
	// fields when it already exists.
	Upsert(ctx context.Context, pr *pullrequestModel.PullRequest) error

	// GetByID finds a pull request by pull_request_id.
	GetByID(ctx context.Context, prID string) (*pullrequestModel.PullRequest, error)

	// MarkClosed records the pull request as closed, optionally merged.
	MarkClosed(ctx context.Context, prID string, merged bool, closedAt time.Time) error
}

type repository struct {
	db *gorm.DB
}

// New creates a new pullrequest repository instance.
func New(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Upsert inserts or refreshes the pull request mirror row.
func (r *repository) Upsert(ctx context.Context, pr *pullrequestModel.PullRequest) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "pull_request_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "head_branch", "base_branch", "state", "merged", "closed_at",
			}),
		}).
		Create(pr).Error
}

// GetByID finds a pull request by pull_request_id.
func (r *repository) GetByID(
	ctx context.Context,
	prID string,
) (*pullrequestModel.PullRequest, error) {
	var pr pullrequestModel.PullRequest
	err := r.db.WithContext(ctx).
		Where("pull_request_id = ?", prID).
		First(&pr).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pullrequestModel.ErrPullRequestNotFound
		}
		return nil, err
	}

	return &pr, nil
}

// MarkClosed records the pull request as closed, optionally merged.
func (r *repository) MarkClosed(
	ctx context.Context,
	prID string,
	merged bool,
	closedAt time.Time,
) error {
	result := r.db.WithContext(ctx).
		Model(&pullrequestModel.PullRequest{}).
		Where("pull_request_id = ?", prID).
		Updates(map[string]interface{}{
			"state":     pullrequestModel.StateClosed,
			"merged":    merged,
			"closed_at": closedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pullrequestModel.ErrPullRequestNotFound
	}

	return nil
}
