// Package repository provides data access layer for the organization module.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	organizationModel "github.com/reviewflow/reviewflow/internal/organization/model"
)

// Repository defines the interface for organization data access operations.
type Repository interface {
	// GetByID finds an organization by org_id.
	GetByID(ctx context.Context, orgID string) (*organizationModel.Organization, error)

	// GetReviewer finds a reviewer by reviewer_id.
	GetReviewer(ctx context.Context, reviewerID string) (*organizationModel.Reviewer, error)

	// GetReviewers finds reviewers by reviewer_id, preserving input order.
	// Unknown ids are skipped, not an error.
	GetReviewers(ctx context.Context, reviewerIDs []string) ([]organizationModel.Reviewer, error)
}

type repository struct {
	db *gorm.DB
}

// New creates a new organization repository instance.
func New(db *gorm.DB) Repository {
	return &repository{db: db}
}

// GetByID finds an organization by org_id.
func (r *repository) GetByID(
	ctx context.Context,
	orgID string,
) (*organizationModel.Organization, error) {
	var org organizationModel.Organization
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		First(&org).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, organizationModel.ErrOrganizationNotFound
		}
		return nil, err
	}

	return &org, nil
}

// GetReviewer finds a reviewer by reviewer_id.
func (r *repository) GetReviewer(
	ctx context.Context,
	reviewerID string,
) (*organizationModel.Reviewer, error) {
	var reviewer organizationModel.Reviewer
	err := r.db.WithContext(ctx).
		Where("reviewer_id = ?", reviewerID).
		First(&reviewer).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, organizationModel.ErrReviewerNotFound
		}
		return nil, err
	}

	return &reviewer, nil
}

// GetReviewers finds reviewers by reviewer_id, preserving input order.
func (r *repository) GetReviewers(
	ctx context.Context,
	reviewerIDs []string,
) ([]organizationModel.Reviewer, error) {
	if len(reviewerIDs) == 0 {
		return nil, nil
	}

	var found []organizationModel.Reviewer
	err := r.db.WithContext(ctx).
		Where("reviewer_id IN ?", reviewerIDs).
		Find(&found).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[string]organizationModel.Reviewer, len(found))
	for _, reviewer := range found {
		byID[reviewer.ReviewerID] = reviewer
	}

	ordered := make([]organizationModel.Reviewer, 0, len(reviewerIDs))
	for _, id := range reviewerIDs {
		if reviewer, ok := byID[id]; ok {
			ordered = append(ordered, reviewer)
		}
	}

	return ordered, nil
}
