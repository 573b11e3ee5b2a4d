// Package repository provides data access layer for the rule module.
package repository

import (
	"context"

	"gorm.io/gorm"

	ruleModel "github.com/reviewflow/reviewflow/internal/rule/model"
)

// Repository defines the interface for rule data access operations.
type Repository interface {
	// ListActive returns active rules for an organization ordered by
	// (priority, created_at, id) ascending. The id tiebreak keeps evaluation
	// order deterministic for rules created in the same instant.
	ListActive(ctx context.Context, orgID string) ([]ruleModel.RoutingRule, error)
}

type repository struct {
	db *gorm.DB
}

// New creates a new rule repository instance.
func New(db *gorm.DB) Repository {
	return &repository{db: db}
}

// ListActive returns active rules for an organization in evaluation order.
func (r *repository) ListActive(
	ctx context.Context,
	orgID string,
) ([]ruleModel.RoutingRule, error) {
	var rules []ruleModel.RoutingRule
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND is_active = ?", orgID, true).
		Order("priority ASC, created_at ASC, id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}

	return rules, nil
}
