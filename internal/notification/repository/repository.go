// Package repository provides data access layer for the notification module.
package repository

import (
	"context"

	"gorm.io/gorm"

	notificationModel "github.com/reviewflow/reviewflow/internal/notification/model"
)

// Repository defines the interface for notification data access operations.
type Repository interface {
	// Append writes one delivery-attempt record.
	Append(ctx context.Context, record *notificationModel.Record) error

	// HasSent reports whether a notification of the given type has already
	// been delivered for the assignment.
	HasSent(ctx context.Context, assignmentID int64, notificationType string) (bool, error)

	// ListByAssignment returns all records for an assignment, oldest first.
	ListByAssignment(ctx context.Context, assignmentID int64) ([]notificationModel.Record, error)
}

type repository struct {
	db *gorm.DB
}

// New creates a new notification repository instance.
func New(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Append writes one delivery-attempt record.
func (r *repository) Append(ctx context.Context, record *notificationModel.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// HasSent reports whether a sent record exists for (assignment, type).
func (r *repository) HasSent(
	ctx context.Context,
	assignmentID int64,
	notificationType string,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&notificationModel.Record{}).
		Where("assignment_id = ? AND type = ? AND status = ?",
			assignmentID, notificationType, notificationModel.StatusSent).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByAssignment returns all records for an assignment, oldest first.
func (r *repository) ListByAssignment(
	ctx context.Context,
	assignmentID int64,
) ([]notificationModel.Record, error) {
	var records []notificationModel.Record
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
