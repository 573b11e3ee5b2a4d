// Package repository provides the dedup ledger for the ingest module.
package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	ingestModel "github.com/reviewflow/reviewflow/internal/ingest/model"
)

// ErrAlreadyRecorded indicates a concurrent delivery won the ledger insert.
var ErrAlreadyRecorded = errors.New("delivery already recorded")

// Repository defines the interface for dedup ledger operations.
type Repository interface {
	// Seen reports whether a delivery id has already been recorded.
	Seen(ctx context.Context, deliveryID string) (bool, error)

	// Record writes the ledger entry for a delivery. Returns
	// ErrAlreadyRecorded when another delivery with the same id won the
	// insert race.
	Record(ctx context.Context, event *ingestModel.ProcessedEvent) error
}

type repository struct {
	db *gorm.DB
}

// New creates a new ingest ledger repository instance.
func New(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Seen reports whether a delivery id has already been recorded.
func (r *repository) Seen(ctx context.Context, deliveryID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ingestModel.ProcessedEvent{}).
		Where("delivery_id = ?", deliveryID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Record writes the ledger entry for a delivery.
func (r *repository) Record(ctx context.Context, event *ingestModel.ProcessedEvent) error {
	err := r.db.WithContext(ctx).Create(event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "duplicate key") ||
			strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrAlreadyRecorded
		}
		return err
	}
	return nil
}
