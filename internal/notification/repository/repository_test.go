package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/reviewflow/reviewflow/internal/notification/model"
)

type testNotification struct {
	ID                int64     `gorm:"primaryKey;autoIncrement;column:id"`
	OrgID             string    `gorm:"column:org_id;not null"`
	AssignmentID      int64     `gorm:"column:assignment_id;not null"`
	Channel           string    `gorm:"column:channel;not null"`
	Recipient         string    `gorm:"column:recipient;not null"`
	Type              string    `gorm:"column:type;not null"`
	Status            string    `gorm:"column:status;not null"`
	ExternalMessageID string    `gorm:"column:external_message_id"`
	Error             string    `gorm:"column:error"`
	CreatedAt         time.Time `gorm:"column:created_at"`
}

func (testNotification) TableName() string {
	return "notifications"
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&testNotification{})
	require.NoError(t, err)

	return db
}

func record(assignmentID int64, notificationType, status string) *model.Record {
	return &model.Record{
		OrgID:        "acme",
		AssignmentID: assignmentID,
		Channel:      "direct",
		Recipient:    "U123",
		Type:         notificationType,
		Status:       status,
	}
}

func TestRepository_HasSent(t *testing.T) {
	ctx := context.Background()

	t.Run("no records", func(t *testing.T) {
		db := setupTestDB(t)
		repo := New(db)

		sent, err := repo.HasSent(ctx, 9, model.TypeReminder)

		require.NoError(t, err)
		assert.False(t, sent)
	})

	t.Run("sent record found", func(t *testing.T) {
		db := setupTestDB(t)
		repo := New(db)
		require.NoError(t, repo.Append(ctx, record(9, model.TypeReminder, model.StatusSent)))

		sent, err := repo.HasSent(ctx, 9, model.TypeReminder)

		require.NoError(t, err)
		assert.True(t, sent)
	})

	t.Run("failed attempts do not count", func(t *testing.T) {
		db := setupTestDB(t)
		repo := New(db)
		failed := record(9, model.TypeReminder, model.StatusFailed)
		failed.Error = "chat unavailable"
		require.NoError(t, repo.Append(ctx, failed))

		sent, err := repo.HasSent(ctx, 9, model.TypeReminder)

		require.NoError(t, err)
		assert.False(t, sent)
	})

	t.Run("scoped by notification type", func(t *testing.T) {
		db := setupTestDB(t)
		repo := New(db)
		require.NoError(t, repo.Append(ctx, record(9, model.TypeNewPR, model.StatusSent)))

		sent, err := repo.HasSent(ctx, 9, model.TypeReminder)

		require.NoError(t, err)
		assert.False(t, sent)
	})
}

func TestRepository_ListByAssignment(t *testing.T) {
	ctx := context.Background()

	db := setupTestDB(t)
	repo := New(db)

	failed := record(9, model.TypeReminder, model.StatusFailed)
	failed.Error = "chat unavailable"
	require.NoError(t, repo.Append(ctx, failed))
	require.NoError(t, repo.Append(ctx, record(9, model.TypeReminder, model.StatusSent)))
	require.NoError(t, repo.Append(ctx, record(10, model.TypeNewPR, model.StatusSent)))

	records, err := repo.ListByAssignment(ctx, 9)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.StatusFailed, records[0].Status)
	assert.Equal(t, model.StatusSent, records[1].Status)
}
