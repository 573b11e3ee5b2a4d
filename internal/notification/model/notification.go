// Package model provides domain models for the notification module.
package model

import (
	"time"
)

// Notification message types.
const (
	TypeNewPR      = "new_pr"
	TypeReminder   = "reminder"
	TypeEscalation = "escalation"
)

// Delivery statuses.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Record is one append-only notification delivery attempt, used for audit
// and as an idempotency signal. Write-once per attempt.
// Matches the notifications table schema.
type Record struct {
	ID                int64     `gorm:"primaryKey;column:id;type:bigserial"                                          json:"id"`
	OrgID             string    `gorm:"column:org_id;type:varchar(255);not null;index:idx_notifications_org_id"      json:"org_id"`
	AssignmentID      int64     `gorm:"column:assignment_id;type:bigint;not null;index:idx_notifications_assignment" json:"assignment_id"`
	Channel           string    `gorm:"column:channel;type:varchar(32);not null"                                     json:"channel"`
	Recipient         string    `gorm:"column:recipient;type:varchar(255);not null"                                  json:"recipient"`
	Type              string    `gorm:"column:type;type:varchar(32);not null"                                        json:"type"`
	Status            string    `gorm:"column:status;type:varchar(16);not null"                                      json:"status"`
	ExternalMessageID string    `gorm:"column:external_message_id;type:varchar(255)"                                 json:"external_message_id,omitempty"`
	Error             string    `gorm:"column:error;type:text"                                                       json:"error,omitempty"`
	CreatedAt         time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"                    json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Record) TableName() string {
	return "notifications"
}
