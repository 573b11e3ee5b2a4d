// Package model provides domain models for the ingest module.
package model

import (
	"time"
)

// Ingest statuses returned to webhook callers.
const (
	StatusAccepted = "accepted"
	StatusIgnored  = "ignored"
	StatusRejected = "rejected"
)

// Rejection and ignore reasons.
const (
	ReasonBadSignature      = "bad_signature"
	ReasonBadHeaders        = "bad_headers"
	ReasonBadPayload        = "bad_payload"
	ReasonDuplicateDelivery = "duplicate_delivery"
	ReasonUnsupportedEvent  = "unsupported_event"
	ReasonUnsupportedAction = "unsupported_action"
	ReasonUnknownOrg        = "unknown_org"
)

// Result is the terse structured outcome of one inbound delivery.
type Result struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ProcessedEvent is the dedup ledger entry for one inbound delivery,
// written once per processed or intentionally ignored delivery and checked
// before any processing begins. Matches the processed_events table schema.
type ProcessedEvent struct {
	DeliveryID  string    `gorm:"primaryKey;column:delivery_id;type:varchar(255)"           json:"delivery_id"`
	EventType   string    `gorm:"column:event_type;type:varchar(64);not null"               json:"event_type"`
	Action      string    `gorm:"column:action;type:varchar(64)"                            json:"action"`
	Ignored     bool      `gorm:"column:ignored;not null;default:false"                     json:"ignored"`
	ProcessedAt time.Time `gorm:"column:processed_at;type:timestamptz;not null"             json:"processed_at"`
}

// TableName specifies the table name for GORM.
func (ProcessedEvent) TableName() string {
	return "processed_events"
}
