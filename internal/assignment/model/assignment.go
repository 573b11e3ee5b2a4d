// Package model provides domain models for the assignment module.
package model

import (
	"time"
)

// Assignment review statuses. An assignment leaves the escalation state
// machine as soon as it leaves StatusPending.
const (
	StatusPending          = "pending"
	StatusApproved         = "approved"
	StatusChangesRequested = "changes_requested"
	StatusCommented        = "commented"
	StatusDismissed        = "dismissed"
)

// Escalation levels, monotonically increasing and never reset.
const (
	LevelNone      = "none"
	LevelReminded  = "reminded"
	LevelEscalated = "escalated"
)

// ReviewAssignment is one (pull request, reviewer) pair chosen by routing.
// The unique (pull_request_id, reviewer_id) constraint is the backstop
// against duplicate routing triggers. Matches the review_assignments table
// schema.
type ReviewAssignment struct {
	ID              int64      `gorm:"primaryKey;column:id;type:bigserial"                                                                  json:"id"`
	OrgID           string     `gorm:"column:org_id;type:varchar(255);not null;index:idx_assignments_org_id"                                json:"org_id"`
	PullRequestID   string     `gorm:"column:pull_request_id;type:varchar(255);not null;uniqueIndex:uq_assignments_pr_reviewer"             json:"pull_request_id"`
	ReviewerID      string     `gorm:"column:reviewer_id;type:varchar(255);not null;uniqueIndex:uq_assignments_pr_reviewer"                 json:"reviewer_id"`
	RuleID          *int64     `gorm:"column:rule_id;type:bigint"                                                                           json:"rule_id,omitempty"`
	Status          string     `gorm:"column:status;type:varchar(32);not null;index:idx_assignments_status"                                 json:"status"`
	EscalationLevel string     `gorm:"column:escalation_level;type:varchar(16);not null;index:idx_assignments_escalation_level"             json:"escalation_level"`
	AssignedAt      time.Time  `gorm:"column:assigned_at;type:timestamptz;not null"                                                         json:"assigned_at"`
	FirstNotifiedAt *time.Time `gorm:"column:first_notified_at;type:timestamptz"                                                            json:"first_notified_at,omitempty"`
	RemindedAt      *time.Time `gorm:"column:reminded_at;type:timestamptz"                                                                  json:"reminded_at,omitempty"`
	EscalatedAt     *time.Time `gorm:"column:escalated_at;type:timestamptz"                                                                 json:"escalated_at,omitempty"`
	CompletedAt     *time.Time `gorm:"column:completed_at;type:timestamptz"                                                                 json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM.
func (ReviewAssignment) TableName() string {
	return "review_assignments"
}

// StatusFromReviewState maps a provider review state to an assignment
// status. Unknown states map to empty string.
func StatusFromReviewState(state string) string {
	switch state {
	case "approved", "APPROVED":
		return StatusApproved
	case "changes_requested", "CHANGES_REQUESTED":
		return StatusChangesRequested
	case "commented", "COMMENTED":
		return StatusCommented
	case "dismissed", "DISMISSED":
		return StatusDismissed
	default:
		return ""
	}
}
