// Package model provides domain models for the organization module.
package model

import (
	"time"
)

// Organization represents a tenant that owns repositories, rules, and reviewers.
// Matches the organizations table schema.
type Organization struct {
	OrgID             string    `gorm:"primaryKey;column:org_id;type:varchar(255)"           json:"org_id"`
	Name              string    `gorm:"column:name;type:varchar(255);not null"               json:"name"`
	DefaultReviewerID *string   `gorm:"column:default_reviewer_id;type:varchar(255)"         json:"default_reviewer_id,omitempty"`
	TeamLeadID        *string   `gorm:"column:team_lead_id;type:varchar(255)"                json:"team_lead_id,omitempty"`
	EscalationChannel *string   `gorm:"column:escalation_channel;type:varchar(255)"          json:"escalation_channel,omitempty"`
	TeamChannel       *string   `gorm:"column:team_channel;type:varchar(255)"                json:"team_channel,omitempty"`
	CreatedAt         time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Organization) TableName() string {
	return "organizations"
}

// Reviewer represents a person who can be assigned to review pull requests.
// Matches the reviewers table schema.
type Reviewer struct {
	ReviewerID string    `gorm:"primaryKey;column:reviewer_id;type:varchar(255)"                        json:"reviewer_id"`
	OrgID      string    `gorm:"column:org_id;type:varchar(255);not null;index:idx_reviewers_org_id"    json:"org_id"`
	Username   string    `gorm:"column:username;type:varchar(255);not null"                             json:"username"`
	ChatUserID string    `gorm:"column:chat_user_id;type:varchar(255)"                                  json:"chat_user_id"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"                                 json:"is_active"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"              json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Reviewer) TableName() string {
	return "reviewers"
}
