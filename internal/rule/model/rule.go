// Package model provides domain models for the rule module.
package model

import (
	"time"
)

// Condition type tags. Each tag selects one evaluator in the matcher.
const (
	ConditionFilePattern = "file_pattern"
	ConditionAuthor      = "author"
	ConditionBranch      = "branch"
	ConditionLabel       = "label"
	ConditionTimeWindow  = "time_window"
)

// Match modes for file_pattern and label conditions.
const (
	MatchAny = "any"
	MatchAll = "all"
)

// Author condition modes.
const (
	ModeInclude = "include"
	ModeExclude = "exclude"
)

// Branch condition targets.
const (
	TargetHead = "head"
	TargetBase = "base"
)

// Condition is one testable predicate within a routing rule. Type selects
// which of the optional field groups is meaningful; the rest stay zero.
type Condition struct {
	Type string `json:"type"`

	// file_pattern / branch: regex patterns as stored strings.
	Patterns []string `json:"patterns,omitempty"`
	// file_pattern / label: "any" or "all". Defaults to "any" when empty.
	MatchMode string `json:"match_mode,omitempty"`

	// author
	Usernames []string `json:"usernames,omitempty"`
	// author: "include" or "exclude". Defaults to "include" when empty.
	Mode string `json:"mode,omitempty"`

	// branch: "head" or "base". Defaults to "head" when empty.
	Target string `json:"target,omitempty"`

	// label
	Labels []string `json:"labels,omitempty"`

	// time_window
	Timezone  string `json:"timezone,omitempty"`
	Weekdays  []int  `json:"weekdays,omitempty"`
	StartHour int    `json:"start_hour,omitempty"`
	EndHour   int    `json:"end_hour,omitempty"`
}

// RoutingRule selects reviewers for pull requests whose attributes satisfy
// all of its conditions. Matches the routing_rules table schema.
type RoutingRule struct {
	ID          int64       `gorm:"primaryKey;column:id;type:bigserial"                                json:"id"`
	OrgID       string      `gorm:"column:org_id;type:varchar(255);not null;index:idx_rules_org_id"    json:"org_id"`
	Name        string      `gorm:"column:name;type:varchar(255);not null"                             json:"name"`
	Priority    int         `gorm:"column:priority;not null"                                           json:"priority"`
	IsActive    bool        `gorm:"column:is_active;not null;default:true"                             json:"is_active"`
	Conditions  []Condition `gorm:"column:conditions;type:jsonb;serializer:json"                       json:"conditions"`
	ReviewerIDs []string    `gorm:"column:reviewer_ids;type:jsonb;serializer:json"                     json:"reviewer_ids"`
	CreatedAt   time.Time   `gorm:"column:created_at;type:timestamptz;not null;default:now()"          json:"created_at"`
}

// TableName specifies the table name for GORM.
func (RoutingRule) TableName() string {
	return "routing_rules"
}
