package model

import (
	"time"
)

// Pull request states.
const (
	StateOpen   = "OPEN"
	StateClosed = "CLOSED"
)

// PullRequest mirrors the provider's view of a pull request so the
// escalation sweep can check openness without a network call. Kept current
// by opened/reopened/synchronize/closed webhook deliveries.
// Matches the pull_requests table schema.
type PullRequest struct {
	PullRequestID string     `gorm:"primaryKey;column:pull_request_id;type:varchar(255)"                             json:"pull_request_id"`
	OrgID         string     `gorm:"column:org_id;type:varchar(255);not null;index:idx_pull_requests_org_id"         json:"org_id"`
	RepoFullName  string     `gorm:"column:repo_full_name;type:varchar(255);not null"                                json:"repo_full_name"`
	Number        int        `gorm:"column:number;not null"                                                          json:"number"`
	Title         string     `gorm:"column:title;type:varchar(512);not null"                                         json:"title"`
	Author        string     `gorm:"column:author;type:varchar(255);not null"                                        json:"author"`
	HeadBranch    string     `gorm:"column:head_branch;type:varchar(255);not null"                                   json:"head_branch"`
	BaseBranch    string     `gorm:"column:base_branch;type:varchar(255);not null"                                   json:"base_branch"`
	State         string     `gorm:"column:state;type:varchar(16);not null;index:idx_pull_requests_state"            json:"state"`
	Merged        bool       `gorm:"column:merged;not null;default:false"                                            json:"merged"`
	OpenedAt      time.Time  `gorm:"column:opened_at;type:timestamptz;not null"                                      json:"opened_at"`
	ClosedAt      *time.Time `gorm:"column:closed_at;type:timestamptz"                                               json:"closed_at,omitempty"`
}

// TableName specifies the table name for GORM.
func (PullRequest) TableName() string {
	return "pull_requests"
}

// IsOpen reports whether the pull request is still open.
func (p *PullRequest) IsOpen() bool {
	return p.State == StateOpen
}
