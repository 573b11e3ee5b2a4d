// Package model provides domain models for the pullrequest module.
package model

import (
	"time"
)

// Pull request lifecycle actions carried by normalized events.
const (
	ActionOpened      = "opened"
	ActionReopened    = "reopened"
	ActionSynchronize = "synchronize"
	ActionClosed      = "closed"
)

// Review actions carried by normalized review events.
const (
	ReviewSubmitted = "submitted"
	ReviewDismissed = "dismissed"
)

// Event is the normalized fact about one pull request lifecycle change,
// produced once per inbound delivery that passes the idempotency gate.
// Immutable once constructed.
type Event struct {
	DeliveryID    string
	Action        string
	OrgID         string
	PullRequestID string
	RepoFullName  string
	Number        int
	Title         string
	Body          string
	Author        string
	HeadBranch    string
	BaseBranch    string
	Labels        []string
	ChangedFiles  []string
	Additions     int
	Deletions     int
	Merged        bool
	OccurredAt    time.Time
}

// ReviewEvent is the normalized fact about a submitted or dismissed review.
type ReviewEvent struct {
	DeliveryID    string
	Action        string
	OrgID         string
	PullRequestID string
	Reviewer      string
	// State is the provider review state: approved, changes_requested,
	// commented or dismissed.
	State string
}
