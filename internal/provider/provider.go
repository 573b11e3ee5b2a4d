// Package provider defines the external collaborator interfaces the engine
// consumes: the VCS hosting the pull requests and the messenger delivering
// notifications. Implementations live in subpackages and are injected at
// wiring time.
package provider

import (
	"context"
	"time"
)

// PullRequest is the provider's view of a pull request.
type PullRequest struct {
	RepoFullName string
	Number       int
	Title        string
	Author       string
	State        string
	Merged       bool
	HeadBranch   string
	BaseBranch   string
	Labels       []string
	CreatedAt    time.Time
}

// VCS is the version control provider the engine reads PR details from and
// requests reviews through.
type VCS interface {
	// ListChangedFiles returns the paths changed by a pull request.
	ListChangedFiles(ctx context.Context, repoFullName string, number int) ([]string, error)

	// RequestReviewers asks the provider to request reviews from the given
	// usernames.
	RequestReviewers(ctx context.Context, repoFullName string, number int, usernames []string) error

	// GetPullRequest fetches current pull request details.
	GetPullRequest(ctx context.Context, repoFullName string, number int) (*PullRequest, error)
}

// Messenger delivers outbound chat notifications.
type Messenger interface {
	// SendDirect sends a direct message to a chat user and returns the
	// external message id.
	SendDirect(ctx context.Context, userID, text string) (string, error)

	// SendToChannel sends a message to a channel and returns the external
	// message id.
	SendToChannel(ctx context.Context, channelID, text string) (string, error)
}
