// Package service provides business logic for review assignments: creating
// them from routing results and applying inbound review verdicts.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	assignmentModel "github.com/reviewflow/reviewflow/internal/assignment/model"
	"github.com/reviewflow/reviewflow/internal/assignment/repository"
	notificationService "github.com/reviewflow/reviewflow/internal/notification/service"
	organizationModel "github.com/reviewflow/reviewflow/internal/organization/model"
	organizationRepository "github.com/reviewflow/reviewflow/internal/organization/repository"
	"github.com/reviewflow/reviewflow/internal/provider"
	pullrequestModel "github.com/reviewflow/reviewflow/internal/pullrequest/model"
	pullrequestRepository "github.com/reviewflow/reviewflow/internal/pullrequest/repository"
	routingService "github.com/reviewflow/reviewflow/internal/routing/service"
)

// Service defines the interface for assignment business logic operations.
type Service interface {
	// Assign creates one pending assignment per routed reviewer, requests
	// reviews from the VCS provider, and dispatches one new-PR notification
	// per created assignment. Returns the ids of assignments actually
	// created; duplicates are skipped, not errors.
	Assign(
		ctx context.Context,
		pr *pullrequestModel.PullRequest,
		routing *routingService.Result,
	) ([]int64, error)

	// ApplyReview maps an inbound review verdict onto the reviewer's
	// assignment status. completed_at is stamped only for approvals.
	ApplyReview(ctx context.Context, review *pullrequestModel.ReviewEvent) error
}

type service struct {
	assignments repository.Repository
	orgs        organizationRepository.Repository
	prs         pullrequestRepository.Repository
	vcs         provider.VCS
	notifier    notificationService.Service
	logger      *zap.SugaredLogger
	now         func() time.Time
}

// New creates a new assignment service instance.
func New(
	assignments repository.Repository,
	orgs organizationRepository.Repository,
	prs pullrequestRepository.Repository,
	vcs provider.VCS,
	notifier notificationService.Service,
	logger *zap.SugaredLogger,
) Service {
	return &service{
		assignments: assignments,
		orgs:        orgs,
		prs:         prs,
		vcs:         vcs,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// Assign creates assignments for the routed reviewers.
func (s *service) Assign(
	ctx context.Context,
	pr *pullrequestModel.PullRequest,
	routing *routingService.Result,
) ([]int64, error) {
	if len(routing.Reviewers) == 0 {
		s.logger.Warnw("no reviewers to assign",
			"pull_request_id", pr.PullRequestID,
			"reason", routing.Reason,
		)
		return nil, nil
	}

	var ruleID *int64
	if routing.Rule != nil {
		ruleID = &routing.Rule.ID
	}

	created := make([]*assignmentModel.ReviewAssignment, 0, len(routing.Reviewers))
	for i := range routing.Reviewers {
		reviewer := &routing.Reviewers[i]
		assignment := &assignmentModel.ReviewAssignment{
			OrgID:           pr.OrgID,
			PullRequestID:   pr.PullRequestID,
			ReviewerID:      reviewer.ReviewerID,
			RuleID:          ruleID,
			Status:          assignmentModel.StatusPending,
			EscalationLevel: assignmentModel.LevelNone,
			AssignedAt:      s.now(),
		}

		err := s.assignments.Create(ctx, assignment)
		if err != nil {
			if errors.Is(err, assignmentModel.ErrAssignmentExists) {
				// Re-delivered routing trigger; the existing row wins.
				continue
			}
			return nil, err
		}
		created = append(created, assignment)
	}

	if len(created) == 0 {
		return nil, nil
	}

	s.requestReviewers(ctx, pr, routing.Reviewers)
	s.notifyAssigned(ctx, pr, created, routing.Reviewers)

	ids := make([]int64, 0, len(created))
	for _, assignment := range created {
		ids = append(ids, assignment.ID)
	}
	return ids, nil
}

// requestReviewers asks the VCS provider to request reviews. The internal
// assignment records are the source of truth for escalation, so a provider
// failure is logged and swallowed.
func (s *service) requestReviewers(
	ctx context.Context,
	pr *pullrequestModel.PullRequest,
	reviewers []organizationModel.Reviewer,
) {
	usernames := make([]string, 0, len(reviewers))
	for _, reviewer := range reviewers {
		usernames = append(usernames, reviewer.Username)
	}

	if err := s.vcs.RequestReviewers(ctx, pr.RepoFullName, pr.Number, usernames); err != nil {
		s.logger.Warnw("failed to request reviewers from VCS provider",
			"pull_request_id", pr.PullRequestID,
			"reviewers", usernames,
			"error", err,
		)
	}
}

// notifyAssigned dispatches one new-PR notification per created assignment.
// Delivery failures are logged; the assignment stands regardless.
func (s *service) notifyAssigned(
	ctx context.Context,
	pr *pullrequestModel.PullRequest,
	created []*assignmentModel.ReviewAssignment,
	reviewers []organizationModel.Reviewer,
) {
	byID := make(map[string]*organizationModel.Reviewer, len(reviewers))
	for i := range reviewers {
		byID[reviewers[i].ReviewerID] = &reviewers[i]
	}

	for _, assignment := range created {
		reviewer, ok := byID[assignment.ReviewerID]
		if !ok {
			continue
		}
		if err := s.notifier.SendNewPR(ctx, assignment, pr, reviewer); err != nil {
			s.logger.Warnw("failed to send new PR notification",
				"assignment_id", assignment.ID,
				"reviewer_id", assignment.ReviewerID,
				"error", err,
			)
		}
	}
}

// ApplyReview maps an inbound review verdict onto the reviewer's assignment.
func (s *service) ApplyReview(
	ctx context.Context,
	review *pullrequestModel.ReviewEvent,
) error {
	status := assignmentModel.StatusFromReviewState(review.State)
	if review.Action == pullrequestModel.ReviewDismissed {
		status = assignmentModel.StatusDismissed
	}
	if status == "" {
		return assignmentModel.ErrUnknownReviewState
	}

	assignment, err := s.findByReviewer(ctx, review.PullRequestID, review.Reviewer)
	if err != nil {
		return err
	}

	var completedAt *time.Time
	if status == assignmentModel.StatusApproved {
		now := s.now()
		completedAt = &now
	}

	if err := s.assignments.UpdateStatus(ctx, assignment.ID, status, completedAt); err != nil {
		return err
	}

	s.logger.Infow("assignment status updated from review",
		"assignment_id", assignment.ID,
		"pull_request_id", review.PullRequestID,
		"reviewer", review.Reviewer,
		"status", status,
	)
	return nil
}

// findByReviewer locates the assignment whose reviewer matches the review's
// author, by reviewer id or username (case-insensitive), since the provider
// reports usernames while assignments are keyed by reviewer id.
func (s *service) findByReviewer(
	ctx context.Context,
	prID, reviewer string,
) (*assignmentModel.ReviewAssignment, error) {
	if assignment, err := s.assignments.GetByPullRequestAndReviewer(ctx, prID, reviewer); err == nil {
		return assignment, nil
	} else if !errors.Is(err, assignmentModel.ErrAssignmentNotFound) {
		return nil, err
	}

	assignments, err := s.assignments.ListByPullRequest(ctx, prID)
	if err != nil {
		return nil, err
	}

	for i := range assignments {
		record, err := s.orgs.GetReviewer(ctx, assignments[i].ReviewerID)
		if err != nil {
			if errors.Is(err, organizationModel.ErrReviewerNotFound) {
				continue
			}
			return nil, err
		}
		if strings.EqualFold(record.Username, reviewer) {
			return &assignments[i], nil
		}
	}

	return nil, assignmentModel.ErrAssignmentNotFound
}
