// Package service provides the escalation scheduler: a periodic sweep that
// reminds reviewers of stale assignments and escalates ones that stay
// unanswered.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	assignmentModel "github.com/reviewflow/reviewflow/internal/assignment/model"
	assignmentRepository "github.com/reviewflow/reviewflow/internal/assignment/repository"
	notificationService "github.com/reviewflow/reviewflow/internal/notification/service"
	organizationModel "github.com/reviewflow/reviewflow/internal/organization/model"
	organizationRepository "github.com/reviewflow/reviewflow/internal/organization/repository"
	pullrequestModel "github.com/reviewflow/reviewflow/internal/pullrequest/model"
	pullrequestRepository "github.com/reviewflow/reviewflow/internal/pullrequest/repository"
)

// Scheduler advances pending assignments through none → reminded →
// escalated on a fixed cadence. Each transition is exactly-once: the update
// that stamps the guard timestamp is conditioned on it still being null, so
// overlapping or repeated sweeps cannot double-fire a notification.
type Scheduler struct {
	assignments   assignmentRepository.Repository
	prs           pullrequestRepository.Repository
	orgs          organizationRepository.Repository
	notifier      notificationService.Service
	reminderAfter time.Duration
	escalateAfter time.Duration
	interval      time.Duration
	logger        *zap.SugaredLogger
	now           func() time.Time
}

// New creates a new escalation scheduler instance.
func New(
	assignments assignmentRepository.Repository,
	prs pullrequestRepository.Repository,
	orgs organizationRepository.Repository,
	notifier notificationService.Service,
	reminderAfter, escalateAfter, interval time.Duration,
	logger *zap.SugaredLogger,
) *Scheduler {
	return &Scheduler{
		assignments:   assignments,
		prs:           prs,
		orgs:          orgs,
		notifier:      notifier,
		reminderAfter: reminderAfter,
		escalateAfter: escalateAfter,
		interval:      interval,
		logger:        logger,
		now:           time.Now,
	}
}

// Run sweeps immediately and then on every tick until the context is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("escalation scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one reminder pass and one escalation pass. Assignments are
// processed independently; a failure on one never aborts the batch.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()
	reminded := s.remindPass(ctx, now)
	escalated := s.escalatePass(ctx, now)

	if reminded > 0 || escalated > 0 {
		s.logger.Infow("escalation sweep finished",
			"reminded", reminded,
			"escalated", escalated,
		)
	}
}

// remindPass advances due assignments from none to reminded.
func (s *Scheduler) remindPass(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-s.reminderAfter)
	due, err := s.assignments.ListDueForReminder(ctx, cutoff)
	if err != nil {
		s.logger.Errorw("failed to list assignments due for reminder", "error", err)
		return 0
	}

	transitioned := 0
	for i := range due {
		if s.remind(ctx, &due[i]) {
			transitioned++
		}
	}
	return transitioned
}

// remind sends the reminder for one assignment; the dispatcher performs the
// guarded level transition after a successful send.
func (s *Scheduler) remind(ctx context.Context, assignment *assignmentModel.ReviewAssignment) bool {
	pr, reviewer, err := s.loadTargets(ctx, assignment)
	if err != nil {
		s.logger.Errorw("skipping reminder",
			"assignment_id", assignment.ID,
			"error", err,
		)
		return false
	}

	if err := s.notifier.SendReminder(ctx, assignment, pr, reviewer); err != nil {
		s.logger.Errorw("failed to send reminder",
			"assignment_id", assignment.ID,
			"reviewer_id", assignment.ReviewerID,
			"error", err,
		)
		return false
	}
	return true
}

// escalatePass advances due assignments from reminded to escalated.
func (s *Scheduler) escalatePass(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-s.escalateAfter)
	due, err := s.assignments.ListDueForEscalation(ctx, cutoff)
	if err != nil {
		s.logger.Errorw("failed to list assignments due for escalation", "error", err)
		return 0
	}

	transitioned := 0
	for i := range due {
		if s.escalate(ctx, &due[i]) {
			transitioned++
		}
	}
	return transitioned
}

// escalate handles one assignment. When the organization has no team lead
// configured the level is still recorded as escalated, so the sweep does
// not rescan the assignment forever, and the notification step is skipped
// with a warning.
func (s *Scheduler) escalate(ctx context.Context, assignment *assignmentModel.ReviewAssignment) bool {
	pr, err := s.prs.GetByID(ctx, assignment.PullRequestID)
	if err != nil {
		s.logger.Errorw("skipping escalation",
			"assignment_id", assignment.ID,
			"error", err,
		)
		return false
	}

	org, err := s.orgs.GetByID(ctx, assignment.OrgID)
	if err != nil {
		s.logger.Errorw("skipping escalation",
			"assignment_id", assignment.ID,
			"org_id", assignment.OrgID,
			"error", err,
		)
		return false
	}

	teamLead, err := s.teamLead(ctx, org)
	if err != nil {
		s.logger.Errorw("skipping escalation",
			"assignment_id", assignment.ID,
			"org_id", org.OrgID,
			"error", err,
		)
		return false
	}

	if teamLead == nil {
		s.logger.Warnw("no team lead configured, recording escalation without notification",
			"assignment_id", assignment.ID,
			"org_id", org.OrgID,
		)
		advanced, markErr := s.assignments.MarkEscalated(ctx, assignment.ID, s.now())
		if markErr != nil {
			s.logger.Errorw("failed to record escalation",
				"assignment_id", assignment.ID,
				"error", markErr,
			)
			return false
		}
		return advanced
	}

	if err := s.notifier.SendEscalation(ctx, assignment, pr, org, teamLead); err != nil {
		s.logger.Errorw("failed to send escalation",
			"assignment_id", assignment.ID,
			"org_id", org.OrgID,
			"error", err,
		)
		return false
	}
	return true
}

// loadTargets resolves the pull request and reviewer for a notification.
func (s *Scheduler) loadTargets(
	ctx context.Context,
	assignment *assignmentModel.ReviewAssignment,
) (*pullrequestModel.PullRequest, *organizationModel.Reviewer, error) {
	pr, err := s.prs.GetByID(ctx, assignment.PullRequestID)
	if err != nil {
		return nil, nil, err
	}

	reviewer, err := s.orgs.GetReviewer(ctx, assignment.ReviewerID)
	if err != nil {
		return nil, nil, err
	}

	return pr, reviewer, nil
}

// teamLead resolves the organization's team lead, nil when none configured.
func (s *Scheduler) teamLead(
	ctx context.Context,
	org *organizationModel.Organization,
) (*organizationModel.Reviewer, error) {
	if org.TeamLeadID == nil || *org.TeamLeadID == "" {
		return nil, nil
	}

	teamLead, err := s.orgs.GetReviewer(ctx, *org.TeamLeadID)
	if err != nil {
		if errors.Is(err, organizationModel.ErrReviewerNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return teamLead, nil
}
