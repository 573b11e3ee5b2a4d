// Package service provides the notification dispatcher: one message per
// (assignment, notification type) through the messaging provider, with
// bounded retries and a persisted delivery record.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	assignmentModel "github.com/reviewflow/reviewflow/internal/assignment/model"
	assignmentRepository "github.com/reviewflow/reviewflow/internal/assignment/repository"
	notificationModel "github.com/reviewflow/reviewflow/internal/notification/model"
	"github.com/reviewflow/reviewflow/internal/notification/repository"
	organizationModel "github.com/reviewflow/reviewflow/internal/organization/model"
	"github.com/reviewflow/reviewflow/internal/provider"
	pullrequestModel "github.com/reviewflow/reviewflow/internal/pullrequest/model"
	"github.com/reviewflow/reviewflow/pkg/retry"
)

// Notification channels recorded in the ledger.
const (
	ChannelDirect  = "direct"
	ChannelChannel = "channel"
)

// Service defines the interface for notification dispatch operations.
//
// On success each method writes a sent record and stamps the assignment's
// guard timestamp so a later sweep does not refire. On failure it writes a
// failed record and returns the error; the guard timestamp stays unset so
// the next sweep retries the transition.
type Service interface {
	// SendNewPR notifies a reviewer of a fresh assignment.
	SendNewPR(
		ctx context.Context,
		assignment *assignmentModel.ReviewAssignment,
		pr *pullrequestModel.PullRequest,
		reviewer *organizationModel.Reviewer,
	) error

	// SendReminder reminds a reviewer of a stale assignment and advances the
	// assignment to level reminded.
	SendReminder(
		ctx context.Context,
		assignment *assignmentModel.ReviewAssignment,
		pr *pullrequestModel.PullRequest,
		reviewer *organizationModel.Reviewer,
	) error

	// SendEscalation notifies the organization's escalation channel and
	// advances the assignment to level escalated.
	SendEscalation(
		ctx context.Context,
		assignment *assignmentModel.ReviewAssignment,
		pr *pullrequestModel.PullRequest,
		org *organizationModel.Organization,
		teamLead *organizationModel.Reviewer,
	) error
}

type service struct {
	records     repository.Repository
	assignments assignmentRepository.Repository
	messenger   provider.Messenger
	retryCfg    retry.Config
	logger      *zap.SugaredLogger
	now         func() time.Time
}

// New creates a new notification service instance.
func New(
	records repository.Repository,
	assignments assignmentRepository.Repository,
	messenger provider.Messenger,
	retryCfg retry.Config,
	logger *zap.SugaredLogger,
) Service {
	return &service{
		records:     records,
		assignments: assignments,
		messenger:   messenger,
		retryCfg:    retryCfg,
		logger:      logger,
		now:         time.Now,
	}
}

// SendNewPR notifies a reviewer of a fresh assignment.
func (s *service) SendNewPR(
	ctx context.Context,
	assignment *assignmentModel.ReviewAssignment,
	pr *pullrequestModel.PullRequest,
	reviewer *organizationModel.Reviewer,
) error {
	text := fmt.Sprintf("You were assigned to review %s#%d: %s",
		pr.RepoFullName, pr.Number, pr.Title)

	return s.sendDirect(ctx, assignment, reviewer, notificationModel.TypeNewPR, text,
		func() (bool, error) {
			return s.assignments.MarkFirstNotified(ctx, assignment.ID, s.now())
		})
}

// SendReminder reminds a reviewer of a stale assignment.
func (s *service) SendReminder(
	ctx context.Context,
	assignment *assignmentModel.ReviewAssignment,
	pr *pullrequestModel.PullRequest,
	reviewer *organizationModel.Reviewer,
) error {
	age := s.now().Sub(assignment.AssignedAt).Round(time.Hour)
	text := fmt.Sprintf("Reminder: %s#%d (%s) has been waiting for your review for %s",
		pr.RepoFullName, pr.Number, pr.Title, age)

	return s.sendDirect(ctx, assignment, reviewer, notificationModel.TypeReminder, text,
		func() (bool, error) {
			return s.assignments.MarkReminded(ctx, assignment.ID, s.now())
		})
}

// SendEscalation notifies the organization's escalation channel.
func (s *service) SendEscalation(
	ctx context.Context,
	assignment *assignmentModel.ReviewAssignment,
	pr *pullrequestModel.PullRequest,
	org *organizationModel.Organization,
	teamLead *organizationModel.Reviewer,
) error {
	channel := s.escalationChannel(org)
	if channel == "" {
		return fmt.Errorf("organization %s has no escalation or team channel configured", org.OrgID)
	}

	already, err := s.records.HasSent(ctx, assignment.ID, notificationModel.TypeEscalation)
	if err != nil {
		return err
	}
	if already {
		// The message went out on an earlier attempt but the level stamp may
		// have failed after it. Re-run the guarded stamp so the assignment
		// does not stay listed as due forever; the IS NULL guard makes this
		// a no-op when the transition already completed.
		_, err := s.assignments.MarkEscalated(ctx, assignment.ID, s.now())
		return err
	}

	text := fmt.Sprintf("Escalation: %s#%d (%s) is still unreviewed, cc %s",
		pr.RepoFullName, pr.Number, pr.Title, teamLead.Username)

	externalID, sendErr := retry.DoWithResult(ctx, s.retryCfg, func() (string, error) {
		return s.messenger.SendToChannel(ctx, channel, text)
	})

	s.appendRecord(ctx, assignment, ChannelChannel, channel,
		notificationModel.TypeEscalation, externalID, sendErr)

	if sendErr != nil {
		return sendErr
	}

	if _, err := s.assignments.MarkEscalated(ctx, assignment.ID, s.now()); err != nil {
		return err
	}
	return nil
}

// sendDirect delivers a direct message for one notification type and runs
// the stamp function on success.
func (s *service) sendDirect(
	ctx context.Context,
	assignment *assignmentModel.ReviewAssignment,
	reviewer *organizationModel.Reviewer,
	notificationType, text string,
	stamp func() (bool, error),
) error {
	already, err := s.records.HasSent(ctx, assignment.ID, notificationType)
	if err != nil {
		return err
	}
	if already {
		// Delivered on an earlier attempt; finish the guarded stamp in case
		// it failed after the send. The IS NULL guard keeps this a no-op
		// once the transition has completed.
		_, err := stamp()
		return err
	}

	target := reviewer.ChatUserID
	if target == "" {
		target = reviewer.Username
	}

	externalID, sendErr := retry.DoWithResult(ctx, s.retryCfg, func() (string, error) {
		return s.messenger.SendDirect(ctx, target, text)
	})

	s.appendRecord(ctx, assignment, ChannelDirect, target, notificationType, externalID, sendErr)

	if sendErr != nil {
		return sendErr
	}

	if _, err := stamp(); err != nil {
		return err
	}
	return nil
}

// appendRecord writes one delivery-attempt record; ledger write failures are
// logged, not propagated, so a flaky audit trail cannot mask a delivered
// message.
func (s *service) appendRecord(
	ctx context.Context,
	assignment *assignmentModel.ReviewAssignment,
	channel, recipient, notificationType, externalID string,
	sendErr error,
) {
	record := &notificationModel.Record{
		OrgID:             assignment.OrgID,
		AssignmentID:      assignment.ID,
		Channel:           channel,
		Recipient:         recipient,
		Type:              notificationType,
		Status:            notificationModel.StatusSent,
		ExternalMessageID: externalID,
	}
	if sendErr != nil {
		record.Status = notificationModel.StatusFailed
		record.Error = sendErr.Error()
	}

	if err := s.records.Append(ctx, record); err != nil {
		s.logger.Errorw("failed to append notification record",
			"assignment_id", assignment.ID,
			"type", notificationType,
			"error", err,
		)
	}
}

// escalationChannel picks the configured escalation channel, falling back to
// the team channel.
func (s *service) escalationChannel(org *organizationModel.Organization) string {
	if org.EscalationChannel != nil && *org.EscalationChannel != "" {
		return *org.EscalationChannel
	}
	if org.TeamChannel != nil && *org.TeamChannel != "" {
		return *org.TeamChannel
	}
	return ""
}
