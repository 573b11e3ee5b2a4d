// Package service provides the event ingestion gate: webhook authenticity
// verification, delivery deduplication, payload normalization, and the
// handoff to routing and assignment.
package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	assignmentModel "github.com/reviewflow/reviewflow/internal/assignment/model"
	assignmentService "github.com/reviewflow/reviewflow/internal/assignment/service"
	ingestModel "github.com/reviewflow/reviewflow/internal/ingest/model"
	"github.com/reviewflow/reviewflow/internal/ingest/repository"
	organizationModel "github.com/reviewflow/reviewflow/internal/organization/model"
	organizationRepository "github.com/reviewflow/reviewflow/internal/organization/repository"
	"github.com/reviewflow/reviewflow/internal/provider"
	pullrequestModel "github.com/reviewflow/reviewflow/internal/pullrequest/model"
	pullrequestRepository "github.com/reviewflow/reviewflow/internal/pullrequest/repository"
	"github.com/reviewflow/reviewflow/internal/rule/match"
	routingService "github.com/reviewflow/reviewflow/internal/routing/service"
)

// Webhook header names (GitHub-style).
const (
	HeaderDelivery  = "X-GitHub-Delivery"
	HeaderEvent     = "X-GitHub-Event"
	HeaderSignature = "X-Hub-Signature-256"
)

// Supported webhook event types.
const (
	EventPullRequest       = "pull_request"
	EventPullRequestReview = "pull_request_review"
)

// Headers carries the webhook headers the gate inspects.
type Headers struct {
	DeliveryID string
	EventType  string
	Signature  string
}

// Service defines the interface for ingestion operations.
type Service interface {
	// Ingest verifies, deduplicates, normalizes, and processes one inbound
	// webhook delivery. It never returns an error for bad input; the Result
	// tells the caller whether the delivery was accepted, ignored, or
	// rejected. An error return means processing failed transiently and the
	// sender should retry.
	Ingest(ctx context.Context, payload []byte, headers Headers) (*ingestModel.Result, error)
}

type service struct {
	ledger      repository.Repository
	prs         pullrequestRepository.Repository
	orgs        organizationRepository.Repository
	router      routingService.Service
	assignments assignmentService.Service
	vcs         provider.VCS
	secret      []byte
	logger      *zap.SugaredLogger
	now         func() time.Time
}

// New creates a new ingest service instance.
func New(
	ledger repository.Repository,
	prs pullrequestRepository.Repository,
	orgs organizationRepository.Repository,
	router routingService.Service,
	assignments assignmentService.Service,
	vcs provider.VCS,
	secret string,
	logger *zap.SugaredLogger,
) Service {
	return &service{
		ledger:      ledger,
		prs:         prs,
		orgs:        orgs,
		router:      router,
		assignments: assignments,
		vcs:         vcs,
		secret:      []byte(secret),
		logger:      logger,
		now:         time.Now,
	}
}

// Ingest processes one inbound webhook delivery.
func (s *service) Ingest(
	ctx context.Context,
	payload []byte,
	headers Headers,
) (*ingestModel.Result, error) {
	if headers.DeliveryID == "" || headers.EventType == "" {
		return rejected(ingestModel.ReasonBadHeaders), nil
	}

	if !s.verifySignature(payload, headers.Signature) {
		// Minimal detail on purpose: no hint about what part of the
		// signature check failed.
		s.logger.Warnw("webhook signature verification failed",
			"delivery_id", headers.DeliveryID,
		)
		return rejected(ingestModel.ReasonBadSignature), nil
	}

	// Dedup check comes before all other work: webhook senders retry on
	// timeout, so duplicates must be cheap.
	seen, err := s.ledger.Seen(ctx, headers.DeliveryID)
	if err != nil {
		return nil, err
	}
	if seen {
		return ignored(ingestModel.ReasonDuplicateDelivery), nil
	}

	switch headers.EventType {
	case EventPullRequest:
		return s.ingestPullRequest(ctx, payload, headers)
	case EventPullRequestReview:
		return s.ingestReview(ctx, payload, headers)
	default:
		// Recorded as ignored so a retried delivery of an unsupported type
		// short-circuits at the dedup check.
		if err := s.record(ctx, headers, "", true); err != nil {
			return nil, err
		}
		return ignored(ingestModel.ReasonUnsupportedEvent), nil
	}
}

// verifySignature checks the HMAC-SHA256 signature over the raw payload.
func (s *service) verifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// ingestPullRequest handles a pull_request lifecycle delivery.
func (s *service) ingestPullRequest(
	ctx context.Context,
	payload []byte,
	headers Headers,
) (*ingestModel.Result, error) {
	event, err := s.normalizePullRequest(payload, headers.DeliveryID)
	if err != nil {
		s.logger.Warnw("malformed pull_request payload",
			"delivery_id", headers.DeliveryID,
			"error", err,
		)
		return rejected(ingestModel.ReasonBadPayload), nil
	}

	switch event.Action {
	case pullrequestModel.ActionOpened, pullrequestModel.ActionReopened,
		pullrequestModel.ActionSynchronize, pullrequestModel.ActionClosed:
	default:
		if err := s.record(ctx, headers, event.Action, true); err != nil {
			return nil, err
		}
		return ignored(ingestModel.ReasonUnsupportedAction), nil
	}

	org, err := s.orgs.GetByID(ctx, event.OrgID)
	if err != nil {
		if errors.Is(err, organizationModel.ErrOrganizationNotFound) {
			if recordErr := s.record(ctx, headers, event.Action, true); recordErr != nil {
				return nil, recordErr
			}
			return ignored(ingestModel.ReasonUnknownOrg), nil
		}
		return nil, err
	}

	// The ledger write happens before any downstream effect: once the
	// delivery is marked seen, a sender retry is a no-op, and downstream
	// stages are idempotent in their own right.
	if err := s.record(ctx, headers, event.Action, false); err != nil {
		if errors.Is(err, repository.ErrAlreadyRecorded) {
			return ignored(ingestModel.ReasonDuplicateDelivery), nil
		}
		return nil, err
	}

	if err := s.applyToMirror(ctx, event); err != nil {
		return nil, err
	}

	// Routing fires only for opened/reopened; synchronize and closed update
	// existing records without re-routing.
	if event.Action == pullrequestModel.ActionOpened ||
		event.Action == pullrequestModel.ActionReopened {
		if err := s.routeAndAssign(ctx, org.OrgID, event); err != nil {
			return nil, err
		}
	}

	return &ingestModel.Result{Status: ingestModel.StatusAccepted}, nil
}

// applyToMirror applies the lifecycle event to the local pull request mirror.
func (s *service) applyToMirror(ctx context.Context, event *pullrequestModel.Event) error {
	if event.Action == pullrequestModel.ActionClosed {
		err := s.prs.MarkClosed(ctx, event.PullRequestID, event.Merged, s.now())
		if errors.Is(err, pullrequestModel.ErrPullRequestNotFound) {
			// Closed before we ever saw it open; nothing to update.
			return nil
		}
		return err
	}

	return s.prs.Upsert(ctx, &pullrequestModel.PullRequest{
		PullRequestID: event.PullRequestID,
		OrgID:         event.OrgID,
		RepoFullName:  event.RepoFullName,
		Number:        event.Number,
		Title:         event.Title,
		Author:        event.Author,
		HeadBranch:    event.HeadBranch,
		BaseBranch:    event.BaseBranch,
		State:         pullrequestModel.StateOpen,
		OpenedAt:      event.OccurredAt,
	})
}

// routeAndAssign runs the routing engine for the event and persists the
// resulting assignments.
func (s *service) routeAndAssign(
	ctx context.Context,
	orgID string,
	event *pullrequestModel.Event,
) error {
	changedFiles := event.ChangedFiles
	if len(changedFiles) == 0 {
		files, err := s.vcs.ListChangedFiles(ctx, event.RepoFullName, event.Number)
		if err != nil {
			// File-pattern conditions degrade to non-matching; routing still
			// runs on the remaining attributes.
			s.logger.Warnw("failed to list changed files",
				"pull_request_id", event.PullRequestID,
				"error", err,
			)
		} else {
			changedFiles = files
		}
	}

	result, err := s.router.Route(ctx, orgID, match.Context{
		Author:       event.Author,
		ChangedFiles: changedFiles,
		HeadBranch:   event.HeadBranch,
		BaseBranch:   event.BaseBranch,
		Labels:       event.Labels,
		Now:          s.now(),
	})
	if err != nil {
		return err
	}

	pr, err := s.prs.GetByID(ctx, event.PullRequestID)
	if err != nil {
		return err
	}

	_, err = s.assignments.Assign(ctx, pr, result)
	return err
}

// ingestReview handles a pull_request_review delivery.
func (s *service) ingestReview(
	ctx context.Context,
	payload []byte,
	headers Headers,
) (*ingestModel.Result, error) {
	review, err := s.normalizeReview(payload, headers.DeliveryID)
	if err != nil {
		s.logger.Warnw("malformed pull_request_review payload",
			"delivery_id", headers.DeliveryID,
			"error", err,
		)
		return rejected(ingestModel.ReasonBadPayload), nil
	}

	if review.Action != pullrequestModel.ReviewSubmitted &&
		review.Action != pullrequestModel.ReviewDismissed {
		if err := s.record(ctx, headers, review.Action, true); err != nil {
			return nil, err
		}
		return ignored(ingestModel.ReasonUnsupportedAction), nil
	}

	if err := s.record(ctx, headers, review.Action, false); err != nil {
		if errors.Is(err, repository.ErrAlreadyRecorded) {
			return ignored(ingestModel.ReasonDuplicateDelivery), nil
		}
		return nil, err
	}

	if err := s.assignments.ApplyReview(ctx, review); err != nil {
		if errors.Is(err, assignmentModel.ErrAssignmentNotFound) ||
			errors.Is(err, assignmentModel.ErrUnknownReviewState) {
			// A review from someone who was never assigned is normal traffic.
			s.logger.Infow("review did not match an assignment",
				"pull_request_id", review.PullRequestID,
				"reviewer", review.Reviewer,
				"error", err,
			)
		} else {
			// The ledger entry is already written, so the sender will not
			// redeliver; surface the failure loudly instead of acking quietly.
			s.logger.Errorw("failed to apply review to assignment",
				"delivery_id", headers.DeliveryID,
				"pull_request_id", review.PullRequestID,
				"reviewer", review.Reviewer,
				"error", err,
			)
		}
	}

	return &ingestModel.Result{Status: ingestModel.StatusAccepted}, nil
}

// record writes the dedup ledger entry for a delivery.
func (s *service) record(ctx context.Context, headers Headers, action string, ignored bool) error {
	return s.ledger.Record(ctx, &ingestModel.ProcessedEvent{
		DeliveryID:  headers.DeliveryID,
		EventType:   headers.EventType,
		Action:      action,
		Ignored:     ignored,
		ProcessedAt: s.now(),
	})
}

// webhookPayload is the wire shape of a pull_request delivery.
type webhookPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		User  struct {
			Login string `json:"login"`
		} `json:"user"`
		Head struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
		Labels []struct {
			Name string `json:"name"`
		} `json:"labels"`
		Additions int       `json:"additions"`
		Deletions int       `json:"deletions"`
		Merged    bool      `json:"merged"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"pull_request"`
	Repository struct {
		FullName string `json:"full_name"`
		Owner    struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
	Review struct {
		State string `json:"state"`
		User  struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"review"`
}

// normalizePullRequest builds the immutable normalized event from the raw
// payload.
func (s *service) normalizePullRequest(
	payload []byte,
	deliveryID string,
) (*pullrequestModel.Event, error) {
	var raw webhookPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	if raw.Repository.FullName == "" || raw.Number == 0 {
		return nil, fmt.Errorf("missing repository or number")
	}

	labels := make([]string, 0, len(raw.PullRequest.Labels))
	for _, label := range raw.PullRequest.Labels {
		labels = append(labels, label.Name)
	}

	occurredAt := raw.PullRequest.CreatedAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	return &pullrequestModel.Event{
		DeliveryID:    deliveryID,
		Action:        raw.Action,
		OrgID:         raw.Repository.Owner.Login,
		PullRequestID: pullRequestID(raw.Repository.FullName, raw.Number),
		RepoFullName:  raw.Repository.FullName,
		Number:        raw.Number,
		Title:         raw.PullRequest.Title,
		Body:          raw.PullRequest.Body,
		Author:        raw.PullRequest.User.Login,
		HeadBranch:    raw.PullRequest.Head.Ref,
		BaseBranch:    raw.PullRequest.Base.Ref,
		Labels:        labels,
		Additions:     raw.PullRequest.Additions,
		Deletions:     raw.PullRequest.Deletions,
		Merged:        raw.PullRequest.Merged,
		OccurredAt:    occurredAt,
	}, nil
}

// normalizeReview builds the normalized review event from the raw payload.
func (s *service) normalizeReview(
	payload []byte,
	deliveryID string,
) (*pullrequestModel.ReviewEvent, error) {
	var raw webhookPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	if raw.Repository.FullName == "" || raw.Number == 0 || raw.Review.User.Login == "" {
		return nil, fmt.Errorf("missing repository, number, or review author")
	}

	return &pullrequestModel.ReviewEvent{
		DeliveryID:    deliveryID,
		Action:        raw.Action,
		OrgID:         raw.Repository.Owner.Login,
		PullRequestID: pullRequestID(raw.Repository.FullName, raw.Number),
		Reviewer:      raw.Review.User.Login,
		State:         raw.Review.State,
	}, nil
}

// pullRequestID is the stable internal id for a provider pull request.
func pullRequestID(repoFullName string, number int) string {
	return fmt.Sprintf("%s#%d", repoFullName, number)
}

func rejected(reason string) *ingestModel.Result {
	return &ingestModel.Result{Status: ingestModel.StatusRejected, Reason: reason}
}

func ignored(reason string) *ingestModel.Result {
	return &ingestModel.Result{Status: ingestModel.StatusIgnored, Reason: reason}
}
