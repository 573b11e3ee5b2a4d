// Package service provides the routing engine: priority-ordered rule
// evaluation selecting reviewers for a pull request.
package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	organizationModel "github.com/reviewflow/reviewflow/internal/organization/model"
	organizationRepository "github.com/reviewflow/reviewflow/internal/organization/repository"
	"github.com/reviewflow/reviewflow/internal/rule/cache"
	"github.com/reviewflow/reviewflow/internal/rule/match"
	ruleModel "github.com/reviewflow/reviewflow/internal/rule/model"
)

// Routing result reasons.
const (
	ReasonRuleMatched     = "rule_matched"
	ReasonFallbackDefault = "fallback_default"
	ReasonNoMatch         = "no_match"
)

// Result is the outcome of routing one pull request.
type Result struct {
	Matched bool
	// Rule is the winning rule; nil when the default-reviewer fallback fired
	// or nothing matched.
	Rule      *ruleModel.RoutingRule
	Reviewers []organizationModel.Reviewer
	Reason    string
}

// Service defines the interface for routing operations.
type Service interface {
	// Route evaluates the organization's rules in priority order against the
	// pull request context and returns the selected reviewers. The first
	// rule whose conditions all match wins. An empty reviewer list is a
	// valid outcome, not an error.
	Route(ctx context.Context, orgID string, prCtx match.Context) (*Result, error)

	// InvalidateCache drops cached rules for one organization.
	InvalidateCache(orgID string)

	// InvalidateAllCaches drops all cached rules.
	InvalidateAllCaches()
}

type service struct {
	rules  *cache.Cache
	orgs   organizationRepository.Repository
	logger *zap.SugaredLogger
}

// New creates a new routing service instance.
func New(
	rules *cache.Cache,
	orgs organizationRepository.Repository,
	logger *zap.SugaredLogger,
) Service {
	return &service{
		rules:  rules,
		orgs:   orgs,
		logger: logger,
	}
}

// Route evaluates rules in priority order; first match wins.
func (s *service) Route(
	ctx context.Context,
	orgID string,
	prCtx match.Context,
) (*Result, error) {
	rules, err := s.rules.GetRules(ctx, orgID)
	if err != nil {
		return nil, err
	}

	for i := range rules {
		rule := &rules[i]
		evaluation := match.Evaluate(rule.Conditions, prCtx)
		if !evaluation.Matched {
			continue
		}

		reviewers, resolveErr := s.resolveReviewers(ctx, rule.ReviewerIDs, prCtx.Author)
		if resolveErr != nil {
			return nil, resolveErr
		}

		if len(reviewers) == 0 {
			s.logger.Warnw("matched rule resolved no reviewers",
				"org_id", orgID,
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"author", prCtx.Author,
			)
		}

		return &Result{
			Matched:   true,
			Rule:      rule,
			Reviewers: reviewers,
			Reason:    ReasonRuleMatched,
		}, nil
	}

	return s.fallback(ctx, orgID, prCtx.Author)
}

// fallback routes to the organization's default reviewer when no rule
// matched. The author is excluded here too.
func (s *service) fallback(ctx context.Context, orgID, author string) (*Result, error) {
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if org.DefaultReviewerID == nil || *org.DefaultReviewerID == "" {
		s.logger.Warnw("no rule matched and no default reviewer configured",
			"org_id", orgID,
			"author", author,
		)
		return &Result{Reason: ReasonNoMatch}, nil
	}

	reviewers, err := s.resolveReviewers(ctx, []string{*org.DefaultReviewerID}, author)
	if err != nil {
		return nil, err
	}

	if len(reviewers) == 0 {
		s.logger.Warnw("default reviewer excluded or not found",
			"org_id", orgID,
			"default_reviewer_id", *org.DefaultReviewerID,
			"author", author,
		)
		return &Result{Reason: ReasonNoMatch}, nil
	}

	return &Result{
		Matched:   true,
		Reviewers: reviewers,
		Reason:    ReasonFallbackDefault,
	}, nil
}

// resolveReviewers maps reviewer ids to reviewer records, dropping inactive
// reviewers and the PR author. The author is excluded both by id and by
// username because the two can diverge.
func (s *service) resolveReviewers(
	ctx context.Context,
	reviewerIDs []string,
	author string,
) ([]organizationModel.Reviewer, error) {
	candidates, err := s.orgs.GetReviewers(ctx, reviewerIDs)
	if err != nil {
		return nil, err
	}

	selected := make([]organizationModel.Reviewer, 0, len(candidates))
	for _, reviewer := range candidates {
		if !reviewer.IsActive {
			continue
		}
		if strings.EqualFold(reviewer.ReviewerID, author) ||
			strings.EqualFold(reviewer.Username, author) {
			continue
		}
		selected = append(selected, reviewer)
	}

	return selected, nil
}

// InvalidateCache drops cached rules for one organization.
func (s *service) InvalidateCache(orgID string) {
	s.rules.Invalidate(orgID)
}

// InvalidateAllCaches drops all cached rules.
func (s *service) InvalidateAllCaches() {
	s.rules.InvalidateAll()
}
