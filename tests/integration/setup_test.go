//go:build integration
// +build integration

package integration

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	postgresDriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	assignmentRepository "github.com/reviewflow/reviewflow/internal/assignment/repository"
	assignmentService "github.com/reviewflow/reviewflow/internal/assignment/service"
	"github.com/reviewflow/reviewflow/internal/database/migrate"
	escalationService "github.com/reviewflow/reviewflow/internal/escalation/service"
	ingestRepository "github.com/reviewflow/reviewflow/internal/ingest/repository"
	ingestRouter "github.com/reviewflow/reviewflow/internal/ingest/router"
	ingestService "github.com/reviewflow/reviewflow/internal/ingest/service"
	notificationRepository "github.com/reviewflow/reviewflow/internal/notification/repository"
	notificationService "github.com/reviewflow/reviewflow/internal/notification/service"
	organizationModel "github.com/reviewflow/reviewflow/internal/organization/model"
	organizationRepository "github.com/reviewflow/reviewflow/internal/organization/repository"
	chatProvider "github.com/reviewflow/reviewflow/internal/provider/chat"
	githubProvider "github.com/reviewflow/reviewflow/internal/provider/github"
	pullrequestRepository "github.com/reviewflow/reviewflow/internal/pullrequest/repository"
	ruleCache "github.com/reviewflow/reviewflow/internal/rule/cache"
	ruleModel "github.com/reviewflow/reviewflow/internal/rule/model"
	ruleRepository "github.com/reviewflow/reviewflow/internal/rule/repository"
	routingService "github.com/reviewflow/reviewflow/internal/routing/service"
	"github.com/reviewflow/reviewflow/pkg/retry"
)

const webhookSecret = "integration-secret"

// chatMessage is one message captured by the stub chat API.
type chatMessage struct {
	Channel string
	Text    string
}

// chatRecorder captures everything the engine posts to the chat API.
type chatRecorder struct {
	mu       sync.Mutex
	messages []chatMessage
}

func (r *chatRecorder) record(msg chatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *chatRecorder) list() []chatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]chatMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

func (r *chatRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}

// vcsRecorder captures reviewer requests made against the stub VCS API.
type vcsRecorder struct {
	mu       sync.Mutex
	requests [][]string
}

func (r *vcsRecorder) record(usernames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, usernames)
}

func (r *vcsRecorder) list() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.requests))
	copy(out, r.requests)
	return out
}

func (r *vcsRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = nil
}

// WebhookFlowSuite exercises the full pipeline against a real PostgreSQL
// instance: signed webhook in, routing, assignment rows, notifications out.
type WebhookFlowSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	db          *gorm.DB

	vcsServer  *httptest.Server
	chatServer *httptest.Server
	chat       *chatRecorder
	vcs        *vcsRecorder

	changedFilesMu sync.Mutex
	changedFiles   []string

	server    *httptest.Server
	router    routingService.Service
	scheduler *escalationService.Scheduler
}

// SetupSuite starts PostgreSQL, applies migrations, and builds the
// application in-process with stubbed provider endpoints.
func (s *WebhookFlowSuite) SetupSuite() {
	s.ctx = context.Background()

	pgContainer, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("reviewflow_test"),
		postgres.WithUsername("reviewflow"),
		postgres.WithPassword("reviewflow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(s.T(), err, "failed to start PostgreSQL container")
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "failed to get connection string")

	db, err := gorm.Open(postgresDriver.Open(connStr), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(s.T(), err, "failed to connect to database")
	s.db = db

	require.NoError(s.T(), os.Setenv("MIGRATIONS_PATH", "../../migrations"))
	require.NoError(s.T(), migrate.Migrate(db), "failed to apply migrations")

	s.chat = &chatRecorder{}
	s.vcs = &vcsRecorder{}
	s.changedFiles = []string{"src/api/users.go", "src/api/routes.go"}

	s.vcsServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
			s.changedFilesMu.Lock()
			files := s.changedFiles
			s.changedFilesMu.Unlock()
			type file struct {
				Filename string `json:"filename"`
			}
			out := make([]file, 0, len(files))
			for _, f := range files {
				out = append(out, file{Filename: f})
			}
			_ = json.NewEncoder(w).Encode(out)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/requested_reviewers"):
			var body struct {
				Reviewers []string `json:"reviewers"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			s.vcs.record(body.Reviewers)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("{}"))
		default:
			http.NotFound(w, r)
		}
	}))

	s.chatServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Channel string `json:"channel"`
			Text    string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.chat.record(chatMessage{Channel: body.Channel, Text: body.Text})
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"ts": fmt.Sprintf("%d.000100", time.Now().Unix()),
		})
	}))

	logger := zap.NewNop().Sugar()

	vcs := githubProvider.New("test-token")
	vcs.SetBaseURL(s.vcsServer.URL)
	messenger := chatProvider.New("test-token")
	messenger.SetBaseURL(s.chatServer.URL)

	orgRepo := organizationRepository.New(db)
	prRepo := pullrequestRepository.New(db)
	assignmentRepo := assignmentRepository.New(db)
	notificationRepo := notificationRepository.New(db)
	ledgerRepo := ingestRepository.New(db)
	rules := ruleCache.New(ruleRepository.New(db), time.Minute)

	retryCfg := retry.Config{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1.0,
	}

	notifier := notificationService.New(
		notificationRepo, assignmentRepo, messenger, retryCfg, logger)
	s.router = routingService.New(rules, orgRepo, logger)
	assignments := assignmentService.New(
		assignmentRepo, orgRepo, prRepo, vcs, notifier, logger)
	ingest := ingestService.New(
		ledgerRepo, prRepo, orgRepo, s.router, assignments, vcs,
		webhookSecret, logger)
	s.scheduler = escalationService.New(
		assignmentRepo, prRepo, orgRepo, notifier,
		24*time.Hour, 48*time.Hour, time.Minute, logger)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	ingestRouter.RegisterRoutes(engine, ingest, logger)

	s.server = httptest.NewServer(engine)
}

// TearDownSuite stops the stub servers and the PostgreSQL container.
func (s *WebhookFlowSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.vcsServer != nil {
		s.vcsServer.Close()
	}
	if s.chatServer != nil {
		s.chatServer.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

// SetupTest resets database state, recorders, and the rule cache.
func (s *WebhookFlowSuite) SetupTest() {
	s.db.Exec("TRUNCATE TABLE notifications CASCADE")
	s.db.Exec("TRUNCATE TABLE review_assignments CASCADE")
	s.db.Exec("TRUNCATE TABLE processed_events CASCADE")
	s.db.Exec("TRUNCATE TABLE pull_requests CASCADE")
	s.db.Exec("TRUNCATE TABLE routing_rules CASCADE")
	s.db.Exec("TRUNCATE TABLE reviewers CASCADE")
	s.db.Exec("TRUNCATE TABLE organizations CASCADE")

	s.chat.reset()
	s.vcs.reset()
	s.router.InvalidateAllCaches()
}

// Seeding helpers

func (s *WebhookFlowSuite) seedOrg(org *organizationModel.Organization) {
	require.NoError(s.T(), s.db.Create(org).Error, "failed to seed organization")
}

func (s *WebhookFlowSuite) seedReviewer(orgID, reviewerID, username string, active bool) {
	reviewer := &organizationModel.Reviewer{
		ReviewerID: reviewerID,
		OrgID:      orgID,
		Username:   username,
		ChatUserID: "U-" + username,
		IsActive:   active,
	}
	require.NoError(s.T(), s.db.Create(reviewer).Error, "failed to seed reviewer")
}

func (s *WebhookFlowSuite) seedRule(rule *ruleModel.RoutingRule) {
	require.NoError(s.T(), s.db.Create(rule).Error, "failed to seed rule")
}

// Webhook helpers

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// postWebhook delivers a signed webhook and returns the response with its
// decoded body.
func (s *WebhookFlowSuite) postWebhook(deliveryID, eventType string, payload []byte) (*http.Response, map[string]any) {
	return s.postWebhookSigned(deliveryID, eventType, payload, sign(payload))
}

func (s *WebhookFlowSuite) postWebhookSigned(
	deliveryID, eventType string,
	payload []byte,
	signature string,
) (*http.Response, map[string]any) {
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/webhook", strings.NewReader(string(payload)))
	require.NoError(s.T(), err, "failed to create request")

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Delivery", deliveryID)
	req.Header.Set("X-GitHub-Event", eventType)
	req.Header.Set("X-Hub-Signature-256", signature)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(s.T(), err, "failed to deliver webhook")
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&body), "failed to decode response")

	return resp, body
}

// prPayload builds a pull_request delivery body.
func prPayload(action string) []byte {
	payload := map[string]any{
		"action": action,
		"number": 41,
		"pull_request": map[string]any{
			"title": "Add login endpoint",
			"body":  "Implements session login.",
			"user":  map[string]any{"login": "alice"},
			"head":  map[string]any{"ref": "feature/login"},
			"base":  map[string]any{"ref": "main"},
			"labels": []map[string]any{
				{"name": "backend"},
			},
			"additions": 120,
			"deletions": 8,
		},
		"repository": map[string]any{
			"full_name": "acme/web",
			"owner":     map[string]any{"login": "acme"},
		},
	}
	out, _ := json.Marshal(payload)
	return out
}

// reviewPayload builds a pull_request_review delivery body.
func reviewPayload(action, state, reviewer string) []byte {
	payload := map[string]any{
		"action": action,
		"number": 41,
		"pull_request": map[string]any{
			"title": "Add login endpoint",
			"user":  map[string]any{"login": "alice"},
			"head":  map[string]any{"ref": "feature/login"},
			"base":  map[string]any{"ref": "main"},
		},
		"repository": map[string]any{
			"full_name": "acme/web",
			"owner":     map[string]any{"login": "acme"},
		},
		"review": map[string]any{
			"state": state,
			"user":  map[string]any{"login": reviewer},
		},
	}
	out, _ := json.Marshal(payload)
	return out
}

func strPtr(s string) *string {
	return &s
}
