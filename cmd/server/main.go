// Package main provides the entry point for the review routing server.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	assignmentRepository "github.com/reviewflow/reviewflow/internal/assignment/repository"
	assignmentService "github.com/reviewflow/reviewflow/internal/assignment/service"
	appConfig "github.com/reviewflow/reviewflow/internal/config"
	"github.com/reviewflow/reviewflow/internal/database"
	"github.com/reviewflow/reviewflow/internal/database/migrate"
	escalationService "github.com/reviewflow/reviewflow/internal/escalation/service"
	"github.com/reviewflow/reviewflow/internal/health"
	ingestRepository "github.com/reviewflow/reviewflow/internal/ingest/repository"
	ingestRouter "github.com/reviewflow/reviewflow/internal/ingest/router"
	ingestService "github.com/reviewflow/reviewflow/internal/ingest/service"
	"github.com/reviewflow/reviewflow/internal/middleware"
	notificationRepository "github.com/reviewflow/reviewflow/internal/notification/repository"
	notificationService "github.com/reviewflow/reviewflow/internal/notification/service"
	organizationRepository "github.com/reviewflow/reviewflow/internal/organization/repository"
	"github.com/reviewflow/reviewflow/internal/provider/chat"
	"github.com/reviewflow/reviewflow/internal/provider/github"
	pullrequestRepository "github.com/reviewflow/reviewflow/internal/pullrequest/repository"
	ruleCache "github.com/reviewflow/reviewflow/internal/rule/cache"
	ruleRepository "github.com/reviewflow/reviewflow/internal/rule/repository"
	routingRouter "github.com/reviewflow/reviewflow/internal/routing/router"
	routingService "github.com/reviewflow/reviewflow/internal/routing/service"
	"github.com/reviewflow/reviewflow/pkg/logger"
	"github.com/reviewflow/reviewflow/pkg/retry"
)

func main() {
	cfg := appConfig.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zapLogger, err := logger.NewWithConfig(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	db, err := database.New()
	if err != nil {
		zapLogger.Fatalw("failed to connect to database", "error", err)
	}
	defer func() {
		if closeErr := database.Close(db); closeErr != nil {
			zapLogger.Errorw("failed to close database", "error", closeErr)
		}
	}()

	if err := migrate.Migrate(db); err != nil {
		zapLogger.Fatalw("failed to apply migrations", "error", err)
	}

	vcs := github.New(appConfig.GetEnv("GITHUB_TOKEN", ""))
	messenger := chat.New(appConfig.GetEnv("CHAT_TOKEN", ""))

	orgRepo := organizationRepository.New(db)
	prRepo := pullrequestRepository.New(db)
	assignmentRepo := assignmentRepository.New(db)
	notificationRepo := notificationRepository.New(db)
	ledgerRepo := ingestRepository.New(db)
	rules := ruleCache.New(ruleRepository.New(db), cfg.Engine.RuleCacheTTL)

	notifier := notificationService.New(
		notificationRepo, assignmentRepo, messenger, retry.DefaultConfig(), zapLogger)
	router := routingService.New(rules, orgRepo, zapLogger)
	assignments := assignmentService.New(
		assignmentRepo, orgRepo, prRepo, vcs, notifier, zapLogger)
	ingest := ingestService.New(
		ledgerRepo, prRepo, orgRepo, router, assignments, vcs,
		cfg.Engine.WebhookSecret, zapLogger)
	scheduler := escalationService.New(
		assignmentRepo, prRepo, orgRepo, notifier,
		cfg.Engine.ReminderAfter, cfg.Engine.EscalateAfter, cfg.Engine.SweepInterval,
		zapLogger)

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	engine.Use(middleware.Recovery(zapLogger))
	engine.Use(middleware.Logger(zapLogger))

	engine.GET("/health", health.New(db, zapLogger).Check)
	ingestRouter.RegisterRoutes(engine, ingest, zapLogger)
	routingRouter.RegisterRoutes(engine, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go scheduler.Run(ctx)

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zapLogger.Infow("server starting", "address", server.Addr)
		if listenErr := server.ListenAndServe(); listenErr != nil &&
			!errors.Is(listenErr, http.ErrServerClosed) {
			zapLogger.Fatalw("server failed", "error", listenErr)
		}
	}()

	<-ctx.Done()
	zapLogger.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Errorw("graceful shutdown failed", "error", err)
	}
}
