package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/aleksamitic110/assessly/internal/config"
	"github.com/aleksamitic110/assessly/internal/database"
	"github.com/aleksamitic110/assessly/internal/gateway"
	"github.com/aleksamitic110/assessly/internal/handler"
	"github.com/aleksamitic110/assessly/internal/logger"
	"github.com/aleksamitic110/assessly/internal/repository"
	"github.com/aleksamitic110/assessly/internal/router"
	"github.com/aleksamitic110/assessly/internal/service"
	"github.com/aleksamitic110/assessly/internal/session"
	"github.com/aleksamitic110/assessly/internal/store"
	"github.com/aleksamitic110/assessly/internal/validator"
	"github.com/aleksamitic110/assessly/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Assessly Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// ─── Initialize Session Core ───────────────────────────────────────
	stateStore := store.NewRedisStore(rdb)
	withdrawals := session.NewWithdrawalTracker(stateStore, cfg.StateTTL)
	sweeper := session.NewSweeper(stateStore, submissionRepo, withdrawals, cfg.StateTTL, log)
	resolver := session.NewResolver(stateStore, submissionRepo, withdrawals, cfg.StateTTL, log)
	controller := session.NewController(stateStore, examRepo, sweeper, cfg.StateTTL, log)

	// Clock expiry is the lazy completion path; run the sweep there too.
	resolver.OnComplete(func(examID uuid.UUID, sessionID string) {
		sweepCtx, sweepCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer sweepCancel()
		if err := sweeper.Run(sweepCtx, examID, sessionID); err != nil {
			log.Error().Err(err).Str("exam_id", examID.String()).Msg("Auto-submit sweep failed")
		}
	})

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	auditQueue := worker.NewAuditQueue(rdb, log)

	// ─── Initialize Gateway ───────────────────────────────────────────
	hub := gateway.NewHub(log)
	gw := gateway.NewGateway(hub, stateStore, resolver, controller, withdrawals, examRepo, auditQueue, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService, userRepo, log),
		Session: handler.NewSessionHandler(resolver, examRepo, log),
		WS:      handler.NewWSHandler(gw, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	auditWorker := worker.NewAuditWorker(pool, rdb, log)
	go auditWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}
