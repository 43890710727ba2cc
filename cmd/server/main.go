package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizlr/internal/config"
	"github.com/stemsi/quizlr/internal/database"
	"github.com/stemsi/quizlr/internal/evaluation"
	"github.com/stemsi/quizlr/internal/handler"
	"github.com/stemsi/quizlr/internal/logger"
	"github.com/stemsi/quizlr/internal/quiz"
	"github.com/stemsi/quizlr/internal/repository"
	"github.com/stemsi/quizlr/internal/router"
	"github.com/stemsi/quizlr/internal/scoring"
	"github.com/stemsi/quizlr/internal/service"
	"github.com/stemsi/quizlr/internal/session"
	"github.com/stemsi/quizlr/internal/storage"
	"github.com/stemsi/quizlr/internal/validator"
	"github.com/stemsi/quizlr/internal/worker"
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
		Str("storage", cfg.StorageBackend).
		Msg("Starting Quizlr")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	strategies, err := scoring.ParseList(cfg.ScoringStrategies)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid SCORING_STRATEGIES")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	// Redis carries the score queue, monitor events and token revocation
	// for every storage backend.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Open Storage ──────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, rdb, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer closeStore()

	// ─── Initialize Repositories ───────────────────────────────────────
	var sessionOpts []session.Option
	if cfg.AllowResubmission {
		sessionOpts = append(sessionOpts, session.AllowResubmission())
	}

	quizRepo := repository.NewQuizRepository(store, quiz.NewRegistry())
	sessionRepo := repository.NewSessionRepository(store, quizRepo)
	scoreRepo := repository.NewScoreRepository(store)

	// ─── Initialize Services ──────────────────────────────────────────
	bus := service.NewRedisBus(rdb)
	authService := service.NewAuthService(cfg, rdb)
	quizService := service.NewQuizService(quizRepo, sessionRepo, scoreRepo, evaluation.NewBankGenerator(quizRepo, nil))
	sessionService := service.NewSessionService(sessionRepo, quizRepo, evaluation.NewKeywordEvaluator(), bus, bus, log, sessionOpts...)
	scoringService := service.NewScoringService(sessionRepo, scoreRepo, bus, log)
	monitorService := service.NewMonitorService(quizRepo, sessionRepo, scoreRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Quiz:    handler.NewQuizHandler(quizService),
		Session: handler.NewSessionHandler(sessionService),
		Score:   handler.NewScoreHandler(sessionService, scoringService),
		Monitor: handler.NewMonitorHandler(bus, quizService, monitorService, log),
		WS:      handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	scoringWorker := worker.NewScoringWorker(scoringService, rdb, strategies, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		scoringWorker.Start(workerCtx)
	}()

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// 2. Stop the scoring worker and let it flush its batch.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("Scoring worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

// openStore opens the configured storage backend. The returned func
// releases it.
func openStore(ctx context.Context, cfg *config.Config, rdb *redis.Client, log zerolog.Logger) (storage.Store, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		return storage.NewMemoryStore(), func() {}, nil

	case config.BackendRedis:
		return storage.NewRedisStore(rdb, storage.DefaultRedisNamespace), func() {}, nil

	case config.BackendPostgres:
		if err := database.MigrateUp(cfg.DatabaseURL, log); err != nil {
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewPostgresStore(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
