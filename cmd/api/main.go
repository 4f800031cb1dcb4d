package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/semillero-service/internal/api/http"
	"github.com/spec-kit/semillero-service/internal/api/http/handlers"
	"github.com/spec-kit/semillero-service/internal/auth"
	"github.com/spec-kit/semillero-service/internal/backend"
	"github.com/spec-kit/semillero-service/internal/config"
	"github.com/spec-kit/semillero-service/internal/events"
	"github.com/spec-kit/semillero-service/internal/guard"
	"github.com/spec-kit/semillero-service/internal/handoff"
	"github.com/spec-kit/semillero-service/internal/observability"
	"github.com/spec-kit/semillero-service/internal/persistence"
	"github.com/spec-kit/semillero-service/internal/repository"
	"github.com/spec-kit/semillero-service/internal/service"
	"github.com/spec-kit/semillero-service/internal/validation"
	"github.com/spec-kit/semillero-service/internal/worker"
	"github.com/spec-kit/semillero-service/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	metrics := observability.NewMetrics()
	forms := validation.New()

	verifier, err := backend.NewSimulatedVerifier(cfg.Auth.VerificationCode, cfg.Workflow.VerifyDelay(), cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("failed to init verifier", zap.Error(err))
	}

	opener, err := buildOpener(cfg.Handoff, cfg.Workflow.OperationTimeout(), logger)
	if err != nil {
		logger.Fatal("failed to init hand-off opener", zap.Error(err))
	}

	var inflight guard.Guard = guard.NewMemoryGuard()
	healthDeps := map[string]handlers.Pinger{}
	if redis != nil {
		inflight = guard.NewRedisGuard(redis.Client, cfg.Workflow.GuardTTL(), logger)
		healthDeps["redis"] = redis
	}
	if pg.PoolHandle() != nil {
		healthDeps["postgres"] = pg
	}

	store := repository.NewSessionStore(cfg.Workflow.SessionTTL(), time.Minute)
	defer store.Stop()

	dispatcher := events.NewInMemoryDispatcher()
	auditService := service.NewAuditService(dispatcher, repository.NewHandoffAuditRepository(pg.PoolHandle()), logger)
	worker.StartAuditWorker(auditService)

	sessionService := service.NewSessionService(service.SessionDependencies{
		Store:       store,
		Machine:     workflow.New(forms),
		Verifier:    verifier,
		Preferences: backend.NewSimulatedPreferences(cfg.Workflow.PaymentDelay()),
		Handoff: handoff.NewDispatcher(opener, handoff.Options{
			AdminPhone:  cfg.Handoff.AdminPhone,
			CountryCode: cfg.Handoff.CountryCode,
			Delay:       cfg.Workflow.HandoffDelay(),
			Validator:   forms,
			Logger:      logger,
		}),
		Guard:      inflight,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Timeout:    cfg.Workflow.OperationTimeout(),
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenTTLMins)
	stream := handlers.NewSessionStream(sessionService, logger)
	go stream.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		Metrics:           handlers.NewMetricsHandler(metrics, store.Len),
		Session:           handlers.NewSessionHandler(sessionService, auditService, tokens),
		Stream:            stream,
		Auth:              auth.NewSessionMiddleware(tokens, sessionService),
		AttemptsPerMinute: cfg.App.AttemptsPerMinute,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	logger.Info("semillero service started",
		zap.String("addr", cfg.App.Addr()),
		zap.String("handoff_mode", cfg.Handoff.Mode))

	waitForShutdown(logger)

	cancel()
	_ = app.ShutdownWithTimeout(5 * time.Second)
}

func buildOpener(cfg config.HandoffConfig, timeout time.Duration, logger *zap.Logger) (handoff.Opener, error) {
	switch cfg.Mode {
	case "command":
		return handoff.NewCommandOpener(cfg.Command), nil
	case "relay":
		return handoff.NewRelayOpener(cfg.RelayURL, timeout), nil
	case "log", "":
		return handoff.NewRecordingOpener(logger), nil
	}
	return nil, fmt.Errorf("unknown HANDOFF_MODE %q", cfg.Mode)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
