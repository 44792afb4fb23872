package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/signup/internal/api"
	"example.com/signup/internal/config"
	"example.com/signup/internal/domain"
	"example.com/signup/internal/logging"
	"example.com/signup/internal/observability"
	"example.com/signup/internal/outbox"
	"example.com/signup/internal/persistence/memory"
	"example.com/signup/internal/persistence/postgres"
	"example.com/signup/internal/seed"
	"example.com/signup/internal/telemetry"
	httptransport "example.com/signup/internal/transport/http"
	"example.com/signup/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "activity-signup: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "activity-signup", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	activities, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return err
	}
	repo, err := memory.NewRepository(activities)
	if err != nil {
		return fmt.Errorf("build roster: %w", err)
	}
	for _, activity := range activities {
		observability.SetParticipants(activity.Name, len(activity.Participants))
	}

	store, closeStore, err := openOutbox(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var producer outbox.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer = outbox.NewKafkaProducer(cfg.KafkaBrokers)
	} else {
		logger.Info("no kafka brokers configured, roster events go to the log")
		producer = outbox.NewLogWriter(logger.Named("outbox"))
	}
	defer producer.Close()

	dispatcher := outbox.NewDispatcher(store, producer, logger.Named("outbox"), cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	go dispatcher.Start(ctx)

	service := domain.NewService(repo,
		domain.WithEventRecorder(outbox.NewRecorder(store, cfg.RosterTopic)),
		domain.WithLogger(logger.Named("domain")),
	)

	mux := http.NewServeMux()
	api.NewHandler(service, logger.Named("api")).RegisterRoutes(mux)
	web.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.Wrap(mux, logger.Named("http"), cfg.AllowedOrigin),
	)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("activity-signup listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-shutdownCh:
		logger.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			runErr = fmt.Errorf("serve: %w", err)
		}
	}
	signal.Stop(shutdownCh)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
	dispatcher.Wait()

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown failed", zap.Error(err))
	}
	return runErr
}

// openOutbox picks the Postgres outbox when configured, the in-memory one otherwise.
func openOutbox(ctx context.Context, cfg config.Config) (outbox.Store, func(), error) {
	if cfg.PostgresURL == "" {
		return outbox.NewMemoryStore(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate outbox: %w", err)
	}
	return postgres.NewOutboxStore(pool), pool.Close, nil
}
