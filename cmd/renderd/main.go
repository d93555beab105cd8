package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/clipforge/renderd/internal/config"
	"github.com/clipforge/renderd/internal/encode"
	"github.com/clipforge/renderd/internal/gateway"
	"github.com/clipforge/renderd/internal/notify"
	"github.com/clipforge/renderd/internal/orchestrator"
	"github.com/clipforge/renderd/internal/queue"
	"github.com/clipforge/renderd/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(cfg.AppEnv)
	logger.Info().Str("env", cfg.AppEnv).Msg("starting renderd")

	// Queue: Redis so submissions survive restarts and can come from other
	// processes.
	q, err := queue.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to queue")
	}
	defer q.Close()
	logger.Info().Msg("connected to redis queue")

	// Gateway: Postgres when configured, otherwise in-memory.
	var gw gateway.Gateway
	if cfg.DatabaseURL != "" {
		pg, err := gateway.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		gw = pg
		logger.Info().Msg("connected to database")
	} else {
		gw = gateway.NewMemory()
		logger.Warn().Msg("no DATABASE_URL set, job state is in-memory only")
	}
	defer gw.Close()

	// Events publish to the same Redis; fall back to log-only on error.
	var notifier notify.Notifier
	rn, err := notify.NewRedis(cfg.RedisURL, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("event publishing unavailable, logging events only")
		notifier = notify.NewLog(logger)
	} else {
		defer rn.Close()
		notifier = rn
	}

	var encoder encode.Encoder
	switch cfg.Encoder {
	case config.EncoderSimulated:
		encoder = encode.NewSimulatedEncoder(logger)
		logger.Warn().Msg("using simulated encoder, output files are placeholders")
	default:
		encoder = encode.NewFFmpegEncoder(logger, cfg.FFmpegPath, cfg.FFprobePath)
	}

	workspaces, err := workspace.NewManager(cfg.WorkDir, cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare directories")
	}

	orch := orchestrator.New(orchestrator.Options{
		Queue:                q,
		Gateway:              gw,
		Notifier:             notifier,
		Encoder:              encoder,
		Workspaces:           workspaces,
		Concurrency:          cfg.MaxConcurrentJobs,
		MaxConcurrentEncodes: cfg.MaxConcurrentEncodes,
		JobTimeout:           cfg.JobTimeout,
		Defaults:             cfg.Defaults.Apply,
		Logger:               logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		orch.Start(ctx)
		close(done)
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down, waiting for in-flight jobs")

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out, exiting anyway")
	}
	logger.Info().Msg("renderd exited")
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
