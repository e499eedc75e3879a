package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	moderationengine "ceto/contexts/community-moderation/moderation-engine"
	postgresadapter "ceto/contexts/community-moderation/moderation-engine/adapters/postgres"
	workerapp "ceto/contexts/community-moderation/moderation-engine/application/workers"
	"ceto/contexts/community-moderation/moderation-engine/domain/policy"
	"ceto/contexts/community-moderation/moderation-engine/domain/schema"
	"ceto/contexts/community-moderation/moderation-engine/ports"
	"ceto/internal/platform/config"
	"ceto/internal/platform/db"
	"ceto/internal/platform/httpserver"
	"ceto/internal/platform/messaging"
	"ceto/internal/platform/scheduler"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 10 * time.Second

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type publisher interface {
	ports.EventPublisher
	io.Closer
}

type WorkerApp struct {
	postgres  *db.Postgres
	publisher publisher
	scheduler *scheduler.Scheduler
	jobs      []scheduler.Job
	logger    *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, os.Stdout).With("service", cfg.ServiceName, "process", "api")

	pg, repo, err := openRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	module, err := buildModule(cfg, repo, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	return &APIApp{
		server:   httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort)),
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, os.Stdout).With("service", cfg.ServiceName, "process", "worker")

	pg, repo, err := openRepository(cfg, logger)
	if err != nil {
		return nil, err
	}
	module, err := buildModule(cfg, repo, logger)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	var bus publisher
	if strings.EqualFold(cfg.EventBus, "redis") {
		bus, err = messaging.NewRedisPublisher(cfg.RedisAddr, cfg.RedisChannelPrefix, logger)
		if err != nil {
			_ = pg.Close()
			return nil, err
		}
	} else {
		bus = messaging.NewBus(logger)
	}

	sweeper := workerapp.ExpirySweeper{
		Suggestions: module.Suggestions,
		Clock:       postgresadapter.SystemClock{},
		Logger:      logger,
	}
	reconciler := workerapp.ThresholdReconciler{
		Suggestions: module.Suggestions,
		Logger:      logger,
	}
	relay := workerapp.OutboxRelay{
		Outbox:    repo,
		Publisher: bus,
		Clock:     postgresadapter.SystemClock{},
		BatchSize: 100,
		Routes:    workerapp.DefaultTopicRoutes(),
		Logger:    logger,
	}
	auditor := workerapp.KarmaAuditor{
		Repo:   repo,
		Logger: logger,
	}

	return &WorkerApp{
		postgres:  pg,
		publisher: bus,
		scheduler: scheduler.New(logger),
		jobs: []scheduler.Job{
			{Name: "expiry_sweep", Schedule: cfg.SweepSchedule, Run: sweeper.RunOnce},
			{Name: "threshold_reconcile", Schedule: cfg.ReconcileSchedule, Run: reconciler.RunOnce},
			{Name: "outbox_relay", Schedule: cfg.OutboxSchedule, Run: relay.RunOnce},
			{Name: "karma_audit", Schedule: cfg.AuditSchedule, Run: func(ctx context.Context) error {
				_, err := auditor.RunOnce(ctx)
				return err
			}},
		},
		logger: logger,
	}, nil
}

func openRepository(cfg config.Config, logger *slog.Logger) (*db.Postgres, *postgresadapter.Repository, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, nil, errors.New("POSTGRES_DSN is required")
	}
	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	repo := postgresadapter.NewRepository(pg.DB, logger)
	if cfg.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := repo.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, err
		}
	}
	return pg, repo, nil
}

func buildModule(cfg config.Config, repo *postgresadapter.Repository, logger *slog.Logger) (moderationengine.Module, error) {
	moderationPolicy, err := ModerationPolicy(cfg.Policy)
	if err != nil {
		return moderationengine.Module{}, err
	}
	registry, err := schema.Default()
	if err != nil {
		return moderationengine.Module{}, err
	}
	return moderationengine.NewModule(moderationengine.Dependencies{
		Repository:     repo,
		Idempotency:    repo,
		Schema:         registry,
		Clock:          postgresadapter.SystemClock{},
		IDGen:          postgresadapter.UUIDGenerator{},
		Policy:         moderationPolicy,
		IdempotencyTTL: 7 * 24 * time.Hour,
		Logger:         logger,
	}), nil
}

// ModerationPolicy turns the configured values into the engine's policy.
func ModerationPolicy(cfg config.Policy) (moderationengine.Policy, error) {
	threshold, err := policy.NewThresholdPolicy(
		cfg.ThresholdMode,
		cfg.EndorseThreshold,
		cfg.ThresholdPopularityStep,
		cfg.ThresholdMax,
	)
	if err != nil {
		return moderationengine.Policy{}, err
	}
	tastingNotes, ok := policy.ParseTastingNoteMode(cfg.TastingNoteMode)
	if !ok {
		return moderationengine.Policy{}, errors.New("invalid TASTING_NOTE_MODE")
	}
	tiers := policy.TrustTiers{
		ContributorMin: cfg.TrustContributorMin,
		TrustedMin:     cfg.TrustTrustedMin,
		StewardMin:     cfg.TrustStewardMin,
	}
	if err := tiers.Validate(); err != nil {
		return moderationengine.Policy{}, err
	}
	return moderationengine.Policy{
		Threshold:       threshold,
		RejectThreshold: cfg.RejectThreshold,
		Karma: policy.KarmaRules{
			AuthorAccept:   cfg.KarmaAuthorAccept,
			EndorseAccept:  cfg.KarmaEndorseAccept,
			AuthorReject:   cfg.KarmaAuthorReject,
			AuthorWithdraw: cfg.KarmaAuthorWithdraw,
		},
		Trust:         tiers,
		SuggestionTTL: cfg.SuggestionTTL,
		TastingNotes:  tastingNotes,
	}, nil
}

// NewLogger builds the process logger from LOG_FORMAT and LOG_LEVEL.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "text") {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	for _, job := range w.jobs {
		if err := w.scheduler.Add(ctx, job); err != nil {
			return err
		}
	}
	w.scheduler.Start()
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"jobs", len(w.jobs),
	)

	<-ctx.Done()
	w.scheduler.Stop()
	return nil
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.publisher != nil {
		errs = append(errs, w.publisher.Close())
	}
	if w.postgres != nil {
		errs = append(errs, w.postgres.Close())
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
