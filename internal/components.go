package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/tickler/internal/dailynote"
	"github.com/starford/tickler/internal/dates"
	"github.com/starford/tickler/internal/index"
	"github.com/starford/tickler/internal/models"
	"github.com/starford/tickler/internal/noteservice"
	"github.com/starford/tickler/internal/review"
	"github.com/starford/tickler/internal/section"
	"github.com/starford/tickler/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{logOut: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger and makes it the default.
func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// components is the wired vault stack shared by every entry point.
type components struct {
	store *storage.FS
	db    *index.DB
	svc   *noteservice.Service
	sched *review.Scheduler
}

func (c *components) Close() error {
	return c.db.Close()
}

// build opens the vault and index, runs an initial sync and wires the
// scheduler. notifiers receive every review notice.
func (a *application) build(logger *slog.Logger, notifiers ...review.Notifier) (*components, error) {
	cfg := a.config

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := noteservice.NewService(store, db)

	merger, err := section.New(cfg.Review.MergeStrategy)
	if err != nil {
		db.Close()
		return nil, err
	}

	var provisioner review.DailyNoteProvisioner
	if cfg.Review.DailyTemplate != "" {
		provisioner = dailynote.New(svc, dailynote.Config{
			Folder:   cfg.Review.DailyFolder,
			Template: cfg.Review.DailyTemplate,
		}, logger)
	}

	if a.notifier != nil {
		notifiers = append(notifiers, a.notifier)
	}

	sched := review.New(review.Deps{
		Parser:      dates.NewParser(cfg.Review.DateFormat),
		Store:       svc,
		Provisioner: provisioner,
		Index:       svc,
		Merger:      merger,
		Notifier:    fanOut(notifiers),
		Logger:      logger,
		Settings:    cfg.Review.Settings(),
	})

	return &components{store: store, db: db, svc: svc, sched: sched}, nil
}

// fanOut delivers a notice to each notifier in order.
func fanOut(ns []review.Notifier) review.Notifier {
	return review.NotifierFunc(func(ctx context.Context, n review.Notice) {
		for _, x := range ns {
			x.Notify(ctx, n)
		}
	})
}

// ScheduleReview runs a single scheduling call against the configured
// vault, as the CLI review command does.
func ScheduleReview(ctx context.Context, req review.Request, opts ...Option) (*review.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := app.newLogger()

	c, err := app.build(logger)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	return c.sched.Schedule(ctx, req)
}

// ResolveDate resolves date text with the configured parser and default.
func ResolveDate(text string, opts ...Option) (models.ReviewTarget, error) {
	app, err := newApplication(opts)
	if err != nil {
		return models.ReviewTarget{}, err
	}
	cfg := app.config
	sched := review.New(review.Deps{
		Parser:   dates.NewParser(cfg.Review.DateFormat),
		Logger:   app.newLogger(),
		Settings: cfg.Review.Settings(),
	})
	return sched.Resolve(text)
}
