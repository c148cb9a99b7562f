// Package bootstrap turns a Config into a ready interaction Service. Both
// binaries share it.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bryanwahyu/interaction-log/internal/application"
	appai "github.com/bryanwahyu/interaction-log/internal/application/ai"
	"github.com/bryanwahyu/interaction-log/internal/application/history"
	appinteractions "github.com/bryanwahyu/interaction-log/internal/application/interactions"
	"github.com/bryanwahyu/interaction-log/internal/config"
	aidomain "github.com/bryanwahyu/interaction-log/internal/domain/ai"
	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
	"github.com/bryanwahyu/interaction-log/internal/infra/ai/heuristic"
	"github.com/bryanwahyu/interaction-log/internal/infra/ai/openai"
	"github.com/bryanwahyu/interaction-log/internal/infra/db/badgerkv"
	"github.com/bryanwahyu/interaction-log/internal/infra/db/mysql"
	"github.com/bryanwahyu/interaction-log/internal/infra/db/postgres"
	"github.com/bryanwahyu/interaction-log/internal/infra/db/sqlite"
	"github.com/bryanwahyu/interaction-log/internal/infra/report"
	"github.com/bryanwahyu/interaction-log/internal/infra/storage"
	"github.com/bryanwahyu/interaction-log/internal/middleware"
)

// App is the wired service plus what the binaries need around it.
type App struct {
	Service  *appinteractions.Service
	Store    *history.Store
	Checkers map[string]middleware.HealthChecker
	// Classifier names the backend in use: "openai" or "heuristic".
	Classifier string

	closers []io.Closer
}

// Close releases database handles.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type kvBackend interface {
	domain.KeyValue
	middleware.HealthChecker
}

// New opens the log backend, loads the log, and wires the classifier and the
// export target.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	app := &App{Checkers: make(map[string]middleware.HealthChecker)}

	kv, err := app.openKV(ctx, cfg, log)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Checkers["storage"] = kv

	key := cfg.Storage.Key
	if key == "" {
		key = history.DefaultKey
	}
	store := history.New(kv, history.WithKey(key), history.WithLogger(log.With("component", "history")))
	loaded := store.Load(ctx)
	log.Info("interaction log loaded", "driver", cfg.Storage.Driver, "records", len(loaded))

	loc, err := cfg.Location()
	if err != nil {
		app.Close()
		return nil, err
	}

	target, err := openTarget(ctx, cfg, log)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Checkers["export"] = target

	var client aidomain.Client
	if cfg.OpenAI.APIKey != "" {
		if cfg.OpenAI.BaseURL != "" {
			client = openai.NewClientWithBaseURL(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
		} else {
			client = openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
		}
		app.Classifier = "openai"
	} else {
		log.Warn("no OpenAI API key configured, using the offline heuristic classifier")
		client = heuristic.NewClient()
		app.Classifier = "heuristic"
	}
	classifier := appai.NewService(client, log.With("component", "classifier"))

	opts := []appinteractions.Option{
		appinteractions.WithClock(application.SystemClock{}),
		appinteractions.WithRenderer(report.NewRenderer(loc)),
		appinteractions.WithTarget(target),
		appinteractions.WithLogger(log.With("component", "interactions")),
	}
	if cfg.OpenAI.Timeout > 0 {
		// leave room for the client's own deadline to fire first
		opts = append(opts, appinteractions.WithClassifyTimeout(cfg.OpenAI.Timeout+cfg.OpenAI.Timeout/2))
	}

	app.Store = store
	app.Service = appinteractions.NewService(store, classifier, opts...)
	return app, nil
}

func (a *App) openKV(ctx context.Context, cfg *config.Config, log *slog.Logger) (kvBackend, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		kv, err := sqlite.Open(ctx, cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv)
		return kv, nil
	case config.DriverBadger:
		kv, err := badgerkv.Open(cfg.Storage.Path, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv)
		return kv, nil
	case config.DriverMySQL:
		db, err := mysql.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		repo := mysql.NewKVRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("mysql schema: %w", err)
		}
		return repo, nil
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		repo := postgres.NewKVRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

type exportTarget interface {
	domain.ArtifactStore
	middleware.HealthChecker
}

func openTarget(ctx context.Context, cfg *config.Config, log *slog.Logger) (exportTarget, error) {
	if cfg.Export.Target == config.TargetMinio {
		m := cfg.Minio
		store, err := storage.New(ctx, m.Endpoint, m.Region, m.BucketName, m.AccessKey, m.SecretKey, m.Prefix, m.UseSSL)
		if err != nil {
			return nil, fmt.Errorf("minio init: %w", err)
		}
		return store, nil
	}
	return storage.NewLocal(cfg.Export.Dir, log.With("component", "export"))
}
