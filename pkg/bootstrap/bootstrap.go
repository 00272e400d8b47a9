// Package bootstrap holds the startup sequence shared by the api,
// cron-worker and outbox-publisher binaries.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/hrthis/hrthis-backend/pkg/config"
	"github.com/hrthis/hrthis-backend/pkg/db"
	"github.com/hrthis/hrthis-backend/pkg/instance"
	"github.com/hrthis/hrthis-backend/pkg/logger"
	"github.com/hrthis/hrthis-backend/pkg/migrate"
	"github.com/hrthis/hrthis-backend/pkg/redis"
)

// Runtime is a booted process: config loaded, logger configured and the
// shared stores connected.
type Runtime struct {
	Kind   string
	Config *config.Config
	Logger *logger.Logger
	DB     *db.Client
	Redis  *redis.Client

	closers []func() error
}

// Start loads .env (when present) and the environment, then connects
// Postgres and Redis. In dev with auto-migrate on it also migrates the
// schema. On error every connection opened so far is closed again.
func Start(ctx context.Context, kind string) (rt *Runtime, err error) {
	boot := logger.New(logger.Options{ServiceName: kind})
	if err := godotenv.Load(); err != nil {
		boot.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Service.Kind = kind

	rt = &Runtime{
		Kind:   kind,
		Config: cfg,
		Logger: logger.New(logger.Options{
			ServiceName: kind,
			Level:       cfg.App.LogLevel,
			WarnStack:   cfg.App.LogWarnStack,
		}),
	}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	if rt.DB, err = db.New(ctx, cfg.DB, rt.Logger); err != nil {
		return rt, fmt.Errorf("database: %w", err)
	}
	rt.closers = append(rt.closers, rt.DB.Close)

	if err = migrate.MaybeRunDev(ctx, cfg, rt.Logger, rt.DB); err != nil {
		return rt, fmt.Errorf("dev migrations: %w", err)
	}

	if rt.Redis, err = redis.New(ctx, cfg.Redis, rt.Logger); err != nil {
		return rt, fmt.Errorf("redis: %w", err)
	}
	rt.closers = append(rt.closers, rt.Redis.Close)
	return rt, nil
}

// OnClose registers fn to run on Close, before the stores are released.
func (r *Runtime) OnClose(fn func() error) {
	r.closers = append(r.closers, fn)
}

// Close releases everything in reverse order of acquisition and logs what
// failed.
func (r *Runtime) Close() {
	var errs error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, r.closers[i]())
	}
	r.closers = nil
	if errs != nil {
		r.Logger.Error(context.Background(), "shutdown left resources open", errs)
	}
}

// Context tags ctx with the fields every log line of this process carries.
func (r *Runtime) Context(ctx context.Context) context.Context {
	return r.Logger.WithFields(ctx, map[string]any{
		"env":         r.Config.App.Env,
		"serviceKind": r.Kind,
		"instance":    instance.GetID(),
	})
}

// Fatal logs err and exits. Deferred calls do not run, so callers invoke
// Close first when a Runtime exists.
func Fatal(logg *logger.Logger, msg string, err error) {
	if logg == nil {
		logg = logger.New(logger.Options{})
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
