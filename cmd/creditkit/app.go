package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/creditkit/pkg/config"
	"github.com/dmitrymomot/creditkit/pkg/credits"
	"github.com/dmitrymomot/creditkit/pkg/credits/pgstore"
	"github.com/dmitrymomot/creditkit/pkg/environment"
	"github.com/dmitrymomot/creditkit/pkg/logger"
	"github.com/dmitrymomot/creditkit/pkg/pg"
	"github.com/dmitrymomot/creditkit/pkg/plans"
	"github.com/dmitrymomot/creditkit/pkg/redis"
	"github.com/dmitrymomot/creditkit/pkg/requestid"
)

// app holds the process-wide dependencies shared by the subcommands.
type app struct {
	cfg   configs
	pgCfg pg.Config
	env   environment.Environment
	log   *slog.Logger

	pool    *pgxpool.Pool
	db      *sql.DB
	closers []func()
}

func newApp(ctx context.Context, envFile string, logOut io.Writer) (*app, error) {
	var opts []config.Option
	if envFile != "" {
		opts = append(opts, config.WithEnvFiles(envFile))
	}

	cfg, err := loadConfigs(opts...)
	if err != nil {
		return nil, err
	}
	pgCfg, err := loadPGConfig(opts...)
	if err != nil {
		return nil, err
	}

	env := environment.Parse(cfg.App.Env)
	log := logger.New(
		logger.WithOutput(logOut),
		logger.WithEnvironment(env, cfg.App.Name),
		logger.WithLevelName(cfg.App.LogLevel),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	a := &app{cfg: cfg, pgCfg: pgCfg, env: env, log: log}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	a.db = pg.OpenDB(pool)
	a.closers = append(a.closers, pool.Close, func() { _ = a.db.Close() })
	return a, nil
}

// ctx attaches the process environment to ctx.
func (a *app) ctx(ctx context.Context) context.Context {
	return environment.WithContext(ctx, a.env)
}

func (a *app) redisClient(ctx context.Context) (*goredis.Client, error) {
	client, err := redis.Connect(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return client, nil
}

func (a *app) catalog(ctx context.Context) (*plans.Catalog, error) {
	src := plans.Default()
	if a.cfg.App.PlansFile != "" {
		src = plans.NewYAMLFileSource(a.cfg.App.PlansFile)
	}
	return plans.NewCatalog(ctx, src)
}

func (a *app) service(ctx context.Context, observer credits.Observer) (*credits.Service, error) {
	catalog, err := a.catalog(ctx)
	if err != nil {
		return nil, errors.Join(errInvalidConfig, err)
	}
	return credits.NewService(pgstore.New(a.db), catalog,
		credits.WithConfig(a.cfg.Credits),
		credits.WithLogger(a.log),
		credits.WithObserver(observer),
	), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
