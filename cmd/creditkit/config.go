package main

import (
	"errors"

	"github.com/dmitrymomot/creditkit/pkg/config"
	"github.com/dmitrymomot/creditkit/pkg/credits"
	"github.com/dmitrymomot/creditkit/pkg/cronjob"
	"github.com/dmitrymomot/creditkit/pkg/httpserver"
	"github.com/dmitrymomot/creditkit/pkg/pg"
	"github.com/dmitrymomot/creditkit/pkg/redis"
)

type appConfig struct {
	Env          string `env:"APP_ENV" envDefault:"development"`
	Name         string `env:"APP_NAME" envDefault:"creditkit"`
	CronSchedule string `env:"CRON_SCHEDULE" envDefault:"0 0 1 * *"`
	CronSecret   string `env:"CRON_SECRET"`
	PlansFile    string `env:"PLANS_FILE"`
	LogLevel     string `env:"LOG_LEVEL"`
}

type configs struct {
	App     appConfig
	Redis   redis.Config
	HTTP    httpserver.Config
	Credits credits.Config
}

var errInvalidConfig = errors.New("invalid configuration")

// load reads the process environment (plus .env) when no options are given
// and parses with the options otherwise.
func load[T any](v *T, opts []config.Option) error {
	if len(opts) == 0 {
		return config.Load(v)
	}
	return config.Parse(v, opts...)
}

// loadConfigs reads every config section except PG, which is loaded by the
// commands that need a database because PG_CONN_URL is required.
func loadConfigs(opts ...config.Option) (configs, error) {
	var c configs
	if err := load(&c.App, opts); err != nil {
		return c, err
	}
	if err := load(&c.Redis, opts); err != nil {
		return c, err
	}
	if err := load(&c.HTTP, opts); err != nil {
		return c, err
	}
	if err := load(&c.Credits, opts); err != nil {
		return c, err
	}
	if err := cronjob.Validate(c.App.CronSchedule); err != nil {
		return c, errors.Join(errInvalidConfig, err)
	}
	return c, nil
}

func loadPGConfig(opts ...config.Option) (pg.Config, error) {
	var c pg.Config
	err := load(&c, opts)
	return c, err
}
