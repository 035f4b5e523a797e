package main

import (
	"context"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/creditkit/internal/api"
	"github.com/dmitrymomot/creditkit/pkg/credits"
	"github.com/dmitrymomot/creditkit/pkg/cronjob"
	"github.com/dmitrymomot/creditkit/pkg/httpserver"
	"github.com/dmitrymomot/creditkit/pkg/metrics"
	"github.com/dmitrymomot/creditkit/pkg/pg"
	"github.com/dmitrymomot/creditkit/pkg/redis"
	"github.com/dmitrymomot/creditkit/pkg/requestid"
	"github.com/dmitrymomot/creditkit/pkg/runlog"
)

const monthlyCreditsJob = "monthly-credits"

// serve runs the scheduler and the HTTP API until ctx is cancelled.
func serve(ctx context.Context, a *app, _ io.Writer) error {
	rdb, err := a.redisClient(ctx)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	svc, err := a.service(ctx, collector)
	if err != nil {
		return err
	}
	reports := runlog.New(rdb)

	scheduler := cronjob.New(cronjob.WithLogger(a.log))
	if err := scheduler.Add(monthlyCreditsJob, a.cfg.App.CronSchedule, func(ctx context.Context) {
		reports.Record(requestid.Ensure(ctx), a.log, svc.GrantMonthlyFreeCredits)
	}); err != nil {
		return err
	}

	if a.cfg.App.CronSecret == "" {
		a.log.WarnContext(ctx, "CRON_SECRET is not set, manual trigger endpoint rejects all requests")
	}

	router := api.NewRouter(api.Options{
		Logger: a.log,
		Secret: a.cfg.App.CronSecret,
		Trigger: func(ctx context.Context) credits.Result {
			// A disconnecting client must not abort a run half-way.
			return reports.Record(context.WithoutCancel(ctx), a.log, svc.TriggerMonthlyCredits)
		},
		Reports: reports,
		ReadyChecks: []httpserver.Check{
			{Name: "postgres", Fn: pg.Healthcheck(a.pool)},
			{Name: "redis", Fn: redis.Healthcheck(rdb)},
		},
		Metrics: metrics.Handler(reg),
	})
	server := httpserver.NewFromConfig(a.cfg.HTTP, httpserver.WithLogger(a.log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Run(ctx) })
	g.Go(func() error { return server.Run(ctx, router) })
	return g.Wait()
}
