package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/dmitrymomot/creditkit/pkg/credits"
	"github.com/dmitrymomot/creditkit/pkg/logger"
	"github.com/dmitrymomot/creditkit/pkg/requestid"
	"github.com/dmitrymomot/creditkit/pkg/runlog"
)

var errRunFailed = errors.New("monthly credits run failed")

// runOnce performs one manual run and writes the result to stdout.
// The report is recorded in Redis when it is reachable.
func runOnce(ctx context.Context, a *app, stdout io.Writer) error {
	svc, err := a.service(ctx, nil)
	if err != nil {
		return err
	}
	ctx = requestid.Ensure(ctx)

	var res credits.Result
	if rdb, err := a.redisClient(ctx); err != nil {
		a.log.WarnContext(ctx, "redis unavailable, run report will not be recorded", logger.Error(err))
		res = svc.TriggerMonthlyCredits(ctx)
	} else {
		res = runlog.New(rdb).Record(ctx, a.log, svc.TriggerMonthlyCredits)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success {
		return errRunFailed
	}
	return nil
}
