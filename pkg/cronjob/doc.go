// Package cronjob schedules in-process jobs with robfig/cron.
//
//	s := cronjob.New(cronjob.WithLogger(log))
//	if err := s.Add("monthly-credits", "0 0 1 * *", func(ctx context.Context) {
//		svc.GrantMonthlyFreeCredits(ctx)
//	}); err != nil {
//		return err
//	}
//	return s.Run(ctx)
//
// Panics in jobs are recovered and logged.
package cronjob
