// Package environment carries the deployment environment (development,
// staging, production) through context.Context and into structured logs.
//
//	env := environment.Parse(os.Getenv("APP_ENV"))
//	ctx := environment.WithContext(context.Background(), env)
//	log := logger.New(logger.WithContextExtractors(environment.LoggerExtractor()))
//	log.InfoContext(ctx, "started") // ... env=production
package environment
