// Package logger builds *slog.Logger instances with functional options and
// provides the attribute helpers used across the service, so that keys such
// as "period", "batch" and "error" are spelled the same everywhere.
//
//	log := logger.New(
//	    logger.WithEnvironment(environment.Production, "creditkit"),
//	    logger.WithLevelName(os.Getenv("LOG_LEVEL")),
//	    logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
//	log.Info("batch failed", logger.Period("2026-10"), logger.Batch("batch_500", 500, 500))
package logger
