// Package httpserver runs an http.Handler for the lifetime of a context and
// provides liveness and readiness handlers.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// Run returns after ctx is cancelled and in-flight requests have finished or
// the shutdown timeout has elapsed. Signal handling is left to the caller,
// typically via signal.NotifyContext.
package httpserver
