// Package metrics exposes Prometheus metrics of the monthly credits job.
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.NewCollector(reg)
//	svc := credits.NewService(store, catalog, credits.WithObserver(collector))
//	mux.Handle("/metrics", metrics.Handler(reg))
package metrics
