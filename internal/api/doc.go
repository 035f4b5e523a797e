// Package api exposes the manual trigger, the last run report, health probes
// and metrics over HTTP.
//
//	POST /cron/monthly-credits          run the job now (Bearer secret)
//	GET  /cron/monthly-credits/last     last report, ?period=YYYY-MM (Bearer secret)
//	GET  /healthz                       liveness
//	GET  /readyz                        readiness (Postgres, Redis)
//	GET  /metrics                       Prometheus
package api
