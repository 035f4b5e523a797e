package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/creditkit/pkg/credits"
)

const namespace = "creditkit"

// Collector records reconciliation runs as Prometheus metrics.
type Collector struct {
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	creditsGranted   prometheus.Counter
	batchesTotal     *prometheus.CounterVec
	quotaRowsCreated prometheus.Counter
}

var _ credits.Observer = (*Collector)(nil)

// NewCollector creates the collector and registers it with reg.
// It panics if registration fails, like prometheus.MustRegister.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Total number of monthly credits runs by result",
			},
			[]string{"result"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Duration of monthly credits runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		creditsGranted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "credits_granted_total",
				Help:      "Total number of credits granted by monthly runs",
			},
		),
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Total number of processed batches by phase and status",
			},
			[]string{"phase", "status"},
		),
		quotaRowsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quota_rows_created_total",
				Help:      "Total number of quota usage rows created",
			},
		),
	}

	reg.MustRegister(c.runsTotal, c.runDuration, c.creditsGranted, c.batchesTotal, c.quotaRowsCreated)
	return c
}

// BatchProcessed implements credits.Observer.
func (c *Collector) BatchProcessed(phase credits.Phase, created int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.batchesTotal.WithLabelValues(string(phase), status).Inc()
	if err == nil && phase == credits.PhaseQuota {
		c.quotaRowsCreated.Add(float64(created))
	}
}

// RunFinished implements credits.Observer.
func (c *Collector) RunFinished(res credits.Result, elapsed time.Duration) {
	c.runDuration.Observe(elapsed.Seconds())
	if !res.Success {
		c.runsTotal.WithLabelValues("failure").Inc()
		return
	}
	result := "success"
	if res.ErrorCount > 0 || res.QuotaUpdateErrorCount > 0 {
		result = "partial"
	}
	c.runsTotal.WithLabelValues(result).Inc()
	c.creditsGranted.Add(float64(res.TotalCreditsDistributed))
}
