package credits

import (
	"log/slog"
	"time"
)

// Option configures a Service.
type Option func(*Service)

// WithConfig applies the non-zero fields of cfg.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		WithBatchSizes(cfg.GrantBatchSize, cfg.QuotaBatchSize)(s)
		WithFreePlanID(cfg.FreePlanID)(s)
		if len(cfg.QuotaServices) > 0 {
			services := make([]QuotaService, 0, len(cfg.QuotaServices))
			for _, name := range cfg.QuotaServices {
				if name != "" {
					services = append(services, QuotaService(name))
				}
			}
			WithQuotaServices(services...)(s)
		}
	}
}

// WithClock overrides the time source. Used by tests to pin the period.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the id generator for accounts and ledger entries.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithQuotaIDGenerator sets the id generator for quota usage rows.
func WithQuotaIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newQuotaID = fn
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithObserver registers a hook notified about batches and finished runs.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithBatchSizes sets the grant and quota batch sizes. Values below 1 are ignored.
func WithBatchSizes(grant, quota int) Option {
	return func(s *Service) {
		if grant > 0 {
			s.grantBatchSize = grant
		}
		if quota > 0 {
			s.quotaBatchSize = quota
		}
	}
}

// WithQuotaServices replaces the set of services whose usage is reset.
func WithQuotaServices(services ...QuotaService) Option {
	return func(s *Service) {
		if len(services) > 0 {
			s.services = append([]QuotaService(nil), services...)
		}
	}
}

// WithFreePlanID sets the plan whose monthly amount is granted.
func WithFreePlanID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.freePlanID = id
		}
	}
}
