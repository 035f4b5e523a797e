package credits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/creditkit/pkg/logger"
)

// PlanLookup resolves the monthly free-credit amount of a plan.
type PlanLookup interface {
	MonthlyCredits(planID string) (int64, bool)
}

// Service distributes monthly free credits and opens quota usage counters.
// It keeps no mutable state between runs, so concurrent runs are safe as long
// as the store enforces its unique keys.
type Service struct {
	store      Store
	plans      PlanLookup
	log        *slog.Logger
	observer   Observer
	now        func() time.Time
	newID      func() string
	newQuotaID func() string

	grantBatchSize int
	quotaBatchSize int
	freePlanID     string
	services       []QuotaService
}

// NewService creates the reconciliation service.
// It panics if store or plans is nil.
func NewService(store Store, plans PlanLookup, opts ...Option) *Service {
	if store == nil {
		panic("credits: store is required")
	}
	if plans == nil {
		panic("credits: plan lookup is required")
	}

	cfg := DefaultConfig()
	s := &Service{
		store:          store,
		plans:          plans,
		log:            slog.Default(),
		observer:       noopObserver{},
		now:            time.Now,
		newID:          uuid.NewString,
		newQuotaID:     newUUIDv7,
		grantBatchSize: cfg.GrantBatchSize,
		quotaBatchSize: cfg.QuotaBatchSize,
		freePlanID:     cfg.FreePlanID,
		services:       append([]QuotaService(nil), DefaultQuotaServices...),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Component("credits"))
	return s
}

func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// TriggerMonthlyCredits runs the job on demand. It shares the scheduled code path.
func (s *Service) TriggerMonthlyCredits(ctx context.Context) Result {
	s.log.InfoContext(ctx, "manual trigger of monthly free credits")
	return s.GrantMonthlyFreeCredits(ctx)
}

// GrantMonthlyFreeCredits grants the free plan's monthly amount once per
// period to every user without an active payment, then opens zero-valued quota
// counters for all users. It never panics and never returns an error: failures
// are reported through the Result.
func (s *Service) GrantMonthlyFreeCredits(ctx context.Context) (res Result) {
	startedAt := s.now().UTC()
	period := Period(startedAt)
	log := s.log.With(logger.Period(period))

	defer func() {
		if r := recover(); r != nil {
			err := errors.Join(ErrUnexpected, fmt.Errorf("%v", r))
			log.ErrorContext(ctx, "monthly credits run panicked", logger.Error(err))
			res = failure(err.Error())
		}
		res.Period = period
		if res.Success {
			res.StartedAt = startedAt
			res.FinishedAt = s.now().UTC()
		}
		s.observer.RunFinished(res, s.now().Sub(startedAt))
	}()

	log.InfoContext(ctx, "starting monthly free credits distribution and quota update")

	amount, ok := s.plans.MonthlyCredits(s.freePlanID)
	if !ok || amount <= 0 {
		log.ErrorContext(ctx, "free plan has no monthly credits", slog.String("plan_id", s.freePlanID))
		return failure(ErrNoMonthlyCredits.Error())
	}

	referenceID := ReferenceID(period)
	eligible, totalFree, err := s.selectEligible(ctx, referenceID)
	if err != nil {
		log.ErrorContext(ctx, "eligibility selection failed", logger.Error(err))
		return failure(err.Error())
	}
	log.InfoContext(ctx, "selected users for monthly credits",
		logger.Count("free_users", totalFree),
		logger.Count("eligible_users", len(eligible)),
	)

	grant := s.grantCredits(ctx, log, eligible, amount, period, startedAt)
	log.InfoContext(ctx, "monthly credits distribution finished",
		logger.Count("success", grant.success),
		logger.Count("errors", grant.failed),
		slog.Int64("credits_per_user", amount),
	)

	quota, err := s.resetQuotas(ctx, log, period, startedAt)
	if err != nil {
		log.ErrorContext(ctx, "quota update failed", logger.Error(err))
		return failure(err.Error())
	}
	log.InfoContext(ctx, "quota update finished",
		logger.Count("success", quota.success),
		logger.Count("errors", quota.failed),
	)

	return Result{
		Success:                 true,
		TotalUsers:              totalFree,
		SuccessCount:            grant.success,
		ErrorCount:              grant.failed,
		CreditsPerUser:          amount,
		TotalCreditsDistributed: int64(grant.success) * amount,
		QuotaUpdateSuccessCount: quota.success,
		QuotaUpdateErrorCount:   quota.failed,
		Errors:                  grant.errors,
		QuotaErrors:             quota.errors,
	}
}

// tally accumulates the counts of one phase of a run.
type tally struct {
	success int
	failed  int
	errors  []BatchError
}

func (t *tally) fail(offset, size int, err error) BatchError {
	be := newBatchError(offset, size, err)
	t.failed += size
	t.errors = append(t.errors, be)
	return be
}
