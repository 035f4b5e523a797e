package credits

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/creditkit/pkg/logger"
)

// resetQuotas opens a zero usage counter per user and tracked service for the
// period. Existing counters are left untouched.
func (s *Service) resetQuotas(ctx context.Context, log *slog.Logger, period string, at time.Time) (tally, error) {
	var t tally

	userIDs, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return t, errors.Join(ErrListUsers, err)
	}
	if len(userIDs) == 0 || len(s.services) == 0 {
		return t, nil
	}

	offset := 0
	for chunk := range slices.Chunk(userIDs, s.quotaBatchSize) {
		rows := make([]QuotaUsage, 0, len(chunk)*len(s.services))
		for _, userID := range chunk {
			for _, svc := range s.services {
				rows = append(rows, QuotaUsage{
					ID:        s.newQuotaID(),
					UserID:    userID,
					Service:   svc,
					Period:    period,
					CreatedAt: at,
					UpdatedAt: at,
				})
			}
		}

		created, err := s.store.InsertQuotaUsage(ctx, rows)
		if err != nil {
			err = errors.Join(ErrInsertQuotaUsage, err)
			created = 0
		}
		s.observer.BatchProcessed(PhaseQuota, created, err)
		if err != nil {
			be := t.fail(offset, len(chunk), err)
			log.ErrorContext(ctx, "quota batch failed",
				logger.Batch(be.BatchID, offset, len(chunk)),
				logger.Error(err),
			)
		} else {
			t.success += created
		}
		offset += len(chunk)
	}
	return t, nil
}
