package credits

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/dmitrymomot/creditkit/pkg/logger"
)

type grantBatch struct {
	userIDs     []string
	amount      int64
	period      string
	referenceID string
	at          time.Time
}

func (s *Service) grantCredits(ctx context.Context, log *slog.Logger, eligible []string, amount int64, period string, at time.Time) tally {
	var t tally
	if len(eligible) == 0 {
		return t
	}

	offset := 0
	for chunk := range slices.Chunk(eligible, s.grantBatchSize) {
		created, err := s.grantBatch(ctx, grantBatch{
			userIDs:     chunk,
			amount:      amount,
			period:      period,
			referenceID: ReferenceID(period),
			at:          at,
		})
		s.observer.BatchProcessed(PhaseGrant, created, err)
		if err != nil {
			be := t.fail(offset, len(chunk), err)
			log.ErrorContext(ctx, "credit batch failed",
				logger.Batch(be.BatchID, offset, len(chunk)),
				logger.Error(err),
			)
		} else {
			t.success += created
			log.DebugContext(ctx, "credit batch committed",
				logger.Batch(batchID(offset), offset, len(chunk)),
				logger.Count("created", created),
			)
		}
		offset += len(chunk)
	}
	return t
}

// grantBatch credits one batch inside a single transaction and returns the
// number of ledger entries created. Users whose entry already exists keep
// their balance: the increment applied to them is reverted before commit.
func (s *Service) grantBatch(ctx context.Context, b grantBatch) (int, error) {
	metadata, err := json.Marshal(GrantMetadata{
		Type:   GrantMetadataType,
		PlanID: s.freePlanID,
		Month:  b.period,
	})
	if err != nil {
		return 0, errors.Join(ErrEncodeMetadata, err)
	}

	var created int
	err = s.store.WithTx(ctx, func(ctx context.Context, tx Store) error {
		accounts := make([]Account, 0, len(b.userIDs))
		for _, userID := range b.userIDs {
			accounts = append(accounts, Account{
				ID:        s.newID(),
				UserID:    userID,
				CreatedAt: b.at,
				UpdatedAt: b.at,
			})
		}
		if err := tx.EnsureAccounts(ctx, accounts); err != nil {
			return errors.Join(ErrEnsureAccounts, err)
		}

		updated, err := tx.AdjustBalances(ctx, b.userIDs, b.amount, b.at)
		if err != nil {
			return errors.Join(ErrAdjustBalances, err)
		}
		if len(updated) == 0 {
			return nil
		}

		entries := make([]Transaction, 0, len(updated))
		updatedIDs := make([]string, 0, len(updated))
		for _, acc := range updated {
			updatedIDs = append(updatedIDs, acc.UserID)
			entries = append(entries, Transaction{
				ID:           s.newID(),
				UserID:       acc.UserID,
				Type:         TransactionEarn,
				Amount:       b.amount,
				BalanceAfter: acc.Balance,
				Source:       SourceSubscription,
				Description:  GrantDescription,
				ReferenceID:  b.referenceID,
				Metadata:     metadata,
				CreatedAt:    b.at,
				UpdatedAt:    b.at,
			})
		}

		inserted, err := tx.InsertTransactions(ctx, entries)
		if err != nil {
			return errors.Join(ErrInsertTransactions, err)
		}

		if skipped := difference(updatedIDs, inserted); len(skipped) > 0 {
			if _, err := tx.AdjustBalances(ctx, skipped, -b.amount, b.at); err != nil {
				return errors.Join(ErrRevertBalances, err)
			}
		}

		created = len(inserted)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
