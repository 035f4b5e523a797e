package credits

import (
	"context"
	"time"
)

// Store is the persistence contract of the reconciliation job.
//
// Every insert is conflict-ignoring on the entity's idempotency key and
// reports only the rows it actually created:
//
//   - user_credits:        (user_id)
//   - credit_transactions: (user_id, reference_id)
//   - user_quota_usage:    (user_id, service, period)
type Store interface {
	// WithTx runs fn in a single transaction. fn receives a Store bound to the
	// transaction; returning an error rolls back everything fn did.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// ListFreeUserIDs returns distinct ids of users without any payment whose
	// status is in activeStatuses.
	ListFreeUserIDs(ctx context.Context, activeStatuses []string) ([]string, error)

	// ListUserIDs returns the ids of all users.
	ListUserIDs(ctx context.Context) ([]string, error)

	// ListCreditedUserIDs returns the subset of userIDs that already have a
	// ledger entry with the given reference id.
	ListCreditedUserIDs(ctx context.Context, referenceID string, userIDs []string) ([]string, error)

	// EnsureAccounts inserts the accounts, skipping users that already have one.
	EnsureAccounts(ctx context.Context, accounts []Account) error

	// AdjustBalances adds delta to balance and total_earned of the accounts of
	// userIDs and returns the post-update balances of the rows it touched.
	AdjustBalances(ctx context.Context, userIDs []string, delta int64, at time.Time) ([]AccountBalance, error)

	// InsertTransactions appends ledger entries, skipping conflicts, and
	// returns the user ids of the entries inserted.
	InsertTransactions(ctx context.Context, txs []Transaction) ([]string, error)

	// InsertQuotaUsage inserts usage rows, skipping conflicts, and returns the
	// number of rows inserted.
	InsertQuotaUsage(ctx context.Context, rows []QuotaUsage) (int, error)
}
