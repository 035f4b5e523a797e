package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrymomot/creditkit/pkg/credits"
	"github.com/dmitrymomot/creditkit/pkg/pg"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// MaxBindParams is the number of bind parameters PostgreSQL accepts in one
// statement.
const MaxBindParams = 65535

// Store implements credits.Store on Postgres. Every insert relies on the
// unique constraints declared in Migrations and ignores conflicts. Inputs
// larger than one statement can carry are split into several statements run
// in a single transaction.
type Store struct {
	db        *sql.DB
	q         dbtx
	inTx      bool
	maxParams int
}

var _ credits.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMaxParams lowers the per-statement bind parameter budget.
// Values outside (0, MaxBindParams] are ignored.
func WithMaxParams(n int) Option {
	return func(s *Store) {
		if n > 0 && n <= MaxBindParams {
			s.maxParams = n
		}
	}
}

// New creates a Store on top of db. Use pg.OpenDB to obtain a *sql.DB from a
// pgx pool.
func New(db *sql.DB, opts ...Option) *Store {
	if db == nil {
		panic("pgstore: db is required")
	}
	s := &Store{db: db, q: db, maxParams: MaxBindParams}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithTx runs fn in a database transaction. Calls made on a Store that is
// already bound to a transaction join it.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx credits.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return pg.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(ctx, s.bind(tx))
	})
}

func (s *Store) bind(tx *sql.Tx) *Store {
	return &Store{db: s.db, q: tx, inTx: true, maxParams: s.maxParams}
}

// rowsPerStatement is the number of rows of cols parameters that fit in one
// statement next to fixed leading parameters.
func (s *Store) rowsPerStatement(fixed, cols int) int {
	return max(1, (s.maxParams-fixed)/cols)
}

// split runs fn on a Store bound to a transaction when the work needs more
// than one statement and no transaction is open yet.
func (s *Store) split(ctx context.Context, statements int, fn func(st *Store) error) error {
	if statements <= 1 || s.inTx {
		return fn(s)
	}
	return pg.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(s.bind(tx))
	})
}

func statements(n, perStatement int) int {
	return (n + perStatement - 1) / perStatement
}

func (s *Store) ListFreeUserIDs(ctx context.Context, activeStatuses []string) ([]string, error) {
	if len(activeStatuses) == 0 {
		return s.ListUserIDs(ctx)
	}
	query := fmt.Sprintf(`SELECT u.id FROM users u
WHERE NOT EXISTS (
	SELECT 1 FROM payments p WHERE p.user_id = u.id AND p.status IN (%s)
)
ORDER BY u.created_at, u.id`, placeholders(1, len(activeStatuses)))
	return s.queryIDs(ctx, query, stringArgs(nil, activeStatuses)...)
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, `SELECT id FROM users ORDER BY created_at, id`)
}

func (s *Store) ListCreditedUserIDs(ctx context.Context, referenceID string, userIDs []string) ([]string, error) {
	var out []string
	for chunk := range slices.Chunk(userIDs, s.rowsPerStatement(1, 1)) {
		query := fmt.Sprintf(`SELECT user_id FROM credit_transactions
WHERE reference_id = $1 AND user_id IN (%s)`, placeholders(2, len(chunk)))
		ids, err := s.queryIDs(ctx, query, stringArgs([]any{referenceID}, chunk)...)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return out, nil
}

func (s *Store) EnsureAccounts(ctx context.Context, accounts []credits.Account) error {
	const cols = 4
	per := s.rowsPerStatement(0, cols)
	return s.split(ctx, statements(len(accounts), per), func(st *Store) error {
		for chunk := range slices.Chunk(accounts, per) {
			args := make([]any, 0, len(chunk)*cols)
			for _, a := range chunk {
				args = append(args, a.ID, a.UserID, a.CreatedAt, a.UpdatedAt)
			}
			query := fmt.Sprintf(`INSERT INTO user_credits (id, user_id, created_at, updated_at)
VALUES %s
ON CONFLICT (user_id) DO NOTHING`, valuesList(len(chunk), cols))
			if _, err := st.q.ExecContext(ctx, query, args...); err != nil {
				return queryError(err)
			}
		}
		return nil
	})
}

func (s *Store) AdjustBalances(ctx context.Context, userIDs []string, delta int64, at time.Time) ([]credits.AccountBalance, error) {
	const fixed = 2
	per := s.rowsPerStatement(fixed, 1)
	out := make([]credits.AccountBalance, 0, len(userIDs))
	err := s.split(ctx, statements(len(userIDs), per), func(st *Store) error {
		for chunk := range slices.Chunk(userIDs, per) {
			balances, err := st.adjustBalances(ctx, chunk, delta, at)
			if err != nil {
				return err
			}
			out = append(out, balances...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) adjustBalances(ctx context.Context, userIDs []string, delta int64, at time.Time) ([]credits.AccountBalance, error) {
	query := fmt.Sprintf(`UPDATE user_credits
SET balance = balance + $1, total_earned = total_earned + $1, updated_at = $2
WHERE user_id IN (%s)
RETURNING user_id, balance`, placeholders(3, len(userIDs)))

	rows, err := s.q.QueryContext(ctx, query, stringArgs([]any{delta, at}, userIDs)...)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	out := make([]credits.AccountBalance, 0, len(userIDs))
	for rows.Next() {
		var b credits.AccountBalance
		if err := rows.Scan(&b.UserID, &b.Balance); err != nil {
			return nil, errors.Join(ErrScanFailed, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	return out, nil
}

func (s *Store) InsertTransactions(ctx context.Context, txs []credits.Transaction) ([]string, error) {
	const cols = 11
	per := s.rowsPerStatement(0, cols)
	var inserted []string
	err := s.split(ctx, statements(len(txs), per), func(st *Store) error {
		for chunk := range slices.Chunk(txs, per) {
			args := make([]any, 0, len(chunk)*cols)
			for _, t := range chunk {
				var metadata any
				if len(t.Metadata) > 0 {
					metadata = []byte(t.Metadata)
				}
				args = append(args,
					t.ID, t.UserID, string(t.Type), t.Amount, t.BalanceAfter, string(t.Source),
					t.Description, t.ReferenceID, metadata, t.CreatedAt, t.UpdatedAt,
				)
			}
			query := fmt.Sprintf(`INSERT INTO credit_transactions
(id, user_id, type, amount, balance_after, source, description, reference_id, metadata, created_at, updated_at)
VALUES %s
ON CONFLICT (user_id, reference_id) DO NOTHING
RETURNING user_id`, valuesList(len(chunk), cols))
			ids, err := st.queryIDs(ctx, query, args...)
			if err != nil {
				return err
			}
			inserted = append(inserted, ids...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (s *Store) InsertQuotaUsage(ctx context.Context, rows []credits.QuotaUsage) (int, error) {
	const cols = 7
	per := s.rowsPerStatement(0, cols)
	var created int
	err := s.split(ctx, statements(len(rows), per), func(st *Store) error {
		for chunk := range slices.Chunk(rows, per) {
			args := make([]any, 0, len(chunk)*cols)
			for _, r := range chunk {
				args = append(args, r.ID, r.UserID, string(r.Service), r.Period, r.UsedAmount, r.CreatedAt, r.UpdatedAt)
			}
			query := fmt.Sprintf(`INSERT INTO user_quota_usage (id, user_id, service, period, used_amount, created_at, updated_at)
VALUES %s
ON CONFLICT (user_id, service, period) DO NOTHING`, valuesList(len(chunk), cols))

			res, err := st.q.ExecContext(ctx, query, args...)
			if err != nil {
				return queryError(err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return queryError(err)
			}
			created += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Join(ErrScanFailed, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	return ids, nil
}
