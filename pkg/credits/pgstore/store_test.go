package pgstore_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/creditkit/pkg/credits"
	"github.com/dmitrymomot/creditkit/pkg/credits/pgstore"
	"github.com/dmitrymomot/creditkit/pkg/logger"
)

var testNow = time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestStore_ListFreeUserIDs(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectQuery(q("SELECT u.id FROM users u") + `(?s).*` + q("p.status IN ($1, $2)")).
		WithArgs("active", "trialing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1").AddRow("u2"))

	ids, err := pgstore.New(db).ListFreeUserIDs(context.Background(), credits.ActiveStatuses)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListUserIDs_Error(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	errDB := errors.New("connection refused")
	mock.ExpectQuery(q("SELECT id FROM users ORDER BY created_at, id")).WillReturnError(errDB)

	_, err := pgstore.New(db).ListUserIDs(context.Background())
	require.ErrorIs(t, err, pgstore.ErrQueryFailed)
	require.ErrorIs(t, err, errDB)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListCreditedUserIDs(t *testing.T) {
	t.Parallel()

	t.Run("queries candidates by reference id", func(t *testing.T) {
		t.Parallel()

		db, mock := newMock(t)
		mock.ExpectQuery(q("SELECT user_id FROM credit_transactions") + `(?s).*` + q("reference_id = $1 AND user_id IN ($2, $3, $4)")).
			WithArgs("free_2025-03", "u1", "u2", "u3").
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u2"))

		ids, err := pgstore.New(db).ListCreditedUserIDs(context.Background(), "free_2025-03", []string{"u1", "u2", "u3"})
		require.NoError(t, err)
		assert.Equal(t, []string{"u2"}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no candidates issues no query", func(t *testing.T) {
		t.Parallel()

		db, mock := newMock(t)
		ids, err := pgstore.New(db).ListCreditedUserIDs(context.Background(), "free_2025-03", nil)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_EnsureAccounts(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO user_credits (id, user_id, created_at, updated_at)") + `(?s).*` +
		q("VALUES ($1, $2, $3, $4), ($5, $6, $7, $8)") + `(?s).*` +
		q("ON CONFLICT (user_id) DO NOTHING")).
		WithArgs("a1", "u1", testNow, testNow, "a2", "u2", testNow, testNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := pgstore.New(db).EnsureAccounts(context.Background(), []credits.Account{
		{ID: "a1", UserID: "u1", CreatedAt: testNow, UpdatedAt: testNow},
		{ID: "a2", UserID: "u2", CreatedAt: testNow, UpdatedAt: testNow},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EnsureAccounts_ConstraintViolation(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "user_credits_user_id_fkey"}
	mock.ExpectExec(q("INSERT INTO user_credits")).WillReturnError(fk)

	err := pgstore.New(db).EnsureAccounts(context.Background(), []credits.Account{
		{ID: "a1", UserID: "ghost", CreatedAt: testNow, UpdatedAt: testNow},
	})
	require.ErrorIs(t, err, pgstore.ErrQueryFailed)
	require.ErrorIs(t, err, pgstore.ErrConstraintViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AdjustBalances(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectQuery(q("UPDATE user_credits") + `(?s).*` +
		q("balance = balance + $1, total_earned = total_earned + $1, updated_at = $2") + `(?s).*` +
		q("WHERE user_id IN ($3, $4)") + `(?s).*` +
		q("RETURNING user_id, balance")).
		WithArgs(int64(100), testNow, "u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance"}).AddRow("u1", int64(100)).AddRow("u2", int64(350)))

	got, err := pgstore.New(db).AdjustBalances(context.Background(), []string{"u1", "u2"}, 100, testNow)
	require.NoError(t, err)
	assert.Equal(t, []credits.AccountBalance{{UserID: "u1", Balance: 100}, {UserID: "u2", Balance: 350}}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AdjustBalances_ScanError(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectQuery(q("UPDATE user_credits")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance"}).AddRow("u1", "not-a-number"))

	_, err := pgstore.New(db).AdjustBalances(context.Background(), []string{"u1"}, 100, testNow)
	assert.ErrorIs(t, err, pgstore.ErrScanFailed)
}

func TestStore_InsertTransactions(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	meta := json.RawMessage(`{"type":"monthly_free_credits","planId":"free","month":"2025-03"}`)
	mock.ExpectQuery(q("INSERT INTO credit_transactions") + `(?s).*` +
		q("ON CONFLICT (user_id, reference_id) DO NOTHING") + `(?s).*` +
		q("RETURNING user_id")).
		WithArgs(
			"t1", "u1", "earn", int64(100), int64(100), "subscription", "Monthly free credits", "free_2025-03", []byte(meta), testNow, testNow,
			"t2", "u2", "earn", int64(100), int64(300), "subscription", "Monthly free credits", "free_2025-03", nil, testNow, testNow,
		).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))

	ids, err := pgstore.New(db).InsertTransactions(context.Background(), []credits.Transaction{
		{
			ID: "t1", UserID: "u1", Type: credits.TransactionEarn, Amount: 100, BalanceAfter: 100,
			Source: credits.SourceSubscription, Description: credits.GrantDescription,
			ReferenceID: "free_2025-03", Metadata: meta, CreatedAt: testNow, UpdatedAt: testNow,
		},
		{
			ID: "t2", UserID: "u2", Type: credits.TransactionEarn, Amount: 100, BalanceAfter: 300,
			Source: credits.SourceSubscription, Description: credits.GrantDescription,
			ReferenceID: "free_2025-03", CreatedAt: testNow, UpdatedAt: testNow,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_InsertQuotaUsage(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectExec(q("INSERT INTO user_quota_usage (id, user_id, service, period, used_amount, created_at, updated_at)") + `(?s).*` +
		q("ON CONFLICT (user_id, service, period) DO NOTHING")).
		WithArgs(
			"q1", "u1", "api_call", "2025-03", int64(0), testNow, testNow,
			"q2", "u1", "storage", "2025-03", int64(0), testNow, testNow,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := pgstore.New(db).InsertQuotaUsage(context.Background(), []credits.QuotaUsage{
		{ID: "q1", UserID: "u1", Service: credits.QuotaAPICall, Period: "2025-03", CreatedAt: testNow, UpdatedAt: testNow},
		{ID: "q2", UserID: "u1", Service: credits.QuotaStorage, Period: "2025-03", CreatedAt: testNow, UpdatedAt: testNow},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SplitsOversizedStatements(t *testing.T) {
	t.Parallel()

	quotaRows := func(n int) []credits.QuotaUsage {
		rows := make([]credits.QuotaUsage, 0, n)
		for i := range n {
			rows = append(rows, credits.QuotaUsage{
				ID: fmt.Sprintf("q%d", i), UserID: fmt.Sprintf("u%d", i), Service: credits.QuotaAPICall,
				Period: "2025-03", CreatedAt: testNow, UpdatedAt: testNow,
			})
		}
		return rows
	}

	t.Run("quota rows split in one transaction", func(t *testing.T) {
		t.Parallel()

		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(q("INSERT INTO user_quota_usage") + `(?s).*` + q("VALUES ($1, $2, $3, $4, $5, $6, $7), ($8, $9, $10, $11, $12, $13, $14)")).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(q("INSERT INTO user_quota_usage") + `(?s).*` + q("VALUES ($1, $2, $3, $4, $5, $6, $7)")).
			WithArgs("q2", "u2", "api_call", "2025-03", int64(0), testNow, testNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		n, err := pgstore.New(db, pgstore.WithMaxParams(14)).InsertQuotaUsage(context.Background(), quotaRows(3))
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed statement rolls back earlier ones", func(t *testing.T) {
		t.Parallel()

		db, mock := newMock(t)
		errDB := errors.New("connection reset")
		mock.ExpectBegin()
		mock.ExpectExec(q("INSERT INTO user_quota_usage")).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(q("INSERT INTO user_quota_usage")).WillReturnError(errDB)
		mock.ExpectRollback()

		_, err := pgstore.New(db, pgstore.WithMaxParams(14)).InsertQuotaUsage(context.Background(), quotaRows(3))
		require.ErrorIs(t, err, errDB)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("default budget keeps large batches under the limit", func(t *testing.T) {
		t.Parallel()

		// 5000 users x 2 services x 7 columns = 70000 parameters.
		rows := quotaRows(10000)
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(q("INSERT INTO user_quota_usage")).WillReturnResult(sqlmock.NewResult(0, 9362))
		mock.ExpectExec(q("INSERT INTO user_quota_usage")).WillReturnResult(sqlmock.NewResult(0, 638))
		mock.ExpectCommit()

		n, err := pgstore.New(db).InsertQuotaUsage(context.Background(), rows)
		require.NoError(t, err)
		assert.Equal(t, 10000, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inside a transaction no new one is opened", func(t *testing.T) {
		t.Parallel()

		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(q("INSERT INTO user_credits")).WithArgs("a0", "u0", testNow, testNow, "a1", "u1", testNow, testNow).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(q("INSERT INTO user_credits")).WithArgs("a2", "u2", testNow, testNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(q("UPDATE user_credits")).WithArgs(int64(100), testNow, "u0", "u1", "u2", "u3", "u4", "u5").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance"}).AddRow("u0", 100))
		mock.ExpectQuery(q("UPDATE user_credits")).WithArgs(int64(100), testNow, "u6").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance"}).AddRow("u6", 100))
		mock.ExpectCommit()

		err := pgstore.New(db, pgstore.WithMaxParams(8)).WithTx(context.Background(), func(ctx context.Context, tx credits.Store) error {
			accounts := make([]credits.Account, 0, 3)
			for i := range 3 {
				accounts = append(accounts, credits.Account{
					ID: fmt.Sprintf("a%d", i), UserID: fmt.Sprintf("u%d", i), CreatedAt: testNow, UpdatedAt: testNow,
				})
			}
			if err := tx.EnsureAccounts(ctx, accounts); err != nil {
				return err
			}
			balances, err := tx.AdjustBalances(ctx, []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6"}, 100, testNow)
			if err != nil {
				return err
			}
			assert.Equal(t, []credits.AccountBalance{{UserID: "u0", Balance: 100}, {UserID: "u6", Balance: 100}}, balances)
			return nil
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_ListCreditedUserIDs_Split(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectQuery(q("WHERE reference_id = $1 AND user_id IN ($2, $3)")).
		WithArgs("free_2025-03", "u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u2"))
	mock.ExpectQuery(q("WHERE reference_id = $1 AND user_id IN ($2)")).
		WithArgs("free_2025-03", "u3").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u3"))

	ids, err := pgstore.New(db, pgstore.WithMaxParams(3)).
		ListCreditedUserIDs(context.Background(), "free_2025-03", []string{"u1", "u2", "u3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithTx(t *testing.T) {
	t.Parallel()

	t.Run("commit", func(t *testing.T) {
		t.Parallel()

		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(q("INSERT INTO user_credits")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := pgstore.New(db).WithTx(context.Background(), func(ctx context.Context, tx credits.Store) error {
			// Nested calls join the running transaction.
			return tx.WithTx(ctx, func(ctx context.Context, tx credits.Store) error {
				return tx.EnsureAccounts(ctx, []credits.Account{{ID: "a1", UserID: "u1"}})
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on error", func(t *testing.T) {
		t.Parallel()

		db, mock := newMock(t)
		errDB := errors.New("deadlock detected")
		mock.ExpectBegin()
		mock.ExpectExec(q("INSERT INTO user_credits")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(q("UPDATE user_credits")).WillReturnError(errDB)
		mock.ExpectRollback()

		err := pgstore.New(db).WithTx(context.Background(), func(ctx context.Context, tx credits.Store) error {
			if err := tx.EnsureAccounts(ctx, []credits.Account{{ID: "a1", UserID: "u1"}}); err != nil {
				return err
			}
			_, err := tx.AdjustBalances(ctx, []string{"u1"}, 100, testNow)
			return err
		})
		require.ErrorIs(t, err, errDB)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

type planLookup map[string]int64

func (p planLookup) MonthlyCredits(id string) (int64, bool) {
	v, ok := p[id]
	return v, ok
}

func TestStore_ServiceRun(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)

	mock.ExpectQuery(q("SELECT u.id FROM users u")).
		WithArgs("active", "trialing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1").AddRow("u2"))
	mock.ExpectQuery(q("SELECT user_id FROM credit_transactions")).
		WithArgs("free_2025-03", "u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO user_credits")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(q("UPDATE user_credits")).
		WithArgs(int64(100), testNow, "u1", "u2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance"}).AddRow("u1", int64(100)).AddRow("u2", int64(100)))
	// u2 was credited by a concurrent run in the meantime.
	mock.ExpectQuery(q("INSERT INTO credit_transactions")).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectQuery(q("UPDATE user_credits")).
		WithArgs(int64(-100), testNow, "u2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "balance"}).AddRow("u2", int64(0)))
	mock.ExpectCommit()

	mock.ExpectQuery(q("SELECT id FROM users ORDER BY created_at, id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1").AddRow("u2"))
	mock.ExpectExec(q("INSERT INTO user_quota_usage")).WillReturnResult(sqlmock.NewResult(0, 4))

	svc := credits.NewService(pgstore.New(db), planLookup{"free": 100},
		credits.WithClock(func() time.Time { return testNow }),
		credits.WithLogger(logger.Discard()),
	)
	res := svc.GrantMonthlyFreeCredits(context.Background())

	require.True(t, res.Success, res.Message)
	assert.Equal(t, 2, res.TotalUsers)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, int64(100), res.TotalCreditsDistributed)
	assert.Equal(t, 4, res.QuotaUpdateSuccessCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrations(t *testing.T) {
	t.Parallel()

	data, err := fs.ReadFile(pgstore.Migrations, "00001_create_credit_tables.sql")
	require.NoError(t, err)

	sqlText := string(data)
	assert.Contains(t, sqlText, "-- +goose Up")
	assert.Contains(t, sqlText, "-- +goose Down")
	assert.Contains(t, sqlText, "UNIQUE (user_id)")
	assert.Contains(t, sqlText, "ON credit_transactions (user_id, reference_id)")
	assert.Contains(t, sqlText, "UNIQUE (user_id, service, period)")
	assert.Regexp(t, `(?s)CREATE TABLE IF NOT EXISTS payments \(.*plan_id\s+TEXT`, sqlText)
}
