package credits_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/creditkit/pkg/credits"
	"github.com/dmitrymomot/creditkit/pkg/logger"
)

var testNow = time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

const testPeriod = "2025-03"

type planLookup map[string]int64

func (p planLookup) MonthlyCredits(id string) (int64, bool) {
	v, ok := p[id]
	return v, ok
}

func newTestService(store credits.Store, amount int64, opts ...credits.Option) *credits.Service {
	base := []credits.Option{
		credits.WithClock(func() time.Time { return testNow }),
		credits.WithLogger(logger.Discard()),
	}
	return credits.NewService(store, planLookup{"free": amount}, append(base, opts...)...)
}

func userIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("user-%04d", i)
	}
	return ids
}

// callLog counts store calls and records the size of each call's input.
type callLog struct {
	mu    sync.Mutex
	calls map[string][]int
}

func (c *callLog) record(method string, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string][]int)
	}
	c.calls[method] = append(c.calls[method], size)
}

func (c *callLog) sizes(method string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls[method])
}

func (c *callLog) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += len(v)
	}
	return n
}

// faultyStore wraps a Store, records calls and injects failures. Stores handed
// to WithTx callbacks are wrapped as well so that faults fire inside
// transactions.
type faultyStore struct {
	credits.Store
	log *callLog

	listFreeErr   error
	listUsersErr  error
	panicOnList   bool
	insertTxErr   func(txs []credits.Transaction) error
	quotaErr      func(rows []credits.QuotaUsage) error
	beforeInsertT func(ctx context.Context, tx credits.Store, txs []credits.Transaction)
}

func newFaultyStore(inner credits.Store) *faultyStore {
	return &faultyStore{Store: inner, log: &callLog{}}
}

func (f *faultyStore) WithTx(ctx context.Context, fn func(context.Context, credits.Store) error) error {
	f.log.record("WithTx", 0)
	return f.Store.WithTx(ctx, func(ctx context.Context, tx credits.Store) error {
		inner := *f
		inner.Store = tx
		return fn(ctx, &inner)
	})
}

func (f *faultyStore) ListFreeUserIDs(ctx context.Context, statuses []string) ([]string, error) {
	f.log.record("ListFreeUserIDs", len(statuses))
	if f.listFreeErr != nil {
		return nil, f.listFreeErr
	}
	return f.Store.ListFreeUserIDs(ctx, statuses)
}

func (f *faultyStore) ListUserIDs(ctx context.Context) ([]string, error) {
	f.log.record("ListUserIDs", 0)
	if f.panicOnList {
		panic("list users exploded")
	}
	if f.listUsersErr != nil {
		return nil, f.listUsersErr
	}
	return f.Store.ListUserIDs(ctx)
}

func (f *faultyStore) ListCreditedUserIDs(ctx context.Context, ref string, ids []string) ([]string, error) {
	f.log.record("ListCreditedUserIDs", len(ids))
	return f.Store.ListCreditedUserIDs(ctx, ref, ids)
}

func (f *faultyStore) EnsureAccounts(ctx context.Context, accounts []credits.Account) error {
	f.log.record("EnsureAccounts", len(accounts))
	return f.Store.EnsureAccounts(ctx, accounts)
}

func (f *faultyStore) AdjustBalances(ctx context.Context, ids []string, delta int64, at time.Time) ([]credits.AccountBalance, error) {
	f.log.record("AdjustBalances", len(ids))
	return f.Store.AdjustBalances(ctx, ids, delta, at)
}

func (f *faultyStore) InsertTransactions(ctx context.Context, txs []credits.Transaction) ([]string, error) {
	f.log.record("InsertTransactions", len(txs))
	if f.beforeInsertT != nil {
		f.beforeInsertT(ctx, f.Store, txs)
	}
	if f.insertTxErr != nil {
		if err := f.insertTxErr(txs); err != nil {
			return nil, err
		}
	}
	return f.Store.InsertTransactions(ctx, txs)
}

func (f *faultyStore) InsertQuotaUsage(ctx context.Context, rows []credits.QuotaUsage) (int, error) {
	f.log.record("InsertQuotaUsage", len(rows))
	if f.quotaErr != nil {
		if err := f.quotaErr(rows); err != nil {
			return 0, err
		}
	}
	return f.Store.InsertQuotaUsage(ctx, rows)
}

// observerSpy records observer events.
type observerSpy struct {
	mu      sync.Mutex
	batches []batchEvent
	runs    []credits.Result
}

type batchEvent struct {
	phase   credits.Phase
	created int
	failed  bool
}

func (o *observerSpy) BatchProcessed(phase credits.Phase, created int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches = append(o.batches, batchEvent{phase: phase, created: created, failed: err != nil})
}

func (o *observerSpy) RunFinished(res credits.Result, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runs = append(o.runs, res)
}
