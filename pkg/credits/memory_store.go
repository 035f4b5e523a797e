package credits

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store with the same unique keys as the
// Postgres schema. Transactions snapshot the whole state and restore it when
// the callback fails. It is meant for tests and local development.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

type txKey struct {
	userID      string
	referenceID string
}

type quotaKey struct {
	userID  string
	service QuotaService
	period  string
}

type memoryState struct {
	users      []string
	userSet    map[string]struct{}
	payments   map[string][]string
	accounts   map[string]Account
	ledger     []Transaction
	ledgerKeys map[txKey]struct{}
	quotas     []QuotaUsage
	quotaKeys  map[quotaKey]struct{}
}

func newMemoryState() *memoryState {
	return &memoryState{
		userSet:    make(map[string]struct{}),
		payments:   make(map[string][]string),
		accounts:   make(map[string]Account),
		ledgerKeys: make(map[txKey]struct{}),
		quotaKeys:  make(map[quotaKey]struct{}),
	}
}

func (st *memoryState) clone() *memoryState {
	payments := make(map[string][]string, len(st.payments))
	for k, v := range st.payments {
		payments[k] = slices.Clone(v)
	}
	return &memoryState{
		users:      slices.Clone(st.users),
		userSet:    maps.Clone(st.userSet),
		payments:   payments,
		accounts:   maps.Clone(st.accounts),
		ledger:     slices.Clone(st.ledger),
		ledgerKeys: maps.Clone(st.ledgerKeys),
		quotas:     slices.Clone(st.quotas),
		quotaKeys:  maps.Clone(st.quotaKeys),
	}
}

// AddUser registers users. Known ids are ignored.
func (m *MemoryStore) AddUser(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.state.userSet[id]; ok {
			continue
		}
		m.state.userSet[id] = struct{}{}
		m.state.users = append(m.state.users, id)
	}
}

// AddPayment records a payment of the user with the given status.
func (m *MemoryStore) AddPayment(userID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.payments[userID] = append(m.state.payments[userID], status)
}

// Account returns the credit account of the user.
func (m *MemoryStore) Account(userID string) (Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.state.accounts[userID]
	return acc, ok
}

// Transactions returns a copy of the ledger in insertion order.
func (m *MemoryStore) Transactions() []Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.state.ledger)
}

// QuotaUsage returns a copy of all quota rows in insertion order.
func (m *MemoryStore) QuotaUsage() []QuotaUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.state.quotas)
}

// WithTx implements Store.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := m.state.clone()
	defer func() {
		if p := recover(); p != nil {
			m.state = snapshot
			panic(p)
		}
		if err != nil {
			m.state = snapshot
		}
	}()

	return fn(ctx, memoryTx{state: m.state})
}

func (m *MemoryStore) ListFreeUserIDs(ctx context.Context, activeStatuses []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memoryTx{state: m.state}.ListFreeUserIDs(ctx, activeStatuses)
}

func (m *MemoryStore) ListUserIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memoryTx{state: m.state}.ListUserIDs(ctx)
}

func (m *MemoryStore) ListCreditedUserIDs(ctx context.Context, referenceID string, userIDs []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memoryTx{state: m.state}.ListCreditedUserIDs(ctx, referenceID, userIDs)
}

func (m *MemoryStore) EnsureAccounts(ctx context.Context, accounts []Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memoryTx{state: m.state}.EnsureAccounts(ctx, accounts)
}

func (m *MemoryStore) AdjustBalances(ctx context.Context, userIDs []string, delta int64, at time.Time) ([]AccountBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memoryTx{state: m.state}.AdjustBalances(ctx, userIDs, delta, at)
}

func (m *MemoryStore) InsertTransactions(ctx context.Context, txs []Transaction) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memoryTx{state: m.state}.InsertTransactions(ctx, txs)
}

func (m *MemoryStore) InsertQuotaUsage(ctx context.Context, rows []QuotaUsage) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memoryTx{state: m.state}.InsertQuotaUsage(ctx, rows)
}

// memoryTx operates on the state without locking. The caller holds the lock.
type memoryTx struct {
	state *memoryState
}

// WithTx joins the running transaction.
func (t memoryTx) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return fn(ctx, t)
}

func (t memoryTx) ListFreeUserIDs(ctx context.Context, activeStatuses []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	for _, id := range t.state.users {
		paying := slices.ContainsFunc(t.state.payments[id], func(status string) bool {
			return slices.Contains(activeStatuses, status)
		})
		if !paying {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t memoryTx) ListUserIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(t.state.users), nil
}

func (t memoryTx) ListCreditedUserIDs(ctx context.Context, referenceID string, userIDs []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	for _, id := range userIDs {
		if _, ok := t.state.ledgerKeys[txKey{userID: id, referenceID: referenceID}]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t memoryTx) EnsureAccounts(ctx context.Context, accounts []Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, acc := range accounts {
		if _, ok := t.state.accounts[acc.UserID]; ok {
			continue
		}
		acc.Balance, acc.TotalEarned, acc.TotalSpent, acc.FrozenBalance = 0, 0, 0, 0
		t.state.accounts[acc.UserID] = acc
	}
	return nil
}

func (t memoryTx) AdjustBalances(ctx context.Context, userIDs []string, delta int64, at time.Time) ([]AccountBalance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []AccountBalance
	for _, id := range userIDs {
		acc, ok := t.state.accounts[id]
		if !ok {
			continue
		}
		acc.Balance += delta
		acc.TotalEarned += delta
		acc.UpdatedAt = at
		t.state.accounts[id] = acc
		out = append(out, AccountBalance{UserID: id, Balance: acc.Balance})
	}
	return out, nil
}

func (t memoryTx) InsertTransactions(ctx context.Context, txs []Transaction) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var inserted []string
	for _, tx := range txs {
		key := txKey{userID: tx.UserID, referenceID: tx.ReferenceID}
		if _, ok := t.state.ledgerKeys[key]; ok {
			continue
		}
		t.state.ledgerKeys[key] = struct{}{}
		t.state.ledger = append(t.state.ledger, tx)
		inserted = append(inserted, tx.UserID)
	}
	return inserted, nil
}

func (t memoryTx) InsertQuotaUsage(ctx context.Context, rows []QuotaUsage) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	for _, row := range rows {
		key := quotaKey{userID: row.UserID, service: row.Service, period: row.Period}
		if _, ok := t.state.quotaKeys[key]; ok {
			continue
		}
		t.state.quotaKeys[key] = struct{}{}
		t.state.quotas = append(t.state.quotas, row)
		n++
	}
	return n, nil
}
