package credits

import (
	"encoding/json"
	"time"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionEarn       TransactionType = "earn"
	TransactionSpend      TransactionType = "spend"
	TransactionAdjustment TransactionType = "adjustment"
	TransactionRefund     TransactionType = "refund"
)

// Source records where the credits of a ledger entry came from.
type Source string

const (
	SourceSubscription Source = "subscription"
	SourcePurchase     Source = "purchase"
	SourceBonus        Source = "bonus"
	SourceUsage        Source = "usage"
	SourceRefund       Source = "refund"
	SourceAdmin        Source = "admin"
)

// QuotaService names a metered service with a per-period usage counter.
type QuotaService string

const (
	QuotaAPICall QuotaService = "api_call"
	QuotaStorage QuotaService = "storage"
)

// DefaultQuotaServices are the services whose usage is reset every period.
var DefaultQuotaServices = []QuotaService{QuotaAPICall, QuotaStorage}

// ActiveStatuses are the payment statuses that make a user a paying customer.
// A user holding any payment in one of these statuses never gets free credits.
var ActiveStatuses = []string{"active", "trialing"}

const (
	// GrantDescription is the ledger description of the monthly free grant.
	GrantDescription = "Monthly free credits"
	// GrantMetadataType tags the ledger metadata of the monthly free grant.
	GrantMetadataType = "monthly_free_credits"
)

// Account is a user's credit balance. There is at most one account per user.
type Account struct {
	ID            string
	UserID        string
	Balance       int64
	TotalEarned   int64
	TotalSpent    int64
	FrozenBalance int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AccountBalance is the balance of an account right after an update.
type AccountBalance struct {
	UserID  string
	Balance int64
}

// Transaction is an immutable ledger entry.
// (UserID, ReferenceID) is unique across the ledger.
type Transaction struct {
	ID           string
	UserID       string
	Type         TransactionType
	Amount       int64
	BalanceAfter int64
	Source       Source
	Description  string
	ReferenceID  string
	Metadata     json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GrantMetadata is stored in Transaction.Metadata for monthly free grants.
type GrantMetadata struct {
	Type   string `json:"type"`
	PlanID string `json:"planId"`
	Month  string `json:"month"`
}

// QuotaUsage is the usage counter of one service for one user and period.
// (UserID, Service, Period) is unique.
type QuotaUsage struct {
	ID         string
	UserID     string
	Service    QuotaService
	Period     string
	UsedAmount int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
