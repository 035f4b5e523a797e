package credits

import "errors"

var (
	// ErrNoMonthlyCredits is reported when the free plan has no positive monthly amount.
	ErrNoMonthlyCredits = errors.New("No monthly credits configured")

	ErrInvalidPeriod       = errors.New("invalid period, expected YYYY-MM")
	ErrSelectFreeUsers     = errors.New("failed to select free users")
	ErrSelectCreditedUsers = errors.New("failed to select already credited users")
	ErrListUsers           = errors.New("failed to list users for quota update")
	ErrEnsureAccounts      = errors.New("failed to ensure credit accounts")
	ErrAdjustBalances      = errors.New("failed to adjust credit balances")
	ErrInsertTransactions  = errors.New("failed to insert credit transactions")
	ErrRevertBalances      = errors.New("failed to revert conflicting credit increments")
	ErrInsertQuotaUsage    = errors.New("failed to insert quota usage")
	ErrEncodeMetadata      = errors.New("failed to encode transaction metadata")
	ErrUnexpected          = errors.New("unexpected error in monthly credits distribution")
)
