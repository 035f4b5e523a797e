package credits

import "time"

const periodLayout = "2006-01"

// Period returns the billing period of t as YYYY-MM in UTC.
func Period(t time.Time) string {
	return t.UTC().Format(periodLayout)
}

// ParsePeriod validates a YYYY-MM period string.
func ParsePeriod(s string) (string, error) {
	t, err := time.Parse(periodLayout, s)
	if err != nil {
		return "", ErrInvalidPeriod
	}
	return Period(t), nil
}

// ReferenceID is the ledger idempotency key of the free grant for a period.
func ReferenceID(period string) string {
	return "free_" + period
}
