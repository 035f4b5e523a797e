package credits

// Config holds the tunables of the reconciliation job.
type Config struct {
	GrantBatchSize int      `env:"CREDITS_GRANT_BATCH_SIZE" envDefault:"500"`
	QuotaBatchSize int      `env:"CREDITS_QUOTA_BATCH_SIZE" envDefault:"500"`
	FreePlanID     string   `env:"CREDITS_FREE_PLAN_ID" envDefault:"free"`
	QuotaServices  []string `env:"CREDITS_QUOTA_SERVICES" envDefault:"api_call,storage" envSeparator:","`
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		GrantBatchSize: 500,
		QuotaBatchSize: 500,
		FreePlanID:     "free",
		QuotaServices:  []string{string(QuotaAPICall), string(QuotaStorage)},
	}
}
