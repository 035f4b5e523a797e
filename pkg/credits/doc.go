// Package credits implements the monthly free-credit and quota reconciliation job.
//
// Once per billing period (YYYY-MM, UTC) the job grants the free plan's
// monthly amount to every user without an active or trialing payment and
// opens zero-valued usage counters for every user and tracked service.
//
// Runs are idempotent. Each ledger entry carries the reference id
// "free_<period>" and the store refuses a second entry for the same user and
// reference id, so repeated or concurrent runs never credit a user twice.
// Grants happen in batches, each batch in one store transaction: a failing
// batch is rolled back and reported while the remaining batches proceed.
//
// Basic usage:
//
//	svc := credits.NewService(store, catalog,
//		credits.WithConfig(cfg),
//		credits.WithLogger(log),
//	)
//	res := svc.GrantMonthlyFreeCredits(ctx)
//	if !res.Success {
//		log.Error("monthly credits failed", "message", res.Message)
//	}
//
// MemoryStore implements Store for tests; pkg/credits/pgstore implements it
// on Postgres.
package credits
