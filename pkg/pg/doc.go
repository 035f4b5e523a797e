// Package pg bootstraps PostgreSQL access on top of pgx/v5: a retrying pool
// connect, a database/sql bridge for code written against the standard
// interfaces, goose migrations, a readiness probe, a transaction helper and
// SQLSTATE classification helpers.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	db := pg.OpenDB(pool)
//	if err := pg.Migrate(ctx, db, cfg, pgstore.Migrations, log); err != nil {
//		return err
//	}
package pg
