// Package pgstore implements credits.Store on PostgreSQL.
//
// The store works on database/sql so it can share a pgx pool through
// pg.OpenDB. Batches are sent as a single multi-row statement with
// positional parameters; conflict handling is delegated to the unique
// constraints created by Migrations:
//
//	pool, err := pg.Connect(ctx, cfg)
//	db := pg.OpenDB(pool)
//	if err := pg.Migrate(ctx, db, cfg, pgstore.Migrations, log); err != nil {
//		return err
//	}
//	store := pgstore.New(db)
package pgstore
