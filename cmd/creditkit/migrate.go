package main

import (
	"context"
	"io"

	"github.com/dmitrymomot/creditkit/pkg/credits/pgstore"
	"github.com/dmitrymomot/creditkit/pkg/pg"
)

func migrate(ctx context.Context, a *app, _ io.Writer) error {
	if err := pg.Migrate(ctx, a.db, a.pgCfg, pgstore.Migrations, a.log); err != nil {
		return err
	}
	a.log.InfoContext(ctx, "migrations applied")
	return nil
}
