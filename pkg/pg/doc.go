// Package pg bootstraps the PostgreSQL layer: a pgx/v5 connection pool with
// startup retries, goose migrations applied from an embedded filesystem, a
// health-probe closure, and small error classification helpers.
//
// Configuration comes from environment variables (see Config field tags).
//
// Usage:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, migrationsFS, "migrations", log); err != nil {
//		return err
//	}
package pg
