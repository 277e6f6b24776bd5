package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/zzstoatzz/statuswire/migrations"
	sqlstore "github.com/zzstoatzz/statuswire/store/sql"
)

const subscriptionCacheTTL = 30 * time.Second

// openDatabase maps the driver flag onto a bun DB and the matching migration
// dialect.
func openDatabase(driver string, dsn string) (*bun.DB, string, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, "", fmt.Errorf("statuswired: database DSN is required")
	}
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("statuswired: open sqlite: %w", err)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), migrations.DialectSQLite, nil
	case "postgres", "postgresql":
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, "", fmt.Errorf("statuswired: open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), migrations.DialectPostgres, nil
	default:
		return nil, "", fmt.Errorf("statuswired: unsupported db driver %q", driver)
	}
}

// buildRepositoryFactory wires the bun stores with a TTL cache in front of
// owner subscription lists. The dispatcher reads that list on every matching
// firehose event, and owner-scoped mutations invalidate the cached entry.
func buildRepositoryFactory(db *bun.DB) (*sqlstore.RepositoryFactory, error) {
	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = subscriptionCacheTTL
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("statuswired: subscription cache: %w", err)
	}

	factory := sqlstore.NewRepositoryFactory().WithSubscriptionCache(cacheService)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// applyMigrations executes the embedded up migrations for the active dialect
// in lexical order. The DDL is idempotent (IF NOT EXISTS throughout), so
// re-running on startup is safe.
func applyMigrations(ctx context.Context, db *bun.DB, dialect string) error {
	_, err := migrations.Register(ctx, func(ctx context.Context, registeredDialect string, _ string, fsys fs.FS) error {
		if registeredDialect != dialect {
			return nil
		}
		names, err := fs.Glob(fsys, "*.up.sql")
		if err != nil {
			return fmt.Errorf("statuswired: list migrations: %w", err)
		}
		sort.Strings(names)
		for _, name := range names {
			body, err := fs.ReadFile(fsys, name)
			if err != nil {
				return fmt.Errorf("statuswired: read migration %s: %w", name, err)
			}
			if _, err := db.ExecContext(ctx, string(body)); err != nil {
				return fmt.Errorf("statuswired: apply migration %s: %w", name, err)
			}
		}
		return nil
	}, migrations.WithValidationTargets(dialect))
	return err
}
