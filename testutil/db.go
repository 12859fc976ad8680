// Package testutil holds the database helpers shared by integration tests.
// Every helper that needs Postgres reads TEST_DATABASE_URL and skips the
// calling test when it is unset, so `go test ./...` passes without a database.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// DSNEnv names the environment variable holding the test database DSN.
const DSNEnv = "TEST_DATABASE_URL"

// NewPool returns a pgx pool on the test database, closed at test cleanup.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, requireDSN(t))
	if err != nil {
		t.Fatalf("testutil.NewPool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}
	return pool
}

// NewSQLDBInSchema creates a throwaway schema and returns a database/sql
// handle whose search_path points at it. The schema is dropped at cleanup.
// Tests that create and drop tables use it so they never touch the tables
// other packages are testing against.
func NewSQLDBInSchema(t *testing.T, schema string) *sql.DB {
	t.Helper()
	dsn := requireDSN(t)
	ctx := context.Background()

	admin, err := openSQL(dsn, "")
	if err != nil {
		t.Fatalf("testutil.NewSQLDBInSchema: %v", err)
	}
	ident := pgx.Identifier{schema}.Sanitize()
	for _, stmt := range []string{"DROP SCHEMA IF EXISTS " + ident + " CASCADE", "CREATE SCHEMA " + ident} {
		if _, err := admin.ExecContext(ctx, stmt); err != nil {
			_ = admin.Close()
			t.Fatalf("testutil.NewSQLDBInSchema: %s: %v", stmt, err)
		}
	}
	t.Cleanup(func() {
		_, _ = admin.ExecContext(context.Background(), "DROP SCHEMA IF EXISTS "+ident+" CASCADE")
		_ = admin.Close()
	})

	db, err := openSQL(dsn, schema)
	if err != nil {
		t.Fatalf("testutil.NewSQLDBInSchema: %v", err)
	}
	// Registered after the admin cleanup, so it runs first.
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// MustOpenSQLDB opens a database/sql handle for TestMain, where there is
// no *testing.T. It panics on failure and the caller closes the handle.
func MustOpenSQLDB(dsn string) *sql.DB {
	db, err := openSQL(dsn, "")
	if err != nil {
		panic("testutil.MustOpenSQLDB: " + err.Error())
	}
	return db
}

// BeginTx opens a transaction on pool that is rolled back when the test
// finishes, so every row a test writes disappears with it.
func BeginTx(t *testing.T, pool *pgxpool.Pool) pgx.Tx {
	t.Helper()
	tx, err := pool.Begin(context.Background())
	if err != nil {
		t.Fatalf("testutil.BeginTx: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}

// openSQL opens and pings a database/sql handle through the pgx driver.
// A non-empty searchPath is sent as a connection runtime parameter.
func openSQL(dsn, searchPath string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if searchPath != "" {
		cfg.RuntimeParams["search_path"] = searchPath
	}

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

func requireDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv(DSNEnv)
	if dsn == "" {
		t.Skip(DSNEnv + " not set; skipping integration test")
	}
	return dsn
}
