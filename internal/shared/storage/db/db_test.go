package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type nopDriver struct{}

func (d nopDriver) Open(name string) (driver.Conn, error) {
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                   { return nil }
func (nopStmt) NumInput() int                                  { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

var registerTestDriverOnce sync.Once

func ensureTestDriverRegistered() {
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
}

func withTestDriver(t *testing.T) func() {
	t.Helper()
	ensureTestDriverRegistered()
	prev := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		return sql.Open("dbtest", dsn)
	}
	return func() {
		openDB = prev
	}
}

func TestOptionsFromEnvAppliesOverrides(t *testing.T) {
	restore := withTestDriver(t)
	defer restore()

	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts, err := OptionsFromEnv(DefaultServerOptions())
	if err != nil {
		t.Fatalf("OptionsFromEnv: %v", err)
	}
	db, err := Connect(context.Background(), "ignored", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	stats := db.Stats()
	if stats.MaxOpenConnections != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", stats.MaxOpenConnections)
	}
	if opts.MaxIdleConns != 3 {
		t.Fatalf("expected MaxIdleConns=3, got %d", opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime != 20*time.Minute {
		t.Fatalf("expected ConnMaxLifetime=20m, got %s", opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("expected ConnMaxIdleTime=45s, got %s", opts.ConnMaxIdleTime)
	}
	if opts.PingTimeout != time.Second {
		t.Fatalf("expected PingTimeout=1s, got %s", opts.PingTimeout)
	}
}

func TestOptionsFromEnvKeepsDefaultsAndRejectsGarbage(t *testing.T) {
	opts, err := OptionsFromEnv(DefaultLambdaOptions())
	if err != nil {
		t.Fatalf("OptionsFromEnv: %v", err)
	}
	if opts != DefaultLambdaOptions() {
		t.Fatalf("expected untouched defaults, got %+v", opts)
	}

	t.Setenv("DB_PING_TIMEOUT", "soon")
	if _, err := OptionsFromEnv(DefaultServerOptions()); err == nil {
		t.Fatalf("expected invalid duration to be rejected")
	}
}

func TestDefaultMigrateOptionsUseSingleConnection(t *testing.T) {
	opts := DefaultMigrateOptions()
	if opts.MaxOpenConns != 1 || opts.MaxIdleConns != 1 || opts.PingTimeout != DefaultServerOptions().PingTimeout {
		t.Fatalf("unexpected migrate options %+v", opts)
	}
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), "  ", DefaultServerOptions()); err == nil {
		t.Fatalf("expected error for empty DATABASE_URL")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert signature: %w", &pgconn.PgError{Code: "23505", ConstraintName: "signatures_document_signer_key"})
	if !IsUniqueViolation(err, "signatures_document_signer_key") {
		t.Fatalf("expected unique violation to match constraint")
	}
	if IsUniqueViolation(err, "other_key") {
		t.Fatalf("expected constraint mismatch")
	}
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected any-constraint match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("foreign key violation is not a unique violation")
	}
	if IsUniqueViolation(driver.ErrBadConn, "") {
		t.Fatalf("plain errors are not unique violations")
	}
}

func TestEmbeddedMigrationsSeedStatuses(t *testing.T) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) < 4 {
		t.Fatalf("expected at least 4 migrations, got %d", len(entries))
	}
	raw, err := migrationFiles.ReadFile("migrations/00002_document_statuses.sql")
	if err != nil {
		t.Fatalf("read status migration: %v", err)
	}
	for _, code := range []string{"PENDING_REVIEW", "APPROVED", "REJECTED", "DELETED"} {
		if !strings.Contains(string(raw), code) {
			t.Fatalf("expected status %s to be seeded", code)
		}
	}
	sigs, err := migrationFiles.ReadFile("migrations/00004_signatures.sql")
	if err != nil {
		t.Fatalf("read signatures migration: %v", err)
	}
	if !strings.Contains(string(sigs), "signatures_document_signer_key UNIQUE (document_id, signer_id)") {
		t.Fatalf("expected unique (document_id, signer_id) constraint")
	}
}
