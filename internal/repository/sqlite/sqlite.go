// Package sqlite implements the repository interfaces on SQLite.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite, so the server builds without a C
// toolchain and ":memory:" databases make repository tests hermetic.
//
// CONNECTION MODEL:
// The pool is capped at one open connection. SQLite serializes writers
// anyway, and a single connection makes every statement (in particular the
// quota-guarded INSERT ... SELECT in utility.go) atomic with respect to every
// other request. It also keeps ":memory:" databases alive for the lifetime of
// the pool instead of handing each new connection an empty database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/utility-lineups/internal/dbx"
	"github.com/sakif/utility-lineups/internal/repository"
	"github.com/sakif/utility-lineups/internal/repository/sqlite/migrations"
)

var _ repository.Store = (*DB)(nil)

// DB owns the connection pool and vends repositories bound either to the
// pool or, inside InTx, to a transaction.
type DB struct {
	conn *sql.DB
	q    dbx.DBTX
}

// New opens the database at dbPath, applies per-connection pragmas and runs
// migrations.
//
// dbPath examples:
//   - "data/lineups.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
func New(ctx context.Context, dbPath string) (*DB, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn, q: conn}, nil
}

// Open connects without migrating. The migrate CLI command uses it directly.
func Open(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}
	return conn, nil
}

// dsn turns a path into a modernc DSN. Pragmas go in the DSN rather than in
// one-off Exec calls so they apply to every connection the pool opens;
// foreign_keys in particular is per-connection and the cascades depend on it.
func dsn(dbPath string) string {
	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if dbPath == ":memory:" {
		return "file::memory:?" + strings.Join(pragmas, "&")
	}
	pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	return "file:" + dbPath + "?" + strings.Join(pragmas, "&")
}

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// Migrate applies the embedded goose migrations.
func Migrate(ctx context.Context, conn *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.UpContext(ctx, conn, ".")
}

// Close closes the pool. Only the root DB returned by New owns it.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Users() repository.UserRepository {
	return &UserDB{q: db.q}
}

func (db *DB) Sessions() repository.SessionRepository {
	return &SessionDB{q: db.q}
}

func (db *DB) Maps() repository.MapRepository {
	return &MapDB{q: db.q}
}

func (db *DB) Utilities() repository.UtilityRepository {
	return &UtilityDB{q: db.q}
}

func (db *DB) ThrowingPoints() repository.ThrowingPointRepository {
	return &ThrowingPointDB{q: db.q}
}

func (db *DB) Media() repository.MediaRepository {
	return &MediaDB{q: db.q}
}

func (db *DB) Ownership() repository.OwnershipRepository {
	return &OwnershipDB{q: db.q}
}

// InTx runs fn against a Store bound to a single transaction. Calling InTx on
// a Store that is already transactional reuses the open transaction: with a
// one-connection pool a nested BeginTx would wait on itself forever.
func (db *DB) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if _, ok := db.q.(*sql.Tx); ok {
		return fn(db)
	}
	return dbx.WithTx(ctx, db.conn, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(&DB{conn: db.conn, q: tx})
	})
}

// nullString maps "" to SQL NULL for optional foreign keys.
func nullString(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
