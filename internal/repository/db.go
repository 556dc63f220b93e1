package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type Config struct {
	DSN              string // postgres:// URL, sqlite file path, or ":memory:"
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB is an open result store.
type DB struct {
	SQL     *sql.DB
	Dialect Dialect
	pool    *pgxpool.Pool
}

// DialectFor picks the driver from the DSN.
func DialectFor(dsn string) Dialect {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects to postgres through a pgx pool or opens a sqlite file, then
// applies the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := DialectFor(cfg.DSN)
	logger.Info("connecting to database", "dialect", string(d))

	var db *DB
	switch d {
	case DialectPostgres:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			return nil, err
		}
		db = &DB{SQL: stdlib.OpenDBFromPool(pool), Dialect: d, pool: pool}
	default:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		sdb, err := sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if dsn == ":memory:" {
			// every pooled connection would get its own empty database
			sdb.SetMaxOpenConns(1)
		}
		db = &DB{SQL: sdb, Dialect: d}
	}

	if err := db.migrate(ctx); err != nil {
		db.Close(logger)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("successfully connected to database")
	return db, nil
}

func openPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-extract"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	dial := cfg.DialTimeout
	if dial <= 0 {
		dial = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, dial)
	defer cancel()
	return pgxpool.NewWithConfig(ctx, pc)
}

const schema = `
CREATE TABLE IF NOT EXISTS extractions (
	id           TEXT PRIMARY KEY,
	source_path  TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	platform     TEXT NOT NULL,
	method       TEXT NOT NULL,
	score        INTEGER NOT NULL,
	insufficient BOOLEAN NOT NULL,
	result       TEXT NOT NULL,
	created_at   TEXT NOT NULL
)`

const hashIndex = `CREATE INDEX IF NOT EXISTS extractions_content_hash_idx ON extractions (content_hash)`

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range []string{schema, hashIndex} {
		if _, err := db.SQL.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Rebind turns "?" placeholders into "$n" for postgres.
func (db *DB) Rebind(q string) string {
	if db.Dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connections gracefully
func (db *DB) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("closing database connections")
	if err := db.SQL.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the store.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	logger.Debug("pinging database")
	if err := db.SQL.PingContext(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}
