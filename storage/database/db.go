package database

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/fs"
)

const (
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"

	migrationsDir = "migrations"
)

func init() {
	sqlx.BindDriver(EngineSQLite, sqlx.QUESTION)
	goose.SetBaseFS(appfs.FS)
	goose.SetLogger(goose.NopLogger())
}

// Open connects to the configured engine and waits for it to answer.
func Open(ctx context.Context, conf core.StorageConfig) (*sqlx.DB, error) {
	dsn := conf.DSN
	switch conf.Engine {
	case EngineSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
		}
	case EnginePostgres:
	default:
		return nil, core.NewConfigError("storage.engine", "unsupported engine "+conf.Engine)
	}

	db, err := sqlx.Open(conf.Engine, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if conf.Engine == EngineSQLite {
		// one writer; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	}
	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "pinging database")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

// Dialect returns the goose dialect of a storage engine.
func Dialect(engine string) string {
	if engine == EngineSQLite {
		return "sqlite3"
	}
	return engine
}

// Run runs a goose command ("up", "down", "status", ...) against the embedded migrations.
func Run(ctx context.Context, db *sqlx.DB, engine, command string, args ...string) error {
	if err := goose.SetDialect(Dialect(engine)); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.RunContext(ctx, command, db.DB, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "running migration command %q", command)
	}
	return nil
}

func Migrate(ctx context.Context, db *sqlx.DB, engine string) error {
	if err := Run(ctx, db, engine, "up"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
