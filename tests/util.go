package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/storage/database"
)

// Config returns a configuration for tests, storing into a fresh sqlite file.
func Config(t *testing.T) *core.Config {
	t.Helper()
	return &core.Config{
		AppName:  "Rollcall",
		Env:      "TEST",
		Build:    "test",
		TestMode: true,
		API: core.APIConfig{
			BaseURL: "http://127.0.0.1:0",
			Key:     "test-key",
			Timeout: 2 * time.Second,
		},
		Storage: core.StorageConfig{
			Engine: database.EngineSQLite,
			DSN:    filepath.Join(t.TempDir(), "rollcall.db"),
			Prefix: "rollcall",
		},
		Sync: core.SyncConfig{FlushInterval: time.Minute},
	}
}

// OpenDB opens and migrates the database of conf; it is closed with the test.
func OpenDB(t *testing.T, conf core.StorageConfig) *sqlx.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, conf)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(ctx, db, conf.Engine); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	return db
}

// FixedNow pins core.NowFunc to now for the duration of the test.
func FixedNow(t *testing.T, now time.Time) {
	t.Helper()
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}
