package repository

import (
	"database/sql"
	"fmt"

	"reelhub-api/pkg/logger"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// NewSQLiteStore opens (and if needed creates) a SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("sqlite store initialized", zap.String("path", dbPath))
	return &sqlStore{db: db, dialect: sqliteDialect}, nil
}

func createSQLiteTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS batches (
		id            TEXT PRIMARY KEY,
		is_master     BOOLEAN NOT NULL DEFAULT 0,
		caption       TEXT,
		publish_mode  TEXT,
		scheduled_for DATETIME,
		timezone      TEXT,
		created_at    DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS jobs (
		id            TEXT PRIMARY KEY,
		batch_id      TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		position      INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL,
		caption_state INTEGER NOT NULL DEFAULT 0,
		caption_value TEXT,
		mode_state    INTEGER NOT NULL DEFAULT 0,
		mode_value    TEXT,
		sched_state   INTEGER NOT NULL DEFAULT 0,
		sched_value   DATETIME,
		tz_state      INTEGER NOT NULL DEFAULT 0,
		tz_value      TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_batch ON jobs(batch_id, position);
	CREATE TABLE IF NOT EXISTS accounts (
		id               TEXT PRIMARY KEY,
		platform         TEXT NOT NULL DEFAULT '',
		username         TEXT NOT NULL DEFAULT '',
		credential_index INTEGER NOT NULL DEFAULT 0,
		last_synced_at   DATETIME,
		created_at       DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS post_bindings (
		post_id          TEXT PRIMARY KEY,
		job_id           TEXT NOT NULL DEFAULT '',
		credential_index INTEGER NOT NULL,
		created_at       DATETIME NOT NULL
	);
	`)
	return err
}
