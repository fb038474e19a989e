package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"reelhub-api/pkg/logger"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// NewMySQLStore connects to MySQL. The DSN must enable parseTime and
// clientFoundRows so NotFound detection on UPDATE works for unchanged rows.
func NewMySQLStore(dsn string) (Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("mysql store initialized", zap.Int("max_open_conns", 10))
	return NewMySQLStoreWithDB(db), nil
}

// NewMySQLStoreWithDB wraps an open connection without creating tables.
func NewMySQLStoreWithDB(db *sql.DB) Store {
	return &sqlStore{db: db, dialect: mysqlDialect}
}

func createMySQLTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id            VARCHAR(64) PRIMARY KEY,
			is_master     TINYINT(1) NOT NULL DEFAULT 0,
			caption       TEXT NULL,
			publish_mode  VARCHAR(16) NULL,
			scheduled_for DATETIME(6) NULL,
			timezone      VARCHAR(64) NULL,
			created_at    DATETIME(6) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id            VARCHAR(64) PRIMARY KEY,
			batch_id      VARCHAR(64) NOT NULL,
			position      INT NOT NULL DEFAULT 0,
			created_at    DATETIME(6) NOT NULL,
			caption_state TINYINT NOT NULL DEFAULT 0,
			caption_value TEXT NULL,
			mode_state    TINYINT NOT NULL DEFAULT 0,
			mode_value    VARCHAR(16) NULL,
			sched_state   TINYINT NOT NULL DEFAULT 0,
			sched_value   DATETIME(6) NULL,
			tz_state      TINYINT NOT NULL DEFAULT 0,
			tz_value      VARCHAR(64) NULL,
			INDEX idx_jobs_batch (batch_id, position),
			CONSTRAINT fk_jobs_batch FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id               VARCHAR(128) PRIMARY KEY,
			platform         VARCHAR(32) NOT NULL DEFAULT '',
			username         VARCHAR(255) NOT NULL DEFAULT '',
			credential_index INT NOT NULL DEFAULT 0,
			last_synced_at   DATETIME(6) NULL,
			created_at       DATETIME(6) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS post_bindings (
			post_id          VARCHAR(128) PRIMARY KEY,
			job_id           VARCHAR(64) NOT NULL DEFAULT '',
			credential_index INT NOT NULL,
			created_at       DATETIME(6) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
