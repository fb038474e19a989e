package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"reelhub-api/internal/model"
)

// dialect captures the statements that differ between backends.
type dialect struct {
	name string
	// upsert appends the conflict clause updating cols from the inserted row.
	upsert func(key string, cols ...string) string
	// bind rewrites ? placeholders; nil keeps them.
	bind func(query string) string
}

func (d dialect) rebind(query string) string {
	if d.bind == nil {
		return query
	}
	return d.bind(query)
}

func conflictUpdate(key string, cols []string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET %s", key, strings.Join(sets, ", "))
}

var sqliteDialect = dialect{
	name: "sqlite",
	upsert: func(key string, cols ...string) string {
		return conflictUpdate(key, cols)
	},
}

var mysqlDialect = dialect{
	name: "mysql",
	upsert: func(key string, cols ...string) string {
		sets := make([]string, len(cols))
		for i, c := range cols {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	},
}

var postgresDialect = dialect{
	name: "postgres",
	upsert: func(key string, cols ...string) string {
		return conflictUpdate(key, cols)
	},
	bind: func(query string) string {
		var b strings.Builder
		b.Grow(len(query) + 8)
		n := 0
		for _, r := range query {
			if r == '?' {
				n++
				fmt.Fprintf(&b, "$%d", n)
				continue
			}
			b.WriteRune(r)
		}
		return b.String()
	},
}

// sqlStore implements Store over database/sql. All backends share it; only
// schema creation, placeholders and the upsert clause differ.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
}

func (s *sqlStore) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *sqlStore) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *sqlStore) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// ---- batches -------------------------------------------------------------

func (s *sqlStore) CreateBatch(ctx context.Context, b *model.Batch) error {
	if b.IsMaster && b.MasterConfig == nil {
		return fmt.Errorf("master batch %s without configuration: %w", b.ID, model.ErrInvalidState)
	}
	if !b.IsMaster && b.MasterConfig != nil {
		return fmt.Errorf("non-master batch %s carries a configuration: %w", b.ID, model.ErrInvalidState)
	}

	var (
		caption, mode, tz sql.NullString
		sched             sql.NullTime
	)
	if m := b.MasterConfig; m != nil {
		caption = sql.NullString{String: m.Caption, Valid: true}
		mode = sql.NullString{String: string(m.PublishMode), Valid: true}
		tz = sql.NullString{String: m.Timezone, Valid: true}
		sched = nullTime(m.ScheduledFor)
	}

	_, err := s.exec(ctx, `
		INSERT INTO batches (id, is_master, caption, publish_mode, scheduled_for, timezone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.IsMaster, caption, mode, sched, tz, b.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

func (s *sqlStore) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	var (
		b                 model.Batch
		caption, mode, tz sql.NullString
		sched             sql.NullTime
	)
	err := s.queryRow(ctx, `
		SELECT id, is_master, caption, publish_mode, scheduled_for, timezone, created_at
		FROM batches WHERE id = ?`, id).
		Scan(&b.ID, &b.IsMaster, &caption, &mode, &sched, &tz, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("batch %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	// A non-master batch never carries a configuration, whatever the columns hold.
	if b.IsMaster && caption.Valid {
		b.MasterConfig = &model.MasterConfig{
			Caption:      caption.String,
			PublishMode:  model.PublishMode(mode.String),
			ScheduledFor: timePtr(sched),
			Timezone:     tz.String,
		}
	}

	rows, err := s.query(ctx, `SELECT id FROM jobs WHERE batch_id = ? ORDER BY position, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	b.JobIDs = []string{}
	for rows.Next() {
		var jobID string
		if err := rows.Scan(&jobID); err != nil {
			return nil, fmt.Errorf("failed to scan job id: %w", err)
		}
		b.JobIDs = append(b.JobIDs, jobID)
	}
	return &b, rows.Err()
}

func (s *sqlStore) UpdateMasterConfig(ctx context.Context, batchID string, cfg model.MasterConfig) error {
	res, err := s.exec(ctx, `
		UPDATE batches SET caption = ?, publish_mode = ?, scheduled_for = ?, timezone = ?
		WHERE id = ? AND is_master = ?`,
		cfg.Caption, string(cfg.PublishMode), nullTime(cfg.ScheduledFor), cfg.Timezone, batchID, true)
	if err != nil {
		return fmt.Errorf("failed to update master config: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFoundf("master batch %s", batchID)
	}
	return nil
}

// ---- jobs ----------------------------------------------------------------

func (s *sqlStore) CreateJob(ctx context.Context, job *model.Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT COALESCE(MAX(position), -1) + 1 FROM jobs WHERE batch_id = ?`), job.BatchID).Scan(&position)
	if err != nil {
		return fmt.Errorf("failed to compute job position: %w", err)
	}

	args := []interface{}{job.ID, job.BatchID, position, job.CreatedAt.UTC()}
	args = append(args, overrideArgs(job.Override)...)
	_, err = tx.ExecContext(ctx, s.dialect.rebind(`
		INSERT INTO jobs (id, batch_id, position, created_at,
			caption_state, caption_value, mode_state, mode_value,
			sched_state, sched_value, tz_state, tz_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`), args...)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return tx.Commit()
}

func (s *sqlStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	var ov overrideRow
	err := s.queryRow(ctx, `
		SELECT id, batch_id, created_at,
			caption_state, caption_value, mode_state, mode_value,
			sched_state, sched_value, tz_state, tz_value
		FROM jobs WHERE id = ?`, id).
		Scan(append([]interface{}{&job.ID, &job.BatchID, &job.CreatedAt}, ov.dest()...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("job %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	job.Override = ov.override()
	return &job, nil
}

func (s *sqlStore) GetJobOverride(ctx context.Context, jobID string) (model.JobOverride, error) {
	var ov overrideRow
	err := s.queryRow(ctx, `
		SELECT caption_state, caption_value, mode_state, mode_value,
			sched_state, sched_value, tz_state, tz_value
		FROM jobs WHERE id = ?`, jobID).Scan(ov.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.JobOverride{}, model.NotFoundf("job %s", jobID)
	}
	if err != nil {
		return model.JobOverride{}, fmt.Errorf("failed to get job override: %w", err)
	}
	return ov.override(), nil
}

func (s *sqlStore) SaveJobOverride(ctx context.Context, jobID string, o model.JobOverride) error {
	args := append(overrideArgs(o), jobID)
	res, err := s.exec(ctx, `
		UPDATE jobs SET
			caption_state = ?, caption_value = ?, mode_state = ?, mode_value = ?,
			sched_state = ?, sched_value = ?, tz_state = ?, tz_value = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to save job override: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFoundf("job %s", jobID)
	}
	return nil
}

// overrideRow is the column form of a JobOverride: a state and a value per field.
type overrideRow struct {
	captionState, modeState, schedState, tzState int
	caption, mode, tz                            sql.NullString
	sched                                        sql.NullTime
}

func (r *overrideRow) dest() []interface{} {
	return []interface{}{
		&r.captionState, &r.caption, &r.modeState, &r.mode,
		&r.schedState, &r.sched, &r.tzState, &r.tz,
	}
}

func (r *overrideRow) override() model.JobOverride {
	var sched time.Time
	if r.sched.Valid {
		sched = r.sched.Time.UTC()
	}
	return model.JobOverride{
		Caption:      model.FieldOf(model.FieldState(r.captionState), r.caption.String),
		PublishMode:  model.FieldOf(model.FieldState(r.modeState), model.PublishMode(r.mode.String)),
		ScheduledFor: model.FieldOf(model.FieldState(r.schedState), sched),
		Timezone:     model.FieldOf(model.FieldState(r.tzState), r.tz.String),
	}
}

func overrideArgs(o model.JobOverride) []interface{} {
	caption, captionOK := o.Caption.Get()
	mode, modeOK := o.PublishMode.Get()
	sched, schedOK := o.ScheduledFor.Get()
	tz, tzOK := o.Timezone.Get()
	return []interface{}{
		int(o.Caption.State()), sql.NullString{String: caption, Valid: captionOK},
		int(o.PublishMode.State()), sql.NullString{String: string(mode), Valid: modeOK},
		int(o.ScheduledFor.State()), sql.NullTime{Time: sched.UTC(), Valid: schedOK},
		int(o.Timezone.State()), sql.NullString{String: tz, Valid: tzOK},
	}
}

// ---- accounts ------------------------------------------------------------

func (s *sqlStore) UpsertAccount(ctx context.Context, a *model.Account) error {
	query := `INSERT INTO accounts (id, platform, username, credential_index, created_at)
		VALUES (?, ?, ?, ?, ?)` + s.dialect.upsert("id", "platform", "username", "credential_index")

	_, err := s.exec(ctx, query, a.ID, a.Platform, a.Username, a.CredentialIndex, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

func (s *sqlStore) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.query(ctx, `
		SELECT id, platform, username, credential_index, last_synced_at
		FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		var a model.Account
		var last sql.NullTime
		if err := rows.Scan(&a.ID, &a.Platform, &a.Username, &a.CredentialIndex, &last); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.LastSyncedAt = timePtr(last)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *sqlStore) GetAccountSyncState(ctx context.Context, accountID string) (*time.Time, error) {
	var last sql.NullTime
	err := s.queryRow(ctx, `SELECT last_synced_at FROM accounts WHERE id = ?`, accountID).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundf("account %s", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	return timePtr(last), nil
}

func (s *sqlStore) SaveAccountSyncState(ctx context.Context, accountID string, at time.Time) error {
	res, err := s.exec(ctx, `UPDATE accounts SET last_synced_at = ? WHERE id = ?`, at.UTC(), accountID)
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFoundf("account %s", accountID)
	}
	return nil
}

func (s *sqlStore) TouchAccounts(ctx context.Context, accountIDs []string, at time.Time) error {
	if len(accountIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(accountIDs)), ",")
	args := make([]interface{}, 0, len(accountIDs)+1)
	args = append(args, at.UTC())
	for _, id := range accountIDs {
		args = append(args, id)
	}

	_, err := s.exec(ctx,
		`UPDATE accounts SET last_synced_at = ? WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to touch accounts: %w", err)
	}
	return nil
}

// ---- credential bindings -------------------------------------------------

func (s *sqlStore) GetCredentialIndexForPost(ctx context.Context, postID string) (int, error) {
	var idx int
	err := s.queryRow(ctx, `SELECT credential_index FROM post_bindings WHERE post_id = ?`, postID).Scan(&idx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.NotFoundf("binding for post %s", postID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get binding: %w", err)
	}
	return idx, nil
}

func (s *sqlStore) SaveCredentialIndexForPost(ctx context.Context, b model.CredentialBinding) error {
	created := b.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	query := `INSERT INTO post_bindings (post_id, job_id, credential_index, created_at)
		VALUES (?, ?, ?, ?)` + s.dialect.upsert("post_id", "job_id", "credential_index")

	_, err := s.exec(ctx, query, b.PostID, b.JobID, b.CredentialIndex, created.UTC())
	if err != nil {
		return fmt.Errorf("failed to save binding: %w", err)
	}
	return nil
}

// ---- misc ----------------------------------------------------------------

func (s *sqlStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": s.dialect.name}
	for _, table := range []string{"batches", "jobs", "accounts", "post_bindings"} {
		var n int64
		if err := s.queryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = n
	}

	var oldest sql.NullTime
	err := s.queryRow(ctx, `SELECT MIN(last_synced_at) FROM accounts`).Scan(&oldest)
	if err == nil && oldest.Valid {
		stats["oldest_account_sync"] = oldest.Time
	}
	return stats, nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

var _ Store = (*sqlStore)(nil)
