package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelhub-api/internal/model"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_Batches(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 6, 1, 10, 30, 0, 0, time.UTC)

	master := &model.Batch{
		ID:       "b-master",
		IsMaster: true,
		MasterConfig: &model.MasterConfig{
			Caption:      "Hello",
			PublishMode:  model.PublishSchedule,
			ScheduledFor: &at,
			Timezone:     "UTC",
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.CreateBatch(ctx, master))
	require.NoError(t, store.CreateBatch(ctx, &model.Batch{ID: "b-plain", CreatedAt: time.Now()}))

	for _, id := range []string{"j1", "j2", "j3"} {
		require.NoError(t, store.CreateJob(ctx, &model.Job{ID: id, BatchID: "b-master", CreatedAt: time.Now()}))
	}

	got, err := store.GetBatch(ctx, "b-master")
	require.NoError(t, err)
	assert.True(t, got.IsMaster)
	require.NotNil(t, got.MasterConfig)
	assert.Equal(t, "Hello", got.MasterConfig.Caption)
	assert.Equal(t, model.PublishSchedule, got.MasterConfig.PublishMode)
	require.NotNil(t, got.MasterConfig.ScheduledFor)
	assert.True(t, at.Equal(*got.MasterConfig.ScheduledFor))
	assert.Equal(t, []string{"j1", "j2", "j3"}, got.JobIDs)

	plain, err := store.GetBatch(ctx, "b-plain")
	require.NoError(t, err)
	assert.False(t, plain.IsMaster)
	assert.Nil(t, plain.MasterConfig)
	assert.Empty(t, plain.JobIDs)

	_, err = store.GetBatch(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	updated := *master.MasterConfig
	updated.Caption = "Changed"
	updated.ScheduledFor = nil
	require.NoError(t, store.UpdateMasterConfig(ctx, "b-master", updated))
	got, err = store.GetBatch(ctx, "b-master")
	require.NoError(t, err)
	assert.Equal(t, "Changed", got.MasterConfig.Caption)
	assert.Nil(t, got.MasterConfig.ScheduledFor)

	assert.ErrorIs(t, store.UpdateMasterConfig(ctx, "b-plain", updated), model.ErrNotFound)
}

func TestSQLiteStore_RejectsInconsistentBatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.CreateBatch(ctx, &model.Batch{ID: "x", IsMaster: true})
	assert.ErrorIs(t, err, model.ErrInvalidState)

	err = store.CreateBatch(ctx, &model.Batch{ID: "y", MasterConfig: &model.MasterConfig{}})
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestSQLiteStore_OverrideStatesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateBatch(ctx, &model.Batch{
		ID: "b", IsMaster: true, MasterConfig: &model.MasterConfig{Caption: "c", PublishMode: model.PublishQueue, Timezone: "UTC"},
		CreatedAt: time.Now(),
	}))
	require.NoError(t, store.CreateJob(ctx, &model.Job{ID: "j", BatchID: "b", CreatedAt: time.Now()}))

	empty, err := store.GetJobOverride(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, model.JobOverride{}, empty)

	at := time.Date(2026, 7, 4, 8, 0, 0, 0, time.UTC)
	ov := model.JobOverride{
		Caption:      model.Set("Hi"),
		PublishMode:  model.Cleared[model.PublishMode](),
		ScheduledFor: model.Set(at),
	}
	require.NoError(t, store.SaveJobOverride(ctx, "j", ov))

	got, err := store.GetJobOverride(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, model.FieldSet, got.Caption.State())
	assert.Equal(t, "Hi", got.Caption.Or(""))
	assert.Equal(t, model.FieldCleared, got.PublishMode.State())
	assert.Equal(t, model.FieldUnset, got.Timezone.State())
	sched, ok := got.ScheduledFor.Get()
	require.True(t, ok)
	assert.True(t, at.Equal(sched))

	job, err := store.GetJob(ctx, "j")
	require.NoError(t, err)
	assert.Equal(t, "b", job.BatchID)
	assert.Equal(t, model.FieldCleared, job.Override.PublishMode.State())

	_, err = store.GetJobOverride(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.ErrorIs(t, store.SaveJobOverride(ctx, "nope", ov), model.ErrNotFound)
	_, err = store.GetJob(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSQLiteStore_Accounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, store.UpsertAccount(ctx, &model.Account{ID: id, Platform: "tiktok", Username: id, CredentialIndex: i}))
	}
	require.NoError(t, store.UpsertAccount(ctx, &model.Account{ID: "a1", Platform: "instagram", Username: "renamed", CredentialIndex: 2}))

	last, err := store.GetAccountSyncState(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, last)

	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveAccountSyncState(ctx, "a1", at))
	assert.ErrorIs(t, store.SaveAccountSyncState(ctx, "ghost", at), model.ErrNotFound)
	_, err = store.GetAccountSyncState(ctx, "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)

	later := at.Add(time.Hour)
	require.NoError(t, store.TouchAccounts(ctx, []string{"a2", "a3"}, later))
	require.NoError(t, store.TouchAccounts(ctx, nil, later))

	accounts, err := store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)

	byID := map[string]model.Account{}
	for _, a := range accounts {
		byID[a.ID] = a
	}
	assert.Equal(t, "instagram", byID["a1"].Platform)
	assert.Equal(t, 2, byID["a1"].CredentialIndex)
	require.NotNil(t, byID["a1"].LastSyncedAt)
	assert.True(t, at.Equal(*byID["a1"].LastSyncedAt))
	for _, id := range []string{"a2", "a3"} {
		require.NotNil(t, byID[id].LastSyncedAt)
		assert.True(t, later.Equal(*byID[id].LastSyncedAt))
	}
}

func TestSQLiteStore_Bindings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetCredentialIndexForPost(ctx, "p1")
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, store.SaveCredentialIndexForPost(ctx, model.CredentialBinding{PostID: "p1", JobID: "j1", CredentialIndex: 2}))
	idx, err := store.GetCredentialIndexForPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	require.NoError(t, store.SaveCredentialIndexForPost(ctx, model.CredentialBinding{PostID: "p1", CredentialIndex: 1}))
	idx, err = store.GetCredentialIndexForPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", stats["backend"])
	assert.EqualValues(t, 1, stats["post_bindings"])
}

func TestDialectUpsert(t *testing.T) {
	assert.Equal(t,
		" ON CONFLICT(id) DO UPDATE SET a = excluded.a, b = excluded.b",
		sqliteDialect.upsert("id", "a", "b"))
	assert.Equal(t,
		" ON DUPLICATE KEY UPDATE a = VALUES(a), b = VALUES(b)",
		mysqlDialect.upsert("id", "a", "b"))
	assert.Equal(t,
		" ON CONFLICT(id) DO UPDATE SET a = excluded.a, b = excluded.b",
		postgresDialect.upsert("id", "a", "b"))
}

func TestDialectRebind(t *testing.T) {
	q := `UPDATE t SET a = ? WHERE id IN (?,?)`
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, q, mysqlDialect.rebind(q))
	assert.Equal(t, `UPDATE t SET a = $1 WHERE id IN ($2,$3)`, postgresDialect.rebind(q))
}
