package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelhub-api/internal/model"
	"reelhub-api/internal/repository"
)

func newTestBatchService(t *testing.T) (*BatchService, repository.Store) {
	t.Helper()
	store, err := repository.NewSQLiteStore(filepath.Join(t.TempDir(), "batch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewBatchService(store), store
}

func TestBatchService_CreateAndResolve(t *testing.T) {
	svc, _ := newTestBatchService(t)
	ctx := context.Background()

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{
		Master:   model.MasterConfig{Caption: "Launch day", PublishMode: model.PublishQueue, Timezone: "Asia/Jakarta"},
		JobCount: 3,
	})
	require.NoError(t, err)
	assert.True(t, batch.IsMaster)
	require.Len(t, batch.JobIDs, 3)

	jobID := batch.JobIDs[1]
	eff, err := svc.EffectiveConfig(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "Launch day", eff.Caption)
	assert.Equal(t, model.PublishQueue, eff.PublishMode)

	var patch model.OverridePatch
	require.NoError(t, json.Unmarshal([]byte(`{"caption_override":"Only this one","timezone_override":"UTC"}`), &patch))
	ov, err := svc.PatchOverride(ctx, jobID, patch)
	require.NoError(t, err)
	assert.True(t, ov.Caption.IsSet())

	eff, err = svc.EffectiveConfig(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "Only this one", eff.Caption)
	assert.Equal(t, "UTC", eff.Timezone)

	// Clearing the caption returns it to the master's value; timezone is untouched.
	patch = model.OverridePatch{}
	require.NoError(t, json.Unmarshal([]byte(`{"caption_override":null}`), &patch))
	_, err = svc.PatchOverride(ctx, jobID, patch)
	require.NoError(t, err)

	eff, err = svc.EffectiveConfig(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, "Launch day", eff.Caption)
	assert.Equal(t, "UTC", eff.Timezone)

	stored, err := svc.GetOverride(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, model.FieldCleared, stored.Caption.State())
}

func TestBatchService_PatchMasterCascades(t *testing.T) {
	svc, _ := newTestBatchService(t)
	ctx := context.Background()

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{
		Master:   model.MasterConfig{Caption: "v1", PublishMode: model.PublishDraft},
		JobCount: 2,
	})
	require.NoError(t, err)

	_, err = svc.PatchOverride(ctx, batch.JobIDs[0], model.OverridePatch{Caption: model.Set("pinned")})
	require.NoError(t, err)

	at := time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)
	master, err := svc.PatchMaster(ctx, batch.ID, model.MasterPatch{
		Caption:      model.Set("v2"),
		PublishMode:  model.Set(model.PublishSchedule),
		ScheduledFor: model.Set(at),
	})
	require.NoError(t, err)
	assert.Equal(t, "v2", master.Caption)

	pinned, err := svc.EffectiveConfig(ctx, batch.JobIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "pinned", pinned.Caption)
	assert.Equal(t, model.PublishSchedule, pinned.PublishMode)

	inherited, err := svc.EffectiveConfig(ctx, batch.JobIDs[1])
	require.NoError(t, err)
	assert.Equal(t, "v2", inherited.Caption)
	require.NotNil(t, inherited.ScheduledFor)
	assert.True(t, at.Equal(*inherited.ScheduledFor))
}

func TestBatchService_NonMasterBatchIsInvalidState(t *testing.T) {
	svc, store := newTestBatchService(t)
	ctx := context.Background()

	require.NoError(t, store.CreateBatch(ctx, &model.Batch{ID: "plain", CreatedAt: time.Now()}))
	require.NoError(t, store.CreateJob(ctx, &model.Job{ID: "orphan", BatchID: "plain", CreatedAt: time.Now()}))

	_, err := svc.EffectiveConfig(ctx, "orphan")
	assert.ErrorIs(t, err, model.ErrInvalidState)

	_, err = svc.PatchMaster(ctx, "plain", model.MasterPatch{Caption: model.Set("x")})
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestBatchService_Validation(t *testing.T) {
	svc, _ := newTestBatchService(t)
	ctx := context.Background()

	_, err := svc.CreateBatch(ctx, CreateBatchInput{Master: model.MasterConfig{PublishMode: "later"}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.CreateBatch(ctx, CreateBatchInput{Master: model.MasterConfig{PublishMode: model.PublishSchedule}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.CreateBatch(ctx, CreateBatchInput{Master: model.MasterConfig{PublishMode: model.PublishNow, Timezone: "Mars/Olympus"}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.CreateBatch(ctx, CreateBatchInput{Master: model.MasterConfig{PublishMode: model.PublishNow}, JobCount: MaxJobsPerBatch + 1})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	batch, err := svc.CreateBatch(ctx, CreateBatchInput{Master: model.MasterConfig{PublishMode: model.PublishNow}, JobCount: 1})
	require.NoError(t, err)

	_, err = svc.PatchOverride(ctx, batch.JobIDs[0], model.OverridePatch{PublishMode: model.Set(model.PublishMode("soon"))})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = svc.PatchOverride(ctx, "missing", model.OverridePatch{})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = svc.EffectiveConfig(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}
