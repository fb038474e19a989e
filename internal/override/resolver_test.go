package override

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelhub-api/internal/model"
)

func testMaster() model.MasterConfig {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return model.MasterConfig{
		Caption:      "Hello",
		PublishMode:  model.PublishSchedule,
		ScheduledFor: &at,
		Timezone:     "UTC",
	}
}

func TestResolve_InheritsWhenNothingSet(t *testing.T) {
	m := testMaster()
	want := model.EffectiveConfig{
		Caption:      m.Caption,
		PublishMode:  m.PublishMode,
		ScheduledFor: m.ScheduledFor,
		Timezone:     m.Timezone,
	}

	overrides := []model.JobOverride{
		{},
		{Caption: model.Cleared[string](), PublishMode: model.Cleared[model.PublishMode]()},
		{
			Caption:      model.Cleared[string](),
			PublishMode:  model.Cleared[model.PublishMode](),
			ScheduledFor: model.Cleared[time.Time](),
			Timezone:     model.Cleared[string](),
		},
	}
	for _, ov := range overrides {
		assert.Equal(t, want, Resolve(m, ov))
		assert.True(t, IsEmpty(ov))
	}
}

func TestResolve_SetFieldsWin(t *testing.T) {
	at := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	ov := model.JobOverride{
		Caption:      model.Set("Hi"),
		PublishMode:  model.Set(model.PublishNow),
		ScheduledFor: model.Set(at),
		Timezone:     model.Set("Europe/Berlin"),
	}

	for _, m := range []model.MasterConfig{testMaster(), {}} {
		eff := Resolve(m, ov)
		assert.Equal(t, "Hi", eff.Caption)
		assert.Equal(t, model.PublishNow, eff.PublishMode)
		require.NotNil(t, eff.ScheduledFor)
		assert.True(t, at.Equal(*eff.ScheduledFor))
		assert.Equal(t, "Europe/Berlin", eff.Timezone)
	}
	assert.False(t, IsEmpty(ov))
}

func TestResolve_DoesNotAliasMasterSchedule(t *testing.T) {
	m := testMaster()
	eff := Resolve(m, model.JobOverride{})
	require.NotNil(t, eff.ScheduledFor)
	*eff.ScheduledFor = eff.ScheduledFor.Add(time.Hour)
	assert.Equal(t, 9, m.ScheduledFor.Hour())
}

func TestApplyPatch_EmptyPatchKeepsExisting(t *testing.T) {
	existing := model.JobOverride{
		Caption:     model.Set("keep"),
		PublishMode: model.Cleared[model.PublishMode](),
	}
	assert.Equal(t, existing, ApplyPatch(existing, model.OverridePatch{}))
}

func TestApplyPatch_Idempotent(t *testing.T) {
	patch := model.OverridePatch{Caption: model.Set("Hi"), Timezone: model.Set("Asia/Tokyo")}

	once := ApplyPatch(model.JobOverride{}, patch)
	twice := ApplyPatch(once, patch)
	assert.Equal(t, once, twice)
}

func TestApplyPatch_ClearRestoresInheritance(t *testing.T) {
	m := testMaster()
	set := ApplyPatch(model.JobOverride{}, model.OverridePatch{Caption: model.Set("Hi")})
	assert.Equal(t, "Hi", Resolve(m, set).Caption)

	cleared := ApplyPatch(set, model.OverridePatch{Caption: model.Cleared[string]()})
	assert.True(t, cleared.Caption.IsCleared())
	assert.Equal(t, m.Caption, Resolve(m, cleared).Caption)
}

func TestApplyPatch_FromJSON(t *testing.T) {
	var patch model.OverridePatch
	require.NoError(t, json.Unmarshal([]byte(`{"caption_override":"Hi","publish_mode_override":null}`), &patch))

	got := ApplyPatch(model.JobOverride{}, patch)
	assert.Equal(t, model.FieldSet, got.Caption.State())
	assert.Equal(t, model.FieldCleared, got.PublishMode.State())
	assert.Equal(t, model.FieldUnset, got.ScheduledFor.State())
	assert.Equal(t, model.FieldUnset, got.Timezone.State())

	m := model.MasterConfig{Caption: "Hello", PublishMode: model.PublishQueue, Timezone: "UTC"}
	assert.Equal(t, model.EffectiveConfig{
		Caption:     "Hi",
		PublishMode: model.PublishQueue,
		Timezone:    "UTC",
	}, Resolve(m, got))
}

func TestResolveForBatch(t *testing.T) {
	m := testMaster()

	_, err := ResolveForBatch(&model.Batch{ID: "b1", IsMaster: false}, model.JobOverride{})
	assert.ErrorIs(t, err, model.ErrInvalidState)

	_, err = ResolveForBatch(&model.Batch{ID: "b2", IsMaster: true}, model.JobOverride{})
	assert.ErrorIs(t, err, model.ErrInvalidState)

	_, err = ResolveForBatch(nil, model.JobOverride{})
	assert.ErrorIs(t, err, model.ErrInvalidState)

	eff, err := ResolveForBatch(&model.Batch{ID: "b3", IsMaster: true, MasterConfig: &m}, model.JobOverride{Caption: model.Set("x")})
	require.NoError(t, err)
	assert.Equal(t, "x", eff.Caption)
	assert.Equal(t, m.Timezone, eff.Timezone)
}

func TestMergeMaster(t *testing.T) {
	m := testMaster()

	got := MergeMaster(m, model.MasterPatch{Caption: model.Set("New"), ScheduledFor: model.Cleared[time.Time]()})
	assert.Equal(t, "New", got.Caption)
	assert.Nil(t, got.ScheduledFor)
	assert.Equal(t, m.PublishMode, got.PublishMode)
	assert.NotNil(t, m.ScheduledFor)

	same := MergeMaster(m, model.MasterPatch{Caption: model.Cleared[string]()})
	assert.Equal(t, m.Caption, same.Caption)
}
