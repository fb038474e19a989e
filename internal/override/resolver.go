// Package override merges a master batch configuration with per-job overrides.
// Everything here is a pure function of its arguments.
package override

import (
	"fmt"
	"time"

	"reelhub-api/internal/model"
)

// ApplyPatch returns existing with patch applied field by field: an Unset patch
// field keeps the existing state, Cleared and Set replace it.
func ApplyPatch(existing model.JobOverride, patch model.OverridePatch) model.JobOverride {
	return model.JobOverride{
		Caption:      merge(existing.Caption, patch.Caption),
		PublishMode:  merge(existing.PublishMode, patch.PublishMode),
		ScheduledFor: merge(existing.ScheduledFor, patch.ScheduledFor),
		Timezone:     merge(existing.Timezone, patch.Timezone),
	}
}

func merge[T any](existing, patch model.Field[T]) model.Field[T] {
	if patch.State() == model.FieldUnset {
		return existing
	}
	return patch
}

// Resolve computes the effective configuration. Set overrides win; Cleared and
// Unset fall back to the master value.
func Resolve(master model.MasterConfig, ov model.JobOverride) model.EffectiveConfig {
	eff := model.EffectiveConfig{
		Caption:      ov.Caption.Or(master.Caption),
		PublishMode:  ov.PublishMode.Or(master.PublishMode),
		ScheduledFor: copyTime(master.ScheduledFor),
		Timezone:     ov.Timezone.Or(master.Timezone),
	}
	if t, ok := ov.ScheduledFor.Get(); ok {
		eff.ScheduledFor = &t
	}
	return eff
}

// ResolveForBatch resolves against the master configuration carried by batch.
// A batch that is not a master, or a master without configuration, is an
// ErrInvalidState: it is never treated as "no overrides".
func ResolveForBatch(batch *model.Batch, ov model.JobOverride) (model.EffectiveConfig, error) {
	if batch == nil {
		return model.EffectiveConfig{}, fmt.Errorf("nil batch: %w", model.ErrInvalidState)
	}
	if !batch.IsMaster {
		return model.EffectiveConfig{}, fmt.Errorf("batch %s is not a master batch: %w", batch.ID, model.ErrInvalidState)
	}
	if batch.MasterConfig == nil {
		return model.EffectiveConfig{}, fmt.Errorf("master batch %s has no configuration: %w", batch.ID, model.ErrInvalidState)
	}
	return Resolve(*batch.MasterConfig, ov), nil
}

// MergeMaster applies a patch to a master configuration. Absent fields are kept;
// a null scheduled_for removes the schedule. Null on the other fields is
// ignored because a master always carries a value for them.
func MergeMaster(master model.MasterConfig, patch model.MasterPatch) model.MasterConfig {
	out := master
	out.ScheduledFor = copyTime(master.ScheduledFor)
	if v, ok := patch.Caption.Get(); ok {
		out.Caption = v
	}
	if v, ok := patch.PublishMode.Get(); ok {
		out.PublishMode = v
	}
	if v, ok := patch.Timezone.Get(); ok {
		out.Timezone = v
	}
	switch patch.ScheduledFor.State() {
	case model.FieldSet:
		t, _ := patch.ScheduledFor.Get()
		out.ScheduledFor = &t
	case model.FieldCleared:
		out.ScheduledFor = nil
	}
	return out
}

// IsEmpty reports whether ov has no Set field, i.e. resolves to the master unchanged.
func IsEmpty(ov model.JobOverride) bool {
	return !ov.Caption.IsSet() && !ov.PublishMode.IsSet() && !ov.ScheduledFor.IsSet() && !ov.Timezone.IsSet()
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
