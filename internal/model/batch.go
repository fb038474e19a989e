package model

import "time"

// PublishMode controls when a post goes out.
type PublishMode string

const (
	PublishNow      PublishMode = "now"
	PublishSchedule PublishMode = "schedule"
	PublishQueue    PublishMode = "queue"
	PublishDraft    PublishMode = "draft"
)

// Valid reports whether m is one of the known modes.
func (m PublishMode) Valid() bool {
	switch m {
	case PublishNow, PublishSchedule, PublishQueue, PublishDraft:
		return true
	}
	return false
}

// MasterConfig is the publishing configuration every job of a master batch inherits.
type MasterConfig struct {
	Caption      string      `json:"caption"`
	PublishMode  PublishMode `json:"publish_mode"`
	ScheduledFor *time.Time  `json:"scheduled_for,omitempty"`
	Timezone     string      `json:"timezone"`
}

// Batch groups derived jobs. MasterConfig is present iff IsMaster.
type Batch struct {
	ID           string        `json:"id"`
	IsMaster     bool          `json:"is_master"`
	MasterConfig *MasterConfig `json:"master_config,omitempty"`
	JobIDs       []string      `json:"job_ids"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Job is a unit of work derived from a batch.
type Job struct {
	ID        string      `json:"id"`
	BatchID   string      `json:"batch_id"`
	Override  JobOverride `json:"override"`
	CreatedAt time.Time   `json:"created_at"`
}

// JobOverride holds the per-job deviations from the master configuration.
// An override with every field Unset is valid and means full inheritance.
type JobOverride struct {
	Caption      Field[string]      `json:"caption_override,omitzero"`
	PublishMode  Field[PublishMode] `json:"publish_mode_override,omitzero"`
	ScheduledFor Field[time.Time]   `json:"scheduled_for_override,omitzero"`
	Timezone     Field[string]      `json:"timezone_override,omitzero"`
}

// OverridePatch is an incoming change to a JobOverride. Each field is
// independently absent (Unset), null (Cleared) or a value (Set).
type OverridePatch JobOverride

// MasterPatch is an incoming change to a MasterConfig. Absent fields are kept;
// null is only meaningful for scheduled_for, which becomes absent.
type MasterPatch struct {
	Caption      Field[string]      `json:"caption,omitzero"`
	PublishMode  Field[PublishMode] `json:"publish_mode,omitzero"`
	ScheduledFor Field[time.Time]   `json:"scheduled_for,omitzero"`
	Timezone     Field[string]      `json:"timezone,omitzero"`
}

// EffectiveConfig is the resolved configuration used at execution time. Never stored.
type EffectiveConfig struct {
	Caption      string      `json:"caption"`
	PublishMode  PublishMode `json:"publish_mode"`
	ScheduledFor *time.Time  `json:"scheduled_for,omitempty"`
	Timezone     string      `json:"timezone"`
}
