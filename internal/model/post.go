package model

import (
	"encoding/json"
	"time"
)

// Action is an operation issued to the publishing provider.
type Action string

const (
	ActionPublish Action = "publish"
	ActionRetry   Action = "retry"
	ActionDelete  Action = "delete"
	ActionLogs    Action = "logs"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionPublish, ActionRetry, ActionDelete, ActionLogs:
		return true
	}
	return false
}

// ProviderResult is what the publishing provider returned for an action.
type ProviderResult struct {
	PostID string          `json:"post_id,omitempty"`
	Status string          `json:"status,omitempty"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

// CredentialBinding durably associates a post with the pool index that created it.
type CredentialBinding struct {
	PostID          string    `json:"post_id"`
	JobID           string    `json:"job_id,omitempty"`
	CredentialIndex int       `json:"credential_index"`
	CreatedAt       time.Time `json:"created_at"`
}

// PublishOutcome is returned by the publish router.
type PublishOutcome struct {
	PostID          string         `json:"post_id"`
	CredentialIndex int            `json:"credential_index"`
	Result          ProviderResult `json:"result"`
}
