package model

import (
	"encoding/json"
	"time"
)

// Account is an external social account whose analytics are synced through
// the credential at CredentialIndex.
type Account struct {
	ID              string     `json:"id"`
	Platform        string     `json:"platform"`
	Username        string     `json:"username"`
	CredentialIndex int        `json:"credential_index"`
	LastSyncedAt    *time.Time `json:"last_synced_at,omitempty"`
}

// SyncStatus tags the outcome of one account's sync call.
type SyncStatus string

const (
	SyncSucceeded SyncStatus = "success"
	SyncFailed    SyncStatus = "failure"
)

// AccountSyncResult is the outcome for one account in a fleet sync run.
type AccountSyncResult struct {
	AccountID string          `json:"account_id"`
	Status    SyncStatus      `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Duration  time.Duration   `json:"duration_ns"`
}

// SyncReport is returned by every fleet sync invocation. When Skipped is true
// Results is empty and Reason explains why.
type SyncReport struct {
	Skipped   bool                `json:"skipped"`
	Reason    string              `json:"reason,omitempty"`
	Processed int                 `json:"processed"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Results   []AccountSyncResult `json:"results"`
	SyncedAt  *time.Time          `json:"synced_at,omitempty"`
}
