package repository

import (
	"context"
	"time"

	"reelhub-api/internal/model"
)

// BatchRepository stores master batches, their jobs and job overrides.
// Lookups of missing entities fail with model.ErrNotFound.
type BatchRepository interface {
	// CreateBatch inserts a batch. Its JobIDs are ignored; jobs are created with CreateJob.
	CreateBatch(ctx context.Context, batch *model.Batch) error

	// GetBatch returns the batch with its ordered job ids.
	GetBatch(ctx context.Context, id string) (*model.Batch, error)

	// UpdateMasterConfig replaces the master configuration of a master batch.
	UpdateMasterConfig(ctx context.Context, batchID string, cfg model.MasterConfig) error

	// CreateJob inserts a job and its initial override.
	CreateJob(ctx context.Context, job *model.Job) error

	// GetJob returns a job with its override.
	GetJob(ctx context.Context, id string) (*model.Job, error)

	// GetJobOverride returns the stored override, every field state included.
	GetJobOverride(ctx context.Context, jobID string) (model.JobOverride, error)

	// SaveJobOverride replaces the stored override of an existing job.
	SaveJobOverride(ctx context.Context, jobID string, ov model.JobOverride) error
}

// AccountRepository stores external accounts and their sync freshness.
type AccountRepository interface {
	// UpsertAccount inserts or updates an account, leaving last_synced_at alone.
	UpsertAccount(ctx context.Context, account *model.Account) error

	// ListAccounts returns every account with its LastSyncedAt.
	ListAccounts(ctx context.Context) ([]model.Account, error)

	// GetAccountSyncState returns the last sync time, nil if never synced.
	GetAccountSyncState(ctx context.Context, accountID string) (*time.Time, error)

	// SaveAccountSyncState records a sync time for one account.
	SaveAccountSyncState(ctx context.Context, accountID string, at time.Time) error

	// TouchAccounts records one sync time for a whole run in a single transaction.
	TouchAccounts(ctx context.Context, accountIDs []string, at time.Time) error
}

// BindingRepository stores which pooled credential created each post.
type BindingRepository interface {
	// GetCredentialIndexForPost returns the bound index, model.ErrNotFound if none.
	GetCredentialIndexForPost(ctx context.Context, postID string) (int, error)

	// SaveCredentialIndexForPost records or replaces the binding for a post.
	SaveCredentialIndexForPost(ctx context.Context, binding model.CredentialBinding) error
}

// Store is the full persistence collaborator.
type Store interface {
	BatchRepository
	AccountRepository
	BindingRepository

	// Stats returns row counts for the admin dashboard.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the underlying connection.
	Close() error
}
