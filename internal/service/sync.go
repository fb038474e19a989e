package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"reelhub-api/internal/credential"
	"reelhub-api/internal/model"
	"reelhub-api/internal/repository"
	"reelhub-api/pkg/logger"
)

// AnalyticsProvider pulls analytics for one account.
type AnalyticsProvider interface {
	SyncAccount(ctx context.Context, credential, accountID string) (json.RawMessage, error)
}

// SyncConfig holds configuration for the sync orchestrator.
type SyncConfig struct {
	// Freshness is how long a sync stays fresh. Default: 24 hours
	Freshness time.Duration

	// Timeout bounds a whole run. Default: 2 minutes
	Timeout time.Duration

	// CallTimeout bounds one account's provider call. Default: 30 seconds
	CallTimeout time.Duration

	// Concurrency caps in-flight provider calls. Default: 10
	Concurrency int
}

// DefaultSyncConfig returns default sync configuration.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Freshness:   24 * time.Hour,
		Timeout:     2 * time.Minute,
		CallTimeout: 30 * time.Second,
		Concurrency: 10,
	}
}

// touchTimeout bounds the final bulk write, which runs even after the run deadline.
const touchTimeout = 10 * time.Second

// SyncOrchestrator runs freshness-gated analytics syncs across the account fleet.
type SyncOrchestrator struct {
	accounts  repository.AccountRepository
	pool      *credential.Pool
	analytics AnalyticsProvider
	config    SyncConfig
	now       func() time.Time
	log       *zap.Logger
}

// NewSyncOrchestrator creates an orchestrator, filling zero config values with defaults.
func NewSyncOrchestrator(accounts repository.AccountRepository, pool *credential.Pool, analytics AnalyticsProvider, config SyncConfig) *SyncOrchestrator {
	def := DefaultSyncConfig()
	if config.Freshness <= 0 {
		config.Freshness = def.Freshness
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = def.CallTimeout
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}

	return &SyncOrchestrator{
		accounts:  accounts,
		pool:      pool,
		analytics: analytics,
		config:    config,
		now:       time.Now,
		log:       logger.Named("sync"),
	}
}

// RunAll loads every stored account and runs a sync over them.
func (o *SyncOrchestrator) RunAll(ctx context.Context, force bool) (*model.SyncReport, error) {
	accounts, err := o.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return o.Run(ctx, accounts, force)
}

// Run syncs accounts unless force is false and every one of them is fresh.
// Per-account failures are reported in the results; the returned error is
// non-nil only when the run's sync time could not be recorded.
func (o *SyncOrchestrator) Run(ctx context.Context, accounts []model.Account, force bool) (*model.SyncReport, error) {
	now := o.now()

	if !force && o.allFresh(accounts, now) {
		reason := fmt.Sprintf("all %d accounts synced within the last %s", len(accounts), o.config.Freshness)
		o.log.Info("sync skipped", zap.String("reason", reason))
		return &model.SyncReport{Skipped: true, Reason: reason, Results: []model.AccountSyncResult{}}, nil
	}

	results := o.fanOut(ctx, accounts)

	report := &model.SyncReport{
		Processed: len(results),
		Results:   results,
		SyncedAt:  &now,
	}
	for _, r := range results {
		if r.Status == model.SyncSucceeded {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	// Every account in the run is touched, failed ones included.
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	touchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), touchTimeout)
	defer cancel()
	if err := o.accounts.TouchAccounts(touchCtx, ids, now); err != nil {
		o.log.Error("failed to record sync time", zap.Int("accounts", len(ids)), zap.Error(err))
		return report, fmt.Errorf("failed to record sync time: %w", err)
	}

	o.log.Info("sync completed",
		zap.Bool("forced", force),
		zap.Int("processed", report.Processed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (o *SyncOrchestrator) allFresh(accounts []model.Account, now time.Time) bool {
	if len(accounts) == 0 {
		return false
	}
	for _, a := range accounts {
		if a.LastSyncedAt == nil || now.Sub(*a.LastSyncedAt) >= o.config.Freshness {
			return false
		}
	}
	return true
}

// fanOut syncs every account concurrently. Results keep the input order.
func (o *SyncOrchestrator) fanOut(ctx context.Context, accounts []model.Account) []model.AccountSyncResult {
	runCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	results := make([]model.AccountSyncResult, len(accounts))
	g := new(errgroup.Group)
	g.SetLimit(o.config.Concurrency)
	for i, acc := range accounts {
		i, acc := i, acc
		g.Go(func() error {
			results[i] = o.syncOne(runCtx, acc)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

type syncOutcome struct {
	data json.RawMessage
	err  error
}

func (o *SyncOrchestrator) syncOne(ctx context.Context, acc model.Account) model.AccountSyncResult {
	start := time.Now()
	res := model.AccountSyncResult{AccountID: acc.ID}

	data, err := o.callWithTimeout(ctx, acc)
	res.Duration = time.Since(start)
	if err != nil {
		o.log.Warn("account sync failed", zap.String("account_id", acc.ID), zap.Error(err))
		res.Status = model.SyncFailed
		res.Error = err.Error()
		return res
	}
	res.Status = model.SyncSucceeded
	res.Data = data
	return res
}

// callWithTimeout returns when the provider answers or the call deadline
// passes, whichever comes first.
func (o *SyncOrchestrator) callWithTimeout(ctx context.Context, acc model.Account) (json.RawMessage, error) {
	key, err := o.pool.Resolve(acc.CredentialIndex)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sync of account %s not started: %w", acc.ID, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.config.CallTimeout)
	defer cancel()

	done := make(chan syncOutcome, 1)
	go func() {
		data, err := o.analytics.SyncAccount(callCtx, key, acc.ID)
		done <- syncOutcome{data: data, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if callCtx.Err() != nil {
				return nil, timeoutError(acc.ID, callCtx.Err())
			}
			return nil, model.NewExternalError("analytics", out.err)
		}
		return out.data, nil
	case <-callCtx.Done():
		return nil, timeoutError(acc.ID, callCtx.Err())
	}
}

func timeoutError(accountID string, err error) error {
	return fmt.Errorf("sync of account %s timed out: %w", accountID, err)
}
