package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // embedded zoneinfo for LoadLocation

	"reelhub-api/internal/model"
	"reelhub-api/internal/override"
	"reelhub-api/internal/repository"
	"reelhub-api/pkg/uid"
)

// MaxJobsPerBatch bounds CreateBatch.
const MaxJobsPerBatch = 500

// BatchService persists master batches and job overrides and resolves the
// effective configuration of a job.
type BatchService struct {
	repo repository.BatchRepository
	now  func() time.Time
}

// NewBatchService creates a batch service.
func NewBatchService(repo repository.BatchRepository) *BatchService {
	return &BatchService{repo: repo, now: time.Now}
}

// CreateBatchInput describes a new master batch.
type CreateBatchInput struct {
	Master   model.MasterConfig
	JobCount int
}

// CreateBatch stores a master batch and JobCount derived jobs with empty overrides.
func (s *BatchService) CreateBatch(ctx context.Context, in CreateBatchInput) (*model.Batch, error) {
	if err := validateMaster(in.Master); err != nil {
		return nil, err
	}
	if in.JobCount < 0 || in.JobCount > MaxJobsPerBatch {
		return nil, fmt.Errorf("job count %d not in [0, %d]: %w", in.JobCount, MaxJobsPerBatch, model.ErrInvalidInput)
	}

	master := in.Master
	batch := &model.Batch{
		ID:           uid.New(),
		IsMaster:     true,
		MasterConfig: &master,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return nil, err
	}

	for i := 0; i < in.JobCount; i++ {
		job := &model.Job{ID: uid.New(), BatchID: batch.ID, CreatedAt: s.now()}
		if err := s.repo.CreateJob(ctx, job); err != nil {
			return nil, err
		}
	}
	return s.repo.GetBatch(ctx, batch.ID)
}

// GetBatch returns a batch with its job ids.
func (s *BatchService) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	return s.repo.GetBatch(ctx, id)
}

// PatchMaster merges patch into the master configuration of batchID.
func (s *BatchService) PatchMaster(ctx context.Context, batchID string, patch model.MasterPatch) (*model.MasterConfig, error) {
	batch, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !batch.IsMaster || batch.MasterConfig == nil {
		return nil, fmt.Errorf("batch %s is not a master batch: %w", batchID, model.ErrInvalidState)
	}

	merged := override.MergeMaster(*batch.MasterConfig, patch)
	if err := validateMaster(merged); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMasterConfig(ctx, batchID, merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// GetOverride returns the stored override of a job.
func (s *BatchService) GetOverride(ctx context.Context, jobID string) (model.JobOverride, error) {
	return s.repo.GetJobOverride(ctx, jobID)
}

// PatchOverride applies a three-state patch to a job's override and persists the result.
func (s *BatchService) PatchOverride(ctx context.Context, jobID string, patch model.OverridePatch) (model.JobOverride, error) {
	if mode, ok := patch.PublishMode.Get(); ok && !mode.Valid() {
		return model.JobOverride{}, fmt.Errorf("publish mode %q: %w", mode, model.ErrInvalidInput)
	}
	if tz, ok := patch.Timezone.Get(); ok {
		if _, err := time.LoadLocation(tz); err != nil {
			return model.JobOverride{}, fmt.Errorf("timezone %q: %w", tz, model.ErrInvalidInput)
		}
	}

	existing, err := s.repo.GetJobOverride(ctx, jobID)
	if err != nil {
		return model.JobOverride{}, err
	}
	next := override.ApplyPatch(existing, patch)
	if err := s.repo.SaveJobOverride(ctx, jobID, next); err != nil {
		return model.JobOverride{}, err
	}
	return next, nil
}

// EffectiveConfig resolves the configuration a job executes with. A job whose
// batch is not a master fails with ErrInvalidState.
func (s *BatchService) EffectiveConfig(ctx context.Context, jobID string) (model.EffectiveConfig, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return model.EffectiveConfig{}, err
	}
	batch, err := s.repo.GetBatch(ctx, job.BatchID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.EffectiveConfig{}, fmt.Errorf("batch of job %s missing: %w", jobID, model.ErrInvalidState)
		}
		return model.EffectiveConfig{}, err
	}
	return override.ResolveForBatch(batch, job.Override)
}

func validateMaster(m model.MasterConfig) error {
	if !m.PublishMode.Valid() {
		return fmt.Errorf("publish mode %q: %w", m.PublishMode, model.ErrInvalidInput)
	}
	if m.PublishMode == model.PublishSchedule && m.ScheduledFor == nil {
		return fmt.Errorf("schedule mode requires scheduled_for: %w", model.ErrInvalidInput)
	}
	if m.Timezone != "" {
		if _, err := time.LoadLocation(m.Timezone); err != nil {
			return fmt.Errorf("timezone %q: %w", m.Timezone, model.ErrInvalidInput)
		}
	}
	return nil
}
