package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reelhub-api/internal/model"
	"reelhub-api/internal/service"
	"reelhub-api/pkg/apierror"
	"reelhub-api/pkg/response"
)

// BatchHandler handles batch and job override requests.
type BatchHandler struct {
	batches *service.BatchService
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(batches *service.BatchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

type createBatchRequest struct {
	Caption      string            `json:"caption"`
	PublishMode  model.PublishMode `json:"publish_mode"`
	ScheduledFor *time.Time        `json:"scheduled_for"`
	Timezone     string            `json:"timezone"`
	JobCount     int               `json:"job_count"`
}

// CreateBatch handles POST /api/v1/batches
func (h *BatchHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.Error(w, err)
		return
	}
	if req.JobCount < 0 || req.JobCount > service.MaxJobsPerBatch {
		response.Error(w, apierror.ValidationError("invalid batch",
			apierror.FieldError{Field: "job_count", Message: "must be between 0 and 500"}))
		return
	}

	batch, err := h.batches.CreateBatch(r.Context(), service.CreateBatchInput{
		Master: model.MasterConfig{
			Caption:      req.Caption,
			PublishMode:  req.PublishMode,
			ScheduledFor: req.ScheduledFor,
			Timezone:     req.Timezone,
		},
		JobCount: req.JobCount,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, batch)
}

// GetBatch handles GET /api/v1/batches/{id}
func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.batches.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, batch)
}

// PatchMaster handles PATCH /api/v1/batches/{id}/master
func (h *BatchHandler) PatchMaster(w http.ResponseWriter, r *http.Request) {
	var patch model.MasterPatch
	if err := decodeJSON(r, &patch, false); err != nil {
		response.Error(w, err)
		return
	}

	master, err := h.batches.PatchMaster(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, master)
}

// GetOverride handles GET /api/v1/jobs/{id}/override
func (h *BatchHandler) GetOverride(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	ov, err := h.batches.GetOverride(r.Context(), jobID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, overrideView(jobID, ov))
}

// PatchOverride handles PATCH /api/v1/jobs/{id}/override. Absent fields are
// kept, null clears the override and a value sets it.
func (h *BatchHandler) PatchOverride(w http.ResponseWriter, r *http.Request) {
	var patch model.OverridePatch
	if err := decodeJSON(r, &patch, false); err != nil {
		response.Error(w, err)
		return
	}

	jobID := chi.URLParam(r, "id")
	ov, err := h.batches.PatchOverride(r.Context(), jobID, patch)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, overrideView(jobID, ov))
}

// GetEffective handles GET /api/v1/jobs/{id}/effective
func (h *BatchHandler) GetEffective(w http.ResponseWriter, r *http.Request) {
	eff, err := h.batches.EffectiveConfig(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, eff)
}

func overrideView(jobID string, ov model.JobOverride) map[string]interface{} {
	return map[string]interface{}{
		"job_id":   jobID,
		"override": ov,
		"states": map[string]string{
			"caption_override":       ov.Caption.State().String(),
			"publish_mode_override":  ov.PublishMode.State().String(),
			"scheduled_for_override": ov.ScheduledFor.State().String(),
			"timezone_override":      ov.Timezone.State().String(),
		},
	}
}
