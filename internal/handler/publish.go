package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reelhub-api/internal/service"
	"reelhub-api/pkg/apierror"
	"reelhub-api/pkg/response"
)

// PublishHandler handles publish, retry, log and account deletion requests.
type PublishHandler struct {
	router *service.PublishRouter
}

// NewPublishHandler creates a new publish handler.
func NewPublishHandler(router *service.PublishRouter) *PublishHandler {
	return &PublishHandler{router: router}
}

type publishRequest struct {
	JobID           string          `json:"job_id"`
	CredentialIndex *int            `json:"credential_index"`
	Payload         json.RawMessage `json:"payload"`
}

// Publish handles POST /api/v1/publish
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.Error(w, err)
		return
	}

	out, err := h.router.Dispatch(r.Context(), service.DispatchRequest{
		JobID:           req.JobID,
		CredentialIndex: req.CredentialIndex,
		Payload:         req.Payload,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, out)
}

type retryRequest struct {
	Payload json.RawMessage `json:"payload"`
}

// Retry handles POST /api/v1/posts/{id}/retry
func (h *PublishHandler) Retry(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := decodeJSON(r, &req, true); err != nil {
		response.Error(w, err)
		return
	}

	out, err := h.router.Retry(r.Context(), chi.URLParam(r, "id"), req.Payload)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, out)
}

// Logs handles GET /api/v1/posts/{id}/logs
func (h *PublishHandler) Logs(w http.ResponseWriter, r *http.Request) {
	out, err := h.router.Logs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, out)
}

// DeleteAccount handles DELETE /api/v1/accounts/{account_id}?credential_index=i
func (h *PublishHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("credential_index")
	if raw == "" {
		response.Error(w, apierror.BadRequest("credential_index is required"))
		return
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		response.Error(w, apierror.BadRequest("credential_index must be an integer"))
		return
	}

	out, err := h.router.Delete(r.Context(), chi.URLParam(r, "account_id"), index)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, out)
}
