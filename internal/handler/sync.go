package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reelhub-api/internal/credential"
	"reelhub-api/internal/model"
	"reelhub-api/internal/repository"
	"reelhub-api/internal/service"
	"reelhub-api/pkg/apierror"
	"reelhub-api/pkg/response"
)

// SyncHandler handles analytics sync and account requests.
type SyncHandler struct {
	orchestrator *service.SyncOrchestrator
	accounts     repository.AccountRepository
	pool         *credential.Pool
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(orchestrator *service.SyncOrchestrator, accounts repository.AccountRepository, pool *credential.Pool) *SyncHandler {
	return &SyncHandler{orchestrator: orchestrator, accounts: accounts, pool: pool}
}

// Sync handles POST /api/v1/analytics/sync?force=true|false. Individual
// account failures are reported in the body with a 200.
func (h *SyncHandler) Sync(w http.ResponseWriter, r *http.Request) {
	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(w, apierror.BadRequest("force must be true or false"))
			return
		}
		force = v
	}

	report, err := h.orchestrator.RunAll(r.Context(), force)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, report)
}

// ListAccounts handles GET /api/v1/analytics/accounts?page=&limit=
func (h *SyncHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)
	if page < 1 || limit < 1 || limit > 500 {
		response.Error(w, apierror.BadRequest("page must be >= 1 and limit in [1, 500]"))
		return
	}

	accounts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	total := len(accounts)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	response.JSONWithMeta(w, http.StatusOK, accounts[start:end], page, limit, int64(total))
}

type upsertAccountRequest struct {
	Platform        string `json:"platform"`
	Username        string `json:"username"`
	CredentialIndex int    `json:"credential_index"`
}

// UpsertAccount handles PUT /api/v1/analytics/accounts/{account_id}
func (h *SyncHandler) UpsertAccount(w http.ResponseWriter, r *http.Request) {
	var req upsertAccountRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.Error(w, err)
		return
	}
	if _, err := h.pool.Resolve(req.CredentialIndex); err != nil {
		response.Error(w, err)
		return
	}

	account := &model.Account{
		ID:              chi.URLParam(r, "account_id"),
		Platform:        req.Platform,
		Username:        req.Username,
		CredentialIndex: req.CredentialIndex,
	}
	if err := h.accounts.UpsertAccount(r.Context(), account); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, account)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
