package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime"
	"sort"
	"time"

	"reelhub-api/pkg/apierror"
	"reelhub-api/pkg/response"
)

// StartTime tracks when the server started for uptime calculation
var StartTime = time.Now()

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// ReadyCheck reports whether a dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

// Handler contains shared HTTP handlers and their dependencies.
type Handler struct {
	service string
	version string
	checks  map[string]ReadyCheck
}

// New creates a new handler. checks are run by Ready and Status.
func New(service, version string, checks map[string]ReadyCheck) *Handler {
	return &Handler{service: service, version: version, checks: checks}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	response.OK(w, resp)
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) runChecks(ctx context.Context) ([]Check, bool) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	checks := []Check{{Name: "api", Status: "ok"}}
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	allReady := true
	for _, name := range names {
		c := Check{Name: name, Status: "ok"}
		if err := h.checks[name](ctx); err != nil {
			c.Status = "error"
			c.Error = err.Error()
			allReady = false
		}
		checks = append(checks, c)
	}
	return checks, allReady
}

// Ready handles GET /api/v1/ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks, allReady := h.runChecks(r.Context())

	resp := ReadyResponse{
		Ready:     allReady,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}

	if !allReady {
		response.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	response.OK(w, resp)
}

// StatusResponse represents the unified status response for uptime monitoring
type StatusResponse struct {
	Service       string  `json:"service"`
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Timestamp     string  `json:"timestamp"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	PingMS        int64   `json:"ping_ms"`
	MemoryMB      float64 `json:"memory_mb"`
	Checks        []Check `json:"checks"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	requestStart := time.Now()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	checks, allReady := h.runChecks(r.Context())
	status := "ok"
	if !allReady {
		status = "degraded"
	}

	resp := StatusResponse{
		Service:       h.service,
		Status:        status,
		Version:       h.version,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(StartTime).Seconds()),
		PingMS:        time.Since(requestStart).Milliseconds(),
		MemoryMB:      float64(int(memoryMB*100)) / 100,
		Checks:        checks,
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched when
// allowEmpty is set.
func decodeJSON(r *http.Request, v interface{}, allowEmpty bool) error {
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return apierror.BadRequest("invalid JSON: " + err.Error())
	}
	return nil
}
