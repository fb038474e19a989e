package handler

import (
	"net/http"
	"runtime"
	"time"

	"reelhub-api/internal/cache"
	"reelhub-api/internal/credential"
	"reelhub-api/internal/repository"
	"reelhub-api/pkg/response"
)

// SchedulerStatus reports whether the periodic sync is running.
type SchedulerStatus interface {
	IsRunning() bool
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	store     repository.Store
	cache     cache.Cache
	pool      *credential.Pool
	scheduler SchedulerStatus
	storeType string
	urlTTL    time.Duration
	startTime time.Time
}

// AdminDeps are the dependencies reported on by the admin handler.
type AdminDeps struct {
	Store        repository.Store
	Cache        cache.Cache
	Pool         *credential.Pool
	Scheduler    SchedulerStatus
	StoreType    string
	SignedURLTTL time.Duration
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDeps) *AdminHandler {
	return &AdminHandler{
		store:     deps.Store,
		cache:     deps.Cache,
		pool:      deps.Pool,
		scheduler: deps.Scheduler,
		storeType: deps.StoreType,
		urlTTL:    deps.SignedURLTTL,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
		"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
		"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
		"heap_alloc_mb":  float64(memStats.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":  float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":         memStats.NumGC,
		"goroutines":     runtime.NumGoroutine(),
	}

	stats["credentials"] = map[string]interface{}{
		"pool_size": h.pool.Size(),
		"keys":      h.pool.Masked(),
	}

	// Signed URL cache stats
	if h.cache != nil {
		cs, err := h.cache.Stats(ctx)
		if err == nil {
			stats["cache"] = map[string]interface{}{
				"status":         "connected",
				"backend":        cs.Backend,
				"entries":        cs.Entries,
				"hits":           cs.Hits,
				"misses":         cs.Misses,
				"signed_url_ttl": h.urlTTL.String(),
			}
		} else {
			stats["cache"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["cache"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Store stats
	if h.store != nil {
		storeStats, err := h.store.Stats(ctx)
		if err == nil {
			storeStats["status"] = "connected"
			stats["store"] = storeStats
		} else {
			stats["store"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["store"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	if h.scheduler != nil {
		stats["sync_scheduler_running"] = h.scheduler.IsRunning()
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// GetHealth handles GET /api/v1/admin/health
func (h *AdminHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
