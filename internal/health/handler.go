package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/unalkalkan/bookshelf/internal/storage"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) (Status, error)

// Response represents a health check response
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// Handler manages health checks
type Handler struct {
	checks  map[string]CheckFunc
	mu      sync.RWMutex
	version string
}

// NewHandler creates a new health check handler
func NewHandler(version string) *Handler {
	return &Handler{
		checks:  make(map[string]CheckFunc),
		version: version,
	}
}

// Register adds a health check
func (h *Handler) Register(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// RunChecks executes all registered health checks concurrently
func (h *Handler) RunChecks(ctx context.Context) Response {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	h.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]CheckResult, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()
			start := time.Now()
			status, err := check(ctx)
			result := CheckResult{Status: status, Duration: time.Since(start).String()}
			if err != nil {
				result.Error = err.Error()
			}
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	overallStatus := StatusHealthy
	for _, r := range results {
		if r.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		} else if r.Status == StatusDegraded && overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	return Response{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    results,
		Version:   h.version,
	}
}

// LivenessHandler reports that the process is up
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Response{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
			Version:   h.version,
		})
	}
}

// ReadinessHandler returns 503 while any dependency is unhealthy
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		response := h.RunChecks(ctx)
		statusCode := http.StatusOK
		if response.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, response)
	}
}

// HealthHandler returns every check result with status 200
func (h *Handler) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		writeJSON(w, http.StatusOK, h.RunChecks(ctx))
	}
}

// StorageCheck probes the raw file storage backend
func StorageCheck(adapter storage.Adapter) CheckFunc {
	return func(ctx context.Context) (Status, error) {
		if _, err := adapter.Exists(ctx, ".healthcheck"); err != nil {
			return StatusUnhealthy, err
		}
		return StatusHealthy, nil
	}
}

// DatabaseCheck pings the library database
func DatabaseCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) (Status, error) {
		if err := db.PingContext(ctx); err != nil {
			return StatusUnhealthy, err
		}
		return StatusHealthy, nil
	}
}

// SessionsCheck reports degraded once more than limit books are held in memory
func SessionsCheck(count func() int, limit int) CheckFunc {
	return func(ctx context.Context) (Status, error) {
		if n := count(); limit > 0 && n > limit {
			return StatusDegraded, fmt.Errorf("%d live sessions exceed the soft limit of %d", n, limit)
		}
		return StatusHealthy, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
