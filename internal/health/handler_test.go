package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/unalkalkan/bookshelf/internal/storage"
	"github.com/unalkalkan/bookshelf/internal/testutil"
)

func TestRunChecks(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   Status
	}{
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"a": func(context.Context) (Status, error) { return StatusHealthy, nil },
			},
			want: StatusHealthy,
		},
		{
			name: "degraded wins over healthy",
			checks: map[string]CheckFunc{
				"a": func(context.Context) (Status, error) { return StatusHealthy, nil },
				"b": func(context.Context) (Status, error) { return StatusDegraded, errors.New("slow") },
			},
			want: StatusDegraded,
		},
		{
			name: "unhealthy wins over degraded",
			checks: map[string]CheckFunc{
				"b": func(context.Context) (Status, error) { return StatusDegraded, nil },
				"c": func(context.Context) (Status, error) { return StatusUnhealthy, errors.New("down") },
			},
			want: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler("test")
			for name, c := range tt.checks {
				h.Register(name, c)
			}
			resp := h.RunChecks(context.Background())
			if resp.Status != tt.want {
				t.Errorf("Status = %s, want %s", resp.Status, tt.want)
			}
			if len(resp.Checks) != len(tt.checks) {
				t.Errorf("Expected %d results, got %d", len(tt.checks), len(resp.Checks))
			}
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	h := NewHandler("1.0")
	h.Register("db", func(context.Context) (Status, error) { return StatusUnhealthy, errors.New("locked") })

	w := httptest.NewRecorder()
	h.ReadinessHandler()(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Checks["db"].Error != "locked" {
		t.Errorf("Expected check error 'locked', got %q", resp.Checks["db"].Error)
	}

	w = httptest.NewRecorder()
	h.LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Liveness expected 200, got %d", w.Code)
	}
}

func TestBuiltinChecks(t *testing.T) {
	ctx := context.Background()

	adapter, err := storage.NewLocalAdapter(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage adapter: %v", err)
	}
	if status, err := StorageCheck(adapter)(ctx); status != StatusHealthy || err != nil {
		t.Errorf("StorageCheck() = %s, %v", status, err)
	}

	db := testutil.SetupTestDB(t)
	if status, err := DatabaseCheck(db)(ctx); status != StatusHealthy || err != nil {
		t.Errorf("DatabaseCheck() = %s, %v", status, err)
	}

	if status, _ := SessionsCheck(func() int { return 3 }, 5)(ctx); status != StatusHealthy {
		t.Errorf("SessionsCheck() under limit = %s", status)
	}
	if status, err := SessionsCheck(func() int { return 6 }, 5)(ctx); status != StatusDegraded || err == nil {
		t.Errorf("SessionsCheck() over limit = %s, %v", status, err)
	}
}
