package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/campusshare/campusshare/internal/repository"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// CountReporter reports stored record totals.
type CountReporter interface {
	Counts(ctx context.Context) (*repository.Counts, error)
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	db      HealthChecker
	cache   HealthChecker
	counts  CountReporter
	started time.Time
	now     func() time.Time
}

// NewHealthHandler creates a new HealthHandler. Any dependency may be nil;
// it is then reported as "not configured".
func NewHealthHandler(db, cache HealthChecker, counts CountReporter) *HealthHandler {
	return &HealthHandler{
		db:      db,
		cache:   cache,
		counts:  counts,
		started: time.Now(),
		now:     time.Now,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse adds record counts and uptime.
type DetailedHealthResponse struct {
	Status        string            `json:"status"`
	Checks        map[string]string `json:"checks"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
	Counts        *CountsResponse   `json:"counts,omitempty"`
}

// CountsResponse is the per-table record total.
type CountsResponse struct {
	Users          int64 `json:"users"`
	Resources      int64 `json:"resources"`
	BorrowRequests int64 `json:"borrowRequests"`
}

// Healthz is a liveness probe endpoint. It performs no dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint. It returns 200 only if PostgreSQL
// and Redis both answer.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy := h.check(ctx)
	writeJSON(w, statusCode(healthy), HealthResponse{Status: statusText(healthy), Checks: checks})
}

// Detailed reports dependency checks, record counts and uptime.
//
// GET /api/health/detailed
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks, healthy := h.check(ctx)

	resp := DetailedHealthResponse{
		Checks:        checks,
		UptimeSeconds: int64(h.now().Sub(h.started).Seconds()),
	}

	if h.counts != nil && healthy {
		counts, err := h.counts.Counts(ctx)
		if err != nil {
			checks["counts"] = "error: " + err.Error()
			healthy = false
		} else {
			resp.Counts = &CountsResponse{
				Users:          counts.Users,
				Resources:      counts.Resources,
				BorrowRequests: counts.BorrowRequests,
			}
		}
	}

	resp.Status = statusText(healthy)
	writeJSON(w, statusCode(healthy), resp)
}

func (h *HealthHandler) check(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string, 2)
	healthy := true

	for name, dep := range map[string]HealthChecker{"postgres": h.db, "redis": h.cache} {
		if dep == nil {
			checks[name] = "not configured"
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			checks[name] = "error: " + err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	return checks, healthy
}

func statusText(healthy bool) string {
	if healthy {
		return "ok"
	}
	return "unhealthy"
}

func statusCode(healthy bool) int {
	if healthy {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
