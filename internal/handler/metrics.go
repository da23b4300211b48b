package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/campusshare/campusshare/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "campusshare_http_requests_total %d\n", snap.Requests)
	writeMetric(w, "campusshare_http_requests_errors_total{class=\"4xx\"} %d\n", snap.RequestsClientError)
	writeMetric(w, "campusshare_http_requests_errors_total{class=\"5xx\"} %d\n", snap.RequestsServerError)
	writeMetric(w, "campusshare_http_request_duration_seconds_sum %.6f\n", float64(snap.RequestDurationTotalNs)/1e9)

	writeMetric(w, "campusshare_resources_created_total %d\n", snap.ResourcesCreated)
	writeMetric(w, "campusshare_resource_status_updates_total %d\n", snap.ResourceStatusUpdates)
	writeMetric(w, "campusshare_resource_list_cache_hits_total %d\n", snap.ResourceListCacheHits)
	writeMetric(w, "campusshare_resource_list_cache_misses_total %d\n", snap.ResourceListCacheMisses)

	writeMetric(w, "campusshare_borrow_requests_total %d\n", snap.BorrowsRequested)
	writeMetric(w, "campusshare_borrow_duplicates_total %d\n", snap.BorrowDuplicates)
	writeMetric(w, "campusshare_borrow_invalid_transitions_total %d\n", snap.BorrowInvalidTransitions)

	writeLabeled(w, "campusshare_borrow_transitions_total", "to", snap.BorrowTransitions)

	writeMetric(w, "campusshare_users_registered_total %d\n", snap.UsersRegistered)
	writeMetric(w, "campusshare_logins_total{result=\"success\"} %d\n", snap.LoginSuccesses)
	writeMetric(w, "campusshare_logins_total{result=\"failure\"} %d\n", snap.LoginFailures)
	writeMetric(w, "campusshare_logouts_total %d\n", snap.Logouts)

	writeLabeled(w, "campusshare_activity_published_total", "result", snap.ActivityPublished)
	writeLabeled(w, "campusshare_activity_processed_total", "result", snap.ActivityProcessed)
	writeMetric(w, "campusshare_activity_queue_depth %d\n", snap.ActivityQueueDepth)
}

func writeLabeled(w http.ResponseWriter, name, label string, counts map[string]uint64) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, k, counts[k])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
