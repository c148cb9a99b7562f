package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal        atomic.Uint64
	RequestsInProgress   atomic.Int64
	RequestsSuccess      atomic.Uint64
	RequestsFailed       atomic.Uint64
	SubmissionsTotal     atomic.Uint64
	SubmissionsFailed    atomic.Uint64
	SubmissionsAbandoned atomic.Uint64
	ExportsTotal         atomic.Uint64
	ExportsEmpty         atomic.Uint64
	ExportsFailed        atomic.Uint64
	StartTime            time.Time
}

var globalMetrics = &Metrics{StartTime: time.Now()}

func IncrementSubmissions()          { globalMetrics.SubmissionsTotal.Add(1) }
func IncrementSubmissionsFailed()    { globalMetrics.SubmissionsFailed.Add(1) }
func IncrementSubmissionsAbandoned() { globalMetrics.SubmissionsAbandoned.Add(1) }
func IncrementExports()              { globalMetrics.ExportsTotal.Add(1) }
func IncrementExportsEmpty()         { globalMetrics.ExportsEmpty.Add(1) }
func IncrementExportsFailed()        { globalMetrics.ExportsFailed.Add(1) }

// GetMetrics returns current metrics
func GetMetrics() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	g := globalMetrics
	return map[string]any{
		"requests_total":        g.RequestsTotal.Load(),
		"requests_in_progress":  g.RequestsInProgress.Load(),
		"requests_success":      g.RequestsSuccess.Load(),
		"requests_failed":       g.RequestsFailed.Load(),
		"submissions_total":     g.SubmissionsTotal.Load(),
		"submissions_failed":    g.SubmissionsFailed.Load(),
		"submissions_abandoned": g.SubmissionsAbandoned.Load(),
		"exports_total":         g.ExportsTotal.Load(),
		"exports_empty":         g.ExportsEmpty.Load(),
		"exports_failed":        g.ExportsFailed.Load(),
		"uptime_seconds":        time.Since(g.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		globalMetrics.RequestsTotal.Add(1)
		globalMetrics.RequestsInProgress.Add(1)
		defer globalMetrics.RequestsInProgress.Add(-1)

		wrapped := wrap(w)
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			globalMetrics.RequestsSuccess.Add(1)
		} else {
			globalMetrics.RequestsFailed.Add(1)
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
