// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational visibility without
// any per-request identifying data. Counters record which stage degraded,
// never what was asked. For production, export these to Prometheus or
// similar.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	// Request counters
	requests  atomic.Int64
	successes atomic.Int64
	rejected  atomic.Int64
	degraded  atomic.Int64

	// Stage failure counters
	transportRetries   atomic.Int64
	transportFailures  atomic.Int64
	generationFailures atomic.Int64
	sessionBusy        atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startedAt: time.Now()}
}

// RecordRequest records a completed request.
func (mc *MetricsCollector) RecordRequest(success bool) {
	mc.requests.Add(1)
	if success {
		mc.successes.Add(1)
	}
}

// RecordRejected records a request rejected before any network call.
func (mc *MetricsCollector) RecordRejected() { mc.rejected.Add(1) }

// RecordDegraded records a response delivered without its optional
// enhancement.
func (mc *MetricsCollector) RecordDegraded() { mc.degraded.Add(1) }

// RecordTransportRetry records an automatic transport retry.
func (mc *MetricsCollector) RecordTransportRetry() { mc.transportRetries.Add(1) }

// RecordTransportFailure records a transport failure surfaced to the caller.
func (mc *MetricsCollector) RecordTransportFailure() { mc.transportFailures.Add(1) }

// RecordGenerationFailure records a completion service failure.
func (mc *MetricsCollector) RecordGenerationFailure() { mc.generationFailures.Add(1) }

// RecordSessionBusy records a rejected concurrent chat collision.
func (mc *MetricsCollector) RecordSessionBusy() { mc.sessionBusy.Add(1) }

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// StatsResponse is the structured response for the /stats endpoint.
type StatsResponse struct {
	Uptime        string       `json:"uptime"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartedAt     string       `json:"started_at"`
	Requests      RequestStats `json:"requests"`
	Stages        StageStats   `json:"stages"`
}

// RequestStats holds request count metrics.
type RequestStats struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Rejected   int64 `json:"rejected"`
	Degraded   int64 `json:"degraded"`
}

// StageStats holds per-stage failure metrics.
type StageStats struct {
	TransportRetries   int64 `json:"transport_retries"`
	TransportFailures  int64 `json:"transport_failures"`
	GenerationFailures int64 `json:"generation_failures"`
	SessionBusy        int64 `json:"session_busy"`
}

// FullStats returns all metrics in a structured format for /stats.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)
	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:      mc.requests.Load(),
			Successful: mc.successes.Load(),
			Rejected:   mc.rejected.Load(),
			Degraded:   mc.degraded.Load(),
		},
		Stages: StageStats{
			TransportRetries:   mc.transportRetries.Load(),
			TransportFailures:  mc.transportFailures.Load(),
			GenerationFailures: mc.generationFailures.Load(),
			SessionBusy:        mc.sessionBusy.Load(),
		},
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
