package models

import "time"

// SystemMetrics is a point-in-time snapshot of the service instrumentation.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ReportsGenerated         uint64    `json:"reports_generated"`
	ReportsFailed            uint64    `json:"reports_failed"`
	ProviderCalls            uint64    `json:"provider_calls"`
	ProviderErrors           uint64    `json:"provider_errors"`
	Degradations             uint64    `json:"degradations"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
