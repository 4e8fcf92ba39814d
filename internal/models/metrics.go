package models

import "time"

// MetricsSnapshot summarises process metrics for the dashboard.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	ConnectionsCreated       uint64    `json:"connectionsCreated"`
	Transitions              uint64    `json:"transitions"`
	SuggestionsServed        uint64    `json:"suggestionsServed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
