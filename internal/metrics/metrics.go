// Package metrics holds the prometheus collectors for a report run.
// Batch runs have no scrape endpoint, so the registry is flushed to a
// node_exporter textfile after each run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry collects only this program's metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// Request outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeRetry = "retry"
	OutcomeFail  = "fail"
	OutcomeCache = "cache"
)

var (
	// Marketplace API metrics
	APIRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stickerfloor_api_requests_total",
			Help: "Marketplace API requests by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	APIRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stickerfloor_api_request_duration_seconds",
			Help:    "Marketplace API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Pipeline metrics
	PacksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stickerfloor_packs_total",
			Help: "Packs visited by floor lookup result (floor, no_offers, failed)",
		},
		[]string{"result"},
	)

	ReferenceMatchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stickerfloor_reference_matches_total",
			Help: "Report rows by reference match (matched, unmatched)",
		},
		[]string{"match"},
	)

	ReportRows = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "stickerfloor_report_rows",
			Help: "Rows written by the last run",
		},
	)

	LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "stickerfloor_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		},
	)

	RunDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stickerfloor_run_duration_seconds",
			Help:    "Wall time of a full run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)

// WriteTextfile writes the registry in text exposition format to path.
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
