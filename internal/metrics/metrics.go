// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Package metrics provides Prometheus instrumentation for the pipeline:
//   - Remote fetch outcomes by classification
//   - Checkpoint write counts
//   - Loader row counts and rollbacks
//   - Embedding batch size and latency
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Collection metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamset_fetches_total",
			Help: "Total remote fetches by endpoint and outcome classification",
		},
		[]string{"endpoint", "outcome"}, // outcome: success, not_found, transient, fatal_auth
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "steamset_fetch_duration_seconds",
			Help:    "Duration of remote fetches including retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamset_fetch_retries_total",
			Help: "Total retry attempts for transient failures",
		},
		[]string{"endpoint"},
	)

	CheckpointWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "steamset_checkpoint_writes_total",
			Help: "Total atomic checkpoint writes",
		},
	)

	RecordsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamset_records_collected_total",
			Help: "Collector outcomes per identifier",
		},
		[]string{"state"}, // accepted, rejected, skipped
	)

	// Loader metrics
	RowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamset_rows_loaded_total",
			Help: "Rows inserted by table",
		},
		[]string{"table"},
	)

	RecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "steamset_loader_records_skipped_total",
			Help: "Malformed input records skipped during load",
		},
	)

	BatchesRolledBack = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "steamset_loader_batches_rolled_back_total",
			Help: "Load transactions rolled back on integrity errors",
		},
	)

	// Embedding metrics
	EmbeddingBatchSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "steamset_embedding_batch_size",
			Help: "Current adaptive embedding batch size",
		},
	)

	EmbeddingBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "steamset_embedding_batch_duration_seconds",
			Help:    "Duration of embedding provider batch calls",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	VectorsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "steamset_vectors_written_total",
			Help: "Embedding vectors written back by table",
		},
		[]string{"table"},
	)
)

// ObserveFetch records one completed fetch with its outcome and total duration.
func ObserveFetch(endpoint, outcome string, d time.Duration) {
	FetchesTotal.WithLabelValues(endpoint, outcome).Inc()
	FetchDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// Serve exposes the default registry on addr. It blocks; callers run it in a
// goroutine for the lifetime of the process.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
