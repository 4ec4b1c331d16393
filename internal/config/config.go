// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Package config loads and validates steamset configuration.
//
// Configuration is layered via Koanf v2 (highest priority wins):
//  1. Built-in defaults
//  2. YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (STEAM_API_KEY, PG_HOST, API_DELAY_SECONDS, ...)
package config

import (
	"strconv"
	"time"
)

// Config is the root configuration for all pipeline stages.
type Config struct {
	Steam     SteamConfig     `koanf:"steam"`
	Collector CollectorConfig `koanf:"collector"`
	Reconcile ReconcileConfig `koanf:"reconcile"`
	Database  DatabaseConfig  `koanf:"database"`
	Loader    LoaderConfig    `koanf:"loader"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// SteamConfig controls the remote catalog client.
type SteamConfig struct {
	// APIKey authenticates the applist call. The storefront endpoints are
	// keyless but the key presence is checked up front so a run never dies
	// hours in on the one call that needs it.
	APIKey string `koanf:"api_key"`

	// APIBaseURL is the Web API host (applist).
	APIBaseURL string `koanf:"api_base_url" validate:"required,url"`

	// StoreBaseURL is the storefront host (appdetails, appreviews).
	StoreBaseURL string `koanf:"store_base_url" validate:"required,url"`

	// RequestDelay is the minimum interval between requests. The remote
	// service has no published quota; 1.5s is the courtesy pace the full
	// 260K-app collection was validated at.
	RequestDelay time.Duration `koanf:"request_delay" validate:"min=0"`

	// RequestTimeout bounds each HTTP attempt.
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`

	// MaxRetries bounds attempts for transient failures.
	MaxRetries int `koanf:"max_retries" validate:"min=1,max=10"`

	// UserAgent identifies the collector to the remote service.
	UserAgent string `koanf:"user_agent"`
}

// CollectorConfig controls the detail/review collection loops.
type CollectorConfig struct {
	// DataDir receives batch output files.
	DataDir string `koanf:"data_dir" validate:"required"`

	// StateDir receives checkpoint files and the cached applist.
	StateDir string `koanf:"state_dir" validate:"required"`

	// TargetCount stops the run after this many accepted records. 0 means
	// exhaust the ID space.
	TargetCount int `koanf:"target_count" validate:"min=0"`

	// SaveBatchSize is the number of accepted records per output file.
	SaveBatchSize int `koanf:"save_batch_size" validate:"min=1"`

	// CheckpointEvery is the number of processed IDs between checkpoint
	// writes.
	CheckpointEvery int `koanf:"checkpoint_every" validate:"min=1"`

	// MinAppID filters out the legacy low ID range when sampling. 0 disables
	// the filter.
	MinAppID int64 `koanf:"min_app_id" validate:"min=0"`

	// Shuffle randomizes the worklist order (sampling runs).
	Shuffle bool `koanf:"shuffle"`
}

// ReconcileConfig controls the gap reconciliation pass.
type ReconcileConfig struct {
	// MaxPasses bounds backfill attempts: each still-missing ID is attempted
	// once per pass. Most IDs that fail a clean backfill are delisted or
	// region-restricted, so the default is a single pass.
	MaxPasses int `koanf:"max_passes" validate:"min=1"`

	// ReportDir receives gap report artifacts.
	ReportDir string `koanf:"report_dir" validate:"required"`
}

// DatabaseConfig identifies the target PostgreSQL database.
type DatabaseConfig struct {
	Host     string `koanf:"host" validate:"required"`
	Port     int    `koanf:"port" validate:"required,min=1,max=65535"`
	Name     string `koanf:"name" validate:"required"`
	User     string `koanf:"user" validate:"required"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`

	// MaxConns caps the pgx pool. The loader is a single writer; a small
	// pool covers the enricher's overlapping reads.
	MaxConns int32 `koanf:"max_conns" validate:"min=1"`
}

// LoaderConfig controls the three-phase schema loader.
type LoaderConfig struct {
	// BatchSize is the fact/junction insert batch size.
	BatchSize int `koanf:"batch_size" validate:"min=1"`

	// ReviewBatchSize is the review insert batch size.
	ReviewBatchSize int `koanf:"review_batch_size" validate:"min=1"`
}

// EmbeddingConfig controls vector enrichment.
type EmbeddingConfig struct {
	// Endpoint is the model-serving HTTP endpoint.
	Endpoint string `koanf:"endpoint" validate:"omitempty,url"`

	// Model is the embedding model identifier recorded in run provenance.
	Model string `koanf:"model" validate:"required"`

	// Dimension is the expected vector dimensionality.
	Dimension int `koanf:"dimension" validate:"min=1"`

	// BatchSize is the initial adaptive batch size.
	BatchSize int `koanf:"batch_size" validate:"min=1"`

	// MaxBatchSize caps adaptive growth.
	MaxBatchSize int `koanf:"max_batch_size" validate:"min=1"`

	// GrowAfter is the number of consecutive fast batches before the batch
	// size grows.
	GrowAfter int `koanf:"grow_after" validate:"min=1"`

	// FastBatch is the latency below which a batch counts as fast.
	FastBatch time.Duration `koanf:"fast_batch"`

	// NormTolerance is the allowed deviation from unit L2 norm.
	NormTolerance float64 `koanf:"norm_tolerance" validate:"gt=0"`

	// RequestTimeout bounds each provider call.
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`

	// ChunkSize is the number of rows fetched from the database per work
	// chunk, bounding resident text memory.
	ChunkSize int `koanf:"chunk_size" validate:"min=1"`

	// CheckpointPath persists the last successfully written ID per table.
	CheckpointPath string `koanf:"checkpoint_path" validate:"required"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled    bool   `koanf:"enabled"`
	ListenAddr string `koanf:"listen_addr"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns a Config with all defaults applied. Defaults mirror
// the pacing and batching the full-catalog collection was validated at.
func defaultConfig() *Config {
	return &Config{
		Steam: SteamConfig{
			APIBaseURL:     "https://api.steampowered.com",
			StoreBaseURL:   "https://store.steampowered.com",
			RequestDelay:   1500 * time.Millisecond,
			RequestTimeout: 20 * time.Second,
			MaxRetries:     3,
			UserAgent:      "steamset/1.0 (+https://github.com/datamesa/steamset)",
		},
		Collector: CollectorConfig{
			DataDir:         "data",
			StateDir:        "state",
			TargetCount:     0,
			SaveBatchSize:   500,
			CheckpointEvery: 25,
			MinAppID:        0,
			Shuffle:         false,
		},
		Reconcile: ReconcileConfig{
			MaxPasses: 1,
			ReportDir: "reports",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "steamset",
			User:     "steamset",
			SSLMode:  "disable",
			MaxConns: 4,
		},
		Loader: LoaderConfig{
			BatchSize:       1000,
			ReviewBatchSize: 2000,
		},
		Embedding: EmbeddingConfig{
			Endpoint:       "http://localhost:8080/embed",
			Model:          "BAAI/bge-m3",
			Dimension:      1024,
			BatchSize:      16,
			MaxBatchSize:   256,
			GrowAfter:      8,
			FastBatch:      2 * time.Second,
			NormTolerance:  1e-3,
			RequestTimeout: 60 * time.Second,
			ChunkSize:      10000,
			CheckpointPath: "state/embedding_progress.json",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DSN renders the database configuration as a pgx connection string.
func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" +
		strconv.Itoa(d.Port) + "/" + d.Name + "?sslmode=" + d.SSLMode
}
