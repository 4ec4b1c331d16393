// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/steamset/config.yaml",
	"/etc/steamset/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.ProviderWithValue("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths. Returns the
// first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths and
// values. The mapping table keeps the env surface the collection scripts have
// always used (STEAM_API_KEY, PG_HOST, API_DELAY_SECONDS, ...) while the
// config file uses the nested structure. API_DELAY_SECONDS carries a bare
// number of seconds and is rewritten into duration syntax.
func envTransformFunc(key, value string) (string, any) {
	envMappings := map[string]string{
		"STEAM_API_KEY": "steam.api_key",

		"API_DELAY_SECONDS":   "steam.request_delay",
		"API_REQUEST_TIMEOUT": "steam.request_timeout",
		"API_MAX_RETRIES":     "steam.max_retries",
		"API_USER_AGENT":      "steam.user_agent",

		"COLLECT_DATA_DIR":         "collector.data_dir",
		"COLLECT_STATE_DIR":        "collector.state_dir",
		"COLLECT_TARGET_COUNT":     "collector.target_count",
		"API_SAVE_BATCH_SIZE":      "collector.save_batch_size",
		"COLLECT_CHECKPOINT_EVERY": "collector.checkpoint_every",

		"RECONCILE_MAX_PASSES": "reconcile.max_passes",
		"RECONCILE_REPORT_DIR": "reconcile.report_dir",

		"PG_HOST":              "database.host",
		"PG_PORT":              "database.port",
		"PG_DATABASE":          "database.name",
		"PG_APP_USER":          "database.user",
		"PG_APP_USER_PASSWORD": "database.password",
		"PG_SSL_MODE":          "database.ssl_mode",

		"LOADER_BATCH_SIZE":        "loader.batch_size",
		"LOADER_REVIEW_BATCH_SIZE": "loader.review_batch_size",

		"EMBEDDING_ENDPOINT":   "embedding.endpoint",
		"EMBEDDING_MODEL":      "embedding.model",
		"EMBEDDING_DIMENSION":  "embedding.dimension",
		"EMBEDDING_BATCH_SIZE": "embedding.batch_size",

		"METRICS_ENABLED":     "metrics.enabled",
		"METRICS_LISTEN_ADDR": "metrics.listen_addr",

		"LOG_LEVEL":  "logging.level",
		"LOG_FORMAT": "logging.format",
	}

	if key == "API_DELAY_SECONDS" && value != "" && !strings.ContainsAny(value, "nsuµmh") {
		value += "s"
	}

	if path, ok := envMappings[key]; ok {
		return path, value
	}

	// Unmapped STEAMSET_* variables fall through positionally:
	// STEAMSET_STEAM_MAX_RETRIES -> steam.max_retries.
	if rest, ok := strings.CutPrefix(key, "STEAMSET_"); ok {
		parts := strings.SplitN(strings.ToLower(rest), "_", 2)
		if len(parts) == 2 {
			return parts[0] + "." + parts[1], value
		}
	}

	// Everything else is not ours; drop it.
	return "", nil
}
