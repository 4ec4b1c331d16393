// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// TestInit_JSONOutput verifies structured fields appear in JSON output
func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(Config{})

	Info().Str("stage", "collect").Int64("appid", 440).Msg("Detail fetched")

	out := buf.String()
	if !strings.Contains(out, `"stage":"collect"`) {
		t.Errorf("Expected stage field in output, got: %s", out)
	}
	if !strings.Contains(out, `"appid":440`) {
		t.Errorf("Expected appid field in output, got: %s", out)
	}
	if !strings.Contains(out, `"message":"Detail fetched"`) {
		t.Errorf("Expected message in output, got: %s", out)
	}
}

// TestInit_LevelFiltering verifies messages below the configured level are dropped
func TestInit_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	defer Init(Config{})

	Debug().Msg("debug message")
	Info().Msg("info message")
	Warn().Msg("warn message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("Expected debug/info to be filtered at warn level, got: %s", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Errorf("Expected warn message in output, got: %s", out)
	}
}

// TestParseLevel verifies level string parsing including the fallback
func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestWith_ChildLogger verifies child loggers carry default fields
func TestWith_ChildLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(Config{})

	child := With().Str("component", "reconcile").Logger()
	child.Info().Msg("pass complete")

	if !strings.Contains(buf.String(), `"component":"reconcile"`) {
		t.Errorf("Expected component field from child logger, got: %s", buf.String())
	}
}
