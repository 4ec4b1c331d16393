// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Package reconcile closes the gap between the catalog's expected app set
// and what a collection run actually produced. Missing IDs are refetched for
// a bounded number of passes; whatever recovers is written as a backfill
// batch file, and the remainder is recorded as permanently missing in a gap
// report artifact.
package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/datamesa/steamset/internal/collector"
	"github.com/datamesa/steamset/internal/config"
	"github.com/datamesa/steamset/internal/logging"
	"github.com/datamesa/steamset/internal/models"
)

// Report is the JSON artifact summarizing one reconciliation run.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Passes      int       `json:"passes"`

	ExpectedCount int `json:"expected_count"`
	ObservedCount int `json:"observed_count"`

	MissingBefore      []int64 `json:"missing_before"`
	Recovered          []int64 `json:"recovered"`
	PermanentlyMissing []int64 `json:"permanently_missing"`

	BackfillFile string `json:"backfill_file,omitempty"`
	ReportPath   string `json:"-"`
}

// Reconciler refetches the difference between expected and observed IDs.
type Reconciler struct {
	fetcher collector.DetailFetcher
	cfg     config.ReconcileConfig
	dataDir string

	Progress func(done, total int)
}

// New assembles a Reconciler writing backfill batches into dataDir.
func New(fetcher collector.DetailFetcher, cfg config.ReconcileConfig, dataDir string) *Reconciler {
	return &Reconciler{fetcher: fetcher, cfg: cfg, dataDir: dataDir}
}

// Run computes expected minus observed, attempts recovery for up to the
// configured number of passes, and writes both the backfill batch and the
// gap report. Fatal fetch errors abort; per-ID failures just leave the ID
// missing for the next pass.
func (r *Reconciler) Run(ctx context.Context, expected, observed []int64) (*Report, error) {
	missing := diff(expected, observed)

	report := &Report{
		RunID:         uuid.NewString(),
		GeneratedAt:   time.Now().UTC(),
		ExpectedCount: len(expected),
		ObservedCount: len(observed),
		MissingBefore: missing,
	}
	logging.Info().
		Str("run_id", report.RunID).
		Int("expected", len(expected)).
		Int("observed", len(observed)).
		Int("missing", len(missing)).
		Msg("gap reconciliation starting")

	passes := r.cfg.MaxPasses
	if passes < 1 {
		passes = 1
	}

	var recovered []models.DetailRecord
	remaining := missing
	for pass := 1; pass <= passes && len(remaining) > 0; pass++ {
		report.Passes = pass
		var still []int64
		for i, id := range remaining {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			record, err := r.fetcher.FetchDetail(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("reconciliation aborted at appid %d: %w", id, err)
			}
			if record.Success && record.Data != nil && collector.ValidateDetail(id, record.Data) == nil {
				recovered = append(recovered, record)
				report.Recovered = append(report.Recovered, id)
			} else {
				still = append(still, id)
			}
			if r.Progress != nil {
				r.Progress(i+1, len(remaining))
			}
		}
		logging.Info().
			Int("pass", pass).
			Int("recovered", len(remaining)-len(still)).
			Int("still_missing", len(still)).
			Msg("reconciliation pass finished")
		remaining = still
	}
	report.PermanentlyMissing = remaining

	if len(recovered) > 0 {
		name := fmt.Sprintf("steam_data_backfill_%s.json", report.RunID)
		if err := collector.WriteBatchFile(r.dataDir, name, recovered); err != nil {
			return nil, err
		}
		report.BackfillFile = name
	}

	if err := r.writeReport(report); err != nil {
		return nil, err
	}

	logging.Info().
		Str("run_id", report.RunID).
		Int("recovered", len(report.Recovered)).
		Int("permanently_missing", len(report.PermanentlyMissing)).
		Str("report", report.ReportPath).
		Msg("gap reconciliation finished")
	return report, nil
}

func (r *Reconciler) writeReport(report *Report) error {
	if err := os.MkdirAll(r.cfg.ReportDir, 0o750); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(r.cfg.ReportDir, fmt.Sprintf("gap_report_%s.json", report.RunID))
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal gap report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("write gap report: %w", err)
	}
	report.ReportPath = path
	return nil
}

// diff returns the members of expected absent from observed, sorted
// ascending so reports and backfill passes are deterministic.
func diff(expected, observed []int64) []int64 {
	seen := make(map[int64]struct{}, len(observed))
	for _, id := range observed {
		seen[id] = struct{}{}
	}
	var missing []int64
	for _, id := range expected {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
			seen[id] = struct{}{}
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}
