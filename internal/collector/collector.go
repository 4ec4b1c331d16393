// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Package collector drives the rate-limited catalog sweep. Each app ID moves
// through Pending -> Fetching -> one of Accepted, Rejected, Skipped. Accepted
// records accumulate in a buffer that is flushed to numbered batch files;
// progress is checkpointed so an interrupted run resumes without refetching.
package collector

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/datamesa/steamset/internal/checkpoint"
	"github.com/datamesa/steamset/internal/config"
	"github.com/datamesa/steamset/internal/logging"
	"github.com/datamesa/steamset/internal/metrics"
	"github.com/datamesa/steamset/internal/models"
)

// DetailFetcher is the slice of the Steam client the collector needs.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, appID int64) (models.DetailRecord, error)
}

// Summary tallies the outcome of one Run.
type Summary struct {
	Processed int
	Accepted  int
	Rejected  int
	Skipped   int
	Batches   int
	Resumed   bool
}

// Collector fetches app details for a worklist of catalog entries.
type Collector struct {
	fetcher DetailFetcher
	store   *checkpoint.Store
	cfg     config.CollectorConfig

	// Progress, when set, is called after every processed entry with the
	// running processed count and the worklist size.
	Progress func(done, total int)
}

// New assembles a Collector persisting state through store.
func New(fetcher DetailFetcher, store *checkpoint.Store, cfg config.CollectorConfig) *Collector {
	return &Collector{fetcher: fetcher, store: store, cfg: cfg}
}

// Run processes entries until the worklist is exhausted, the accepted-record
// target is met, or the context is cancelled. Already-processed IDs from a
// prior checkpoint are skipped. The returned error is non-nil only for
// conditions that abort the run; individual rejected records do not.
func (c *Collector) Run(ctx context.Context, entries []models.CatalogEntry) (*Summary, error) {
	state, err := c.store.Load()
	if err != nil {
		return nil, err
	}
	if state.Completed {
		logging.Info().Str("run_id", state.RunID).Msg("previous run already completed; starting fresh")
		state = &checkpoint.State{}
	}

	sum := &Summary{}
	if state.RunID == "" {
		state.RunID = uuid.NewString()
		state.StartedAt = time.Now().UTC()
		state.NextBatch = nextBatchIndex(c.cfg.DataDir, dataBatchPrefix)
	} else {
		sum.Resumed = true
		logging.Info().
			Str("run_id", state.RunID).
			Int("processed", len(state.ProcessedIDs)).
			Int("accepted", state.AcceptedCount).
			Int("buffered", len(state.Buffer)).
			Msg("resuming collection from checkpoint")
	}

	work := c.worklist(entries, state.ProcessedSet())
	logging.Info().
		Str("run_id", state.RunID).
		Int("worklist", len(work)).
		Int("target", c.cfg.TargetCount).
		Msg("collection run starting")

	sinceCheckpoint := 0
	for i, entry := range work {
		if err := ctx.Err(); err != nil {
			// Persist before bailing so the interrupt costs nothing.
			if saveErr := c.store.Save(state); saveErr != nil {
				logging.Err(saveErr).Msg("checkpoint save on cancel failed")
			}
			return sum, err
		}

		record, err := c.fetcher.FetchDetail(ctx, entry.AppID)
		if err != nil {
			if saveErr := c.store.Save(state); saveErr != nil {
				logging.Err(saveErr).Msg("checkpoint save on abort failed")
			}
			return sum, fmt.Errorf("collection aborted at appid %d: %w", entry.AppID, err)
		}

		state.ProcessedIDs = append(state.ProcessedIDs, entry.AppID)
		sum.Processed++
		sinceCheckpoint++

		switch {
		case record.Error != "":
			// Retries exhausted; a reconciliation pass can target these.
			state.FailedIDs = append(state.FailedIDs, entry.AppID)
			sum.Rejected++
			metrics.RecordsCollected.WithLabelValues("rejected").Inc()
			logging.Warn().Int64("appid", entry.AppID).Str("reason", record.Error).Msg("record rejected after retries")
		case !record.Success || record.Data == nil:
			sum.Rejected++
			metrics.RecordsCollected.WithLabelValues("rejected").Inc()
		default:
			if verr := ValidateDetail(entry.AppID, record.Data); verr != nil {
				sum.Rejected++
				metrics.RecordsCollected.WithLabelValues("rejected").Inc()
				logging.Warn().Int64("appid", entry.AppID).Err(verr).Msg("record failed structural validation")
				break
			}
			state.Buffer = append(state.Buffer, record)
			state.AcceptedCount++
			sum.Accepted++
			metrics.RecordsCollected.WithLabelValues("accepted").Inc()
		}

		if len(state.Buffer) >= c.cfg.SaveBatchSize {
			if err := c.flush(state); err != nil {
				return sum, err
			}
			sum.Batches++
			sinceCheckpoint = 0
		} else if sinceCheckpoint >= c.cfg.CheckpointEvery {
			if err := c.store.Save(state); err != nil {
				return sum, err
			}
			sinceCheckpoint = 0
		}

		if c.Progress != nil {
			c.Progress(i+1, len(work))
		}

		if c.cfg.TargetCount > 0 && state.AcceptedCount >= c.cfg.TargetCount {
			logging.Info().Int("accepted", state.AcceptedCount).Msg("accepted-record target reached")
			break
		}
	}

	if len(state.Buffer) > 0 {
		if err := c.flush(state); err != nil {
			return sum, err
		}
		sum.Batches++
	}

	state.Completed = true
	if err := c.store.Save(state); err != nil {
		return sum, err
	}

	logging.Info().
		Str("run_id", state.RunID).
		Int("processed", sum.Processed).
		Int("accepted", sum.Accepted).
		Int("rejected", sum.Rejected).
		Msg("collection run finished")
	return sum, nil
}

// worklist filters and orders the catalog entries still to be fetched.
func (c *Collector) worklist(entries []models.CatalogEntry, processed map[int64]struct{}) []models.CatalogEntry {
	work := make([]models.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if e.AppID < c.cfg.MinAppID {
			continue
		}
		if _, done := processed[e.AppID]; done {
			continue
		}
		work = append(work, e)
	}
	if c.cfg.Shuffle {
		rand.Shuffle(len(work), func(i, j int) { work[i], work[j] = work[j], work[i] })
	}
	return work
}

// flush writes the buffered records as the next batch file, then checkpoints
// with the buffer cleared. Ordering matters: losing the checkpoint write
// after the batch lands only re-buffers records that insert idempotently
// downstream, while the reverse order would drop them.
func (c *Collector) flush(state *checkpoint.State) error {
	name := fmt.Sprintf("%s%05d.json", dataBatchPrefix, state.NextBatch)
	if err := WriteBatchFile(c.cfg.DataDir, name, state.Buffer); err != nil {
		return err
	}
	logging.Info().Str("file", name).Int("records", len(state.Buffer)).Msg("batch file written")

	state.NextBatch++
	state.Buffer = nil
	return c.store.Save(state)
}

// Batch file name prefixes, shared with the review sweep. The load command
// globs on these.
const (
	dataBatchPrefix   = "steam_data_batch_"
	reviewBatchPrefix = "steam_reviews_batch_"
)

// nextBatchIndex returns one past the highest batch index already present in
// dir for the given file prefix. A fresh run numbers its output after any
// earlier generation's files instead of overwriting them.
func nextBatchIndex(dir, prefix string) int {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"*.json"))
	if err != nil {
		return 0
	}
	next := 0
	for _, m := range matches {
		base := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), ".json")
		if n, aerr := strconv.Atoi(base); aerr == nil && n+1 > next {
			next = n + 1
		}
	}
	return next
}

// WriteBatchFile serializes records into dir/name as a JSON array.
func WriteBatchFile(dir, name string, records any) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal batch %s: %w", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("write batch %s: %w", name, err)
	}
	return nil
}

// ValidateDetail enforces the structural minimum for an accepted record:
// the payload identifies the app we asked about, carries a name, and has a
// recognized type.
func ValidateDetail(appID int64, d *models.AppDetail) error {
	if d.SteamAppID == 0 {
		return fmt.Errorf("appid %d: payload missing identifier", appID)
	}
	if d.SteamAppID != appID {
		return fmt.Errorf("payload appid %d does not match requested %d", d.SteamAppID, appID)
	}
	if d.Name == "" {
		return fmt.Errorf("appid %d: missing name", appID)
	}
	if _, ok := models.AllowedAppTypes[d.Type]; !ok {
		return fmt.Errorf("appid %d: unrecognized app type %q", appID, d.Type)
	}
	return nil
}
