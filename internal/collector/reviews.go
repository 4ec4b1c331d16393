// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/datamesa/steamset/internal/checkpoint"
	"github.com/datamesa/steamset/internal/config"
	"github.com/datamesa/steamset/internal/logging"
	"github.com/datamesa/steamset/internal/metrics"
	"github.com/datamesa/steamset/internal/models"
)

// ReviewFetcher is the slice of the Steam client the review sweep needs.
type ReviewFetcher interface {
	FetchReviews(ctx context.Context, appID int64) (*models.ReviewPage, error)
}

// ReviewCollector sweeps the store review endpoint for a list of app IDs.
// It shares the collector's batch-file mechanics but keeps its own state
// file, since review sweeps run against an already collected catalog rather
// than the applist. Review envelopes are not carried inside the checkpoint,
// so every checkpoint write is preceded by a buffer flush; a saved state
// never references envelopes that only existed in memory.
type ReviewCollector struct {
	fetcher ReviewFetcher
	store   *checkpoint.Store
	cfg     config.CollectorConfig

	Progress func(done, total int)
}

// NewReviewCollector assembles a ReviewCollector persisting state through store.
func NewReviewCollector(fetcher ReviewFetcher, store *checkpoint.Store, cfg config.CollectorConfig) *ReviewCollector {
	return &ReviewCollector{fetcher: fetcher, store: store, cfg: cfg}
}

// Run fetches one review page per app ID. Apps with no reviews still yield
// an envelope so the loader can distinguish "swept, empty" from "never swept".
func (r *ReviewCollector) Run(ctx context.Context, appIDs []int64) (*Summary, error) {
	state, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	if state.Completed {
		state = &checkpoint.State{}
	}

	sum := &Summary{}
	if state.RunID == "" {
		state.RunID = uuid.NewString()
		state.StartedAt = time.Now().UTC()
		state.NextBatch = nextBatchIndex(r.cfg.DataDir, reviewBatchPrefix)
	} else {
		sum.Resumed = true
		logging.Info().
			Str("run_id", state.RunID).
			Int("processed", len(state.ProcessedIDs)).
			Msg("resuming review sweep from checkpoint")
	}

	processed := state.ProcessedSet()
	work := make([]int64, 0, len(appIDs))
	for _, id := range appIDs {
		if _, done := processed[id]; !done {
			work = append(work, id)
		}
	}
	logging.Info().Str("run_id", state.RunID).Int("worklist", len(work)).Msg("review sweep starting")

	buffer := make([]models.ReviewEnvelope, 0, r.cfg.SaveBatchSize)

	// flush writes any buffered envelopes and then checkpoints.
	flush := func() error {
		if len(buffer) > 0 {
			name := fmt.Sprintf("%s%05d.json", reviewBatchPrefix, state.NextBatch)
			if err := WriteBatchFile(r.cfg.DataDir, name, buffer); err != nil {
				return err
			}
			logging.Info().Str("file", name).Int("records", len(buffer)).Msg("review batch file written")
			state.NextBatch++
			buffer = buffer[:0]
			sum.Batches++
		}
		return r.store.Save(state)
	}

	sinceCheckpoint := 0
	for i, id := range work {
		if err := ctx.Err(); err != nil {
			if flushErr := flush(); flushErr != nil {
				logging.Err(flushErr).Msg("review flush on cancel failed")
			}
			return sum, err
		}

		page, err := r.fetcher.FetchReviews(ctx, id)
		if err != nil {
			if flushErr := flush(); flushErr != nil {
				logging.Err(flushErr).Msg("review flush on abort failed")
			}
			return sum, fmt.Errorf("review sweep aborted at appid %d: %w", id, err)
		}

		state.ProcessedIDs = append(state.ProcessedIDs, id)
		sum.Processed++
		sinceCheckpoint++

		if page == nil {
			sum.Rejected++
			metrics.RecordsCollected.WithLabelValues("rejected").Inc()
		} else {
			buffer = append(buffer, models.ReviewEnvelope{AppID: id, Reviews: page})
			state.AcceptedCount++
			sum.Accepted++
			metrics.RecordsCollected.WithLabelValues("accepted").Inc()
		}

		if len(buffer) >= r.cfg.SaveBatchSize || sinceCheckpoint >= r.cfg.CheckpointEvery {
			if err := flush(); err != nil {
				return sum, err
			}
			sinceCheckpoint = 0
		}

		if r.Progress != nil {
			r.Progress(i+1, len(work))
		}
	}

	state.Completed = true
	if err := flush(); err != nil {
		return sum, err
	}

	logging.Info().
		Str("run_id", state.RunID).
		Int("processed", sum.Processed).
		Int("accepted", sum.Accepted).
		Msg("review sweep finished")
	return sum, nil
}
