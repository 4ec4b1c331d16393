// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Package embed backfills description embeddings for applications that have
// none yet. The database itself is the source of truth for what remains
// (rows with a NULL vector); the progress file only carries the cursor so a
// resumed run does not rescan from appid zero.
//
// Batch size adapts to the inference server: a failed request halves it and
// retries once at the half, while a sustained run of fast batches grows it
// back toward the configured ceiling.
package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/datamesa/steamset/internal/checkpoint"
	"github.com/datamesa/steamset/internal/config"
	"github.com/datamesa/steamset/internal/logging"
	"github.com/datamesa/steamset/internal/metrics"
	"github.com/datamesa/steamset/internal/store"
)

// ErrBadVector indicates the inference server returned vectors that do not
// match the configured model: wrong count, wrong dimension, or not unit
// normalized. Always aborts the run, because every subsequent batch would
// fail the same way.
var ErrBadVector = errors.New("embed: vector failed validation")

// Source is the database surface the enricher reads and writes. Satisfied
// by *store.Store.
type Source interface {
	PendingEmbeddingCount(ctx context.Context) (int64, error)
	PendingEmbeddings(ctx context.Context, afterID int64, limit int) ([]store.TextRow, error)
	UpdateVectors(ctx context.Context, batch []store.VectorRow) error
	StartEmbeddingRun(ctx context.Context, runID uuid.UUID, model string, dim int) error
	FinishEmbeddingRun(ctx context.Context, runID uuid.UUID, written int64, finishedAt time.Time) error
}

// progress is the resume cursor persisted between batches.
type progress struct {
	RunID     string    `json:"run_id"`
	AfterID   int64     `json:"after_id"`
	Written   int64     `json:"written"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary tallies one enrichment run.
type Summary struct {
	RunID   string
	Pending int64
	Written int64
}

// Enricher drives the embedding backfill.
type Enricher struct {
	provider Provider
	src      Source
	cfg      config.EmbeddingConfig

	Progress func(done, total int64)
}

// New assembles an Enricher.
func New(provider Provider, src Source, cfg config.EmbeddingConfig) *Enricher {
	return &Enricher{provider: provider, src: src, cfg: cfg}
}

// Run embeds every pending application description. One batch is in flight
// at a time; the inference server owns the parallelism.
func (e *Enricher) Run(ctx context.Context) (*Summary, error) {
	pending, err := e.src.PendingEmbeddingCount(ctx)
	if err != nil {
		return nil, err
	}

	var prog progress
	if _, err := checkpoint.LoadJSON(e.cfg.CheckpointPath, &prog); err != nil {
		return nil, err
	}
	if prog.RunID == "" {
		prog.RunID = uuid.NewString()
	}
	runID, err := uuid.Parse(prog.RunID)
	if err != nil {
		return nil, fmt.Errorf("checkpoint carries invalid run id %q: %w", prog.RunID, err)
	}

	sum := &Summary{RunID: prog.RunID, Pending: pending}
	if pending == 0 {
		logging.Info().Msg("no applications awaiting embeddings")
		return sum, nil
	}

	if err := e.src.StartEmbeddingRun(ctx, runID, e.cfg.Model, e.cfg.Dimension); err != nil {
		return nil, err
	}
	logging.Info().
		Str("run_id", prog.RunID).
		Int64("pending", pending).
		Str("model", e.cfg.Model).
		Int("batch_size", e.cfg.BatchSize).
		Msg("embedding run starting")

	batchSize := e.cfg.BatchSize
	fastStreak := 0
	retriedAtHalf := false

	finish := func() {
		if err := e.src.FinishEmbeddingRun(ctx, runID, prog.Written, time.Now().UTC()); err != nil {
			logging.Err(err).Msg("recording embedding run finish failed")
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			finish()
			return sum, err
		}

		rows, err := e.src.PendingEmbeddings(ctx, prog.AfterID, e.cfg.ChunkSize)
		if err != nil {
			finish()
			return sum, err
		}
		if len(rows) == 0 {
			// A stale cursor from an earlier run can sit past rows loaded
			// since. Rewind once; a second empty fetch means done.
			if prog.AfterID > 0 {
				prog.AfterID = 0
				continue
			}
			break
		}

		for start := 0; start < len(rows); {
			if err := ctx.Err(); err != nil {
				finish()
				return sum, err
			}

			end := start + batchSize
			if end > len(rows) {
				end = len(rows)
			}
			batch := rows[start:end]

			texts := make([]string, len(batch))
			for i, r := range batch {
				texts[i] = r.Text
			}

			began := time.Now()
			vectors, err := e.provider.Embed(ctx, texts)
			if err != nil {
				if retriedAtHalf {
					finish()
					return sum, fmt.Errorf("embed batch at appid %d failed twice: %w", batch[0].AppID, err)
				}
				if batchSize > 1 {
					batchSize /= 2
				}
				retriedAtHalf = true
				fastStreak = 0
				logging.Warn().
					Err(err).
					Int("batch_size", batchSize).
					Msg("embed batch failed, retrying at half size")
				continue
			}
			retriedAtHalf = false
			elapsed := time.Since(began)

			if err := e.validate(texts, vectors); err != nil {
				finish()
				return sum, err
			}

			update := make([]store.VectorRow, len(batch))
			for i, r := range batch {
				update[i] = store.VectorRow{AppID: r.AppID, Vector: vectors[i]}
			}
			if err := e.src.UpdateVectors(ctx, update); err != nil {
				finish()
				return sum, err
			}

			prog.Written += int64(len(batch))
			prog.AfterID = batch[len(batch)-1].AppID
			prog.UpdatedAt = time.Now().UTC()
			if err := checkpoint.SaveJSON(e.cfg.CheckpointPath, &prog); err != nil {
				finish()
				return sum, err
			}

			metrics.EmbeddingBatchSize.Set(float64(batchSize))
			metrics.EmbeddingBatchDuration.Observe(elapsed.Seconds())

			if elapsed < e.cfg.FastBatch && batchSize < e.cfg.MaxBatchSize {
				fastStreak++
				if fastStreak >= e.cfg.GrowAfter {
					grown := batchSize + batchSize/4
					if grown == batchSize {
						grown++
					}
					if grown > e.cfg.MaxBatchSize {
						grown = e.cfg.MaxBatchSize
					}
					logging.Info().Int("from", batchSize).Int("to", grown).Msg("growing embed batch size")
					batchSize = grown
					fastStreak = 0
				}
			} else {
				fastStreak = 0
			}

			sum.Written = prog.Written
			if e.Progress != nil {
				e.Progress(prog.Written, pending)
			}
			start = end
		}
	}

	finish()
	logging.Info().
		Str("run_id", prog.RunID).
		Int64("written", prog.Written).
		Msg("embedding run finished")
	return sum, nil
}

// validate rejects a response whose vectors cannot have come from the
// configured model.
func (e *Enricher) validate(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: got %d vectors for %d texts", ErrBadVector, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != e.cfg.Dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrBadVector, i, len(v), e.cfg.Dimension)
		}
		var sq float64
		for _, f := range v {
			sq += float64(f) * float64(f)
		}
		if math.Abs(math.Sqrt(sq)-1) > e.cfg.NormTolerance {
			return fmt.Errorf("%w: vector %d has norm %.6f, want 1.0", ErrBadVector, i, math.Sqrt(sq))
		}
	}
	return nil
}
