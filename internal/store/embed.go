// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/datamesa/steamset/internal/metrics"
)

// PendingEmbeddings returns up to limit applications with no embedding yet,
// in ascending appid order starting after afterID. The embedded text is the
// short description with the detailed description as fallback.
func (s *Store) PendingEmbeddings(ctx context.Context, afterID int64, limit int) ([]TextRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT appid,
		       COALESCE(NULLIF(short_description, ''), detailed_description, '') AS text
		FROM applications
		WHERE description_vector IS NULL AND appid > $1
		ORDER BY appid
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending embeddings: %w", err)
	}
	defer rows.Close()

	var out []TextRow
	for rows.Next() {
		var r TextRow
		if err := rows.Scan(&r.AppID, &r.Text); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PendingEmbeddingCount returns how many applications still lack a vector.
func (s *Store) PendingEmbeddingCount(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM applications WHERE description_vector IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending embeddings: %w", err)
	}
	return n, nil
}

// UpdateVectors bulk-writes embeddings. Vectors go through a session temp
// table via COPY, then a single UPDATE joins them into applications; per-row
// UPDATE round trips are far too slow at catalog scale.
func (s *Store) UpdateVectors(ctx context.Context, batch []VectorRow) error {
	if len(batch) == 0 {
		return nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin vector update: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE pending_vectors (
			appid BIGINT PRIMARY KEY,
			vec   TEXT NOT NULL
		) ON COMMIT DROP`); err != nil {
		return fmt.Errorf("create vector staging table: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"pending_vectors"},
		[]string{"appid", "vec"},
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			return []any{batch[i].AppID, VectorLiteral(batch[i].Vector)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy vectors to staging table: %w", err)
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE applications a
		SET description_vector = p.vec::vector(%d)
		FROM pending_vectors p
		WHERE a.appid = p.appid`, s.dim))
	if err != nil {
		return fmt.Errorf("apply vector updates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit vector update: %w", err)
	}

	metrics.VectorsWritten.WithLabelValues("applications").Add(float64(tag.RowsAffected()))
	return nil
}

// StartEmbeddingRun records provenance for an enrichment run.
func (s *Store) StartEmbeddingRun(ctx context.Context, runID uuid.UUID, model string, dim int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO embedding_runs (run_id, model, dimension, started_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (run_id) DO NOTHING`, runID, model, dim)
	if err != nil {
		return fmt.Errorf("record embedding run start: %w", err)
	}
	return nil
}

// FinishEmbeddingRun stamps completion on a run's provenance row.
func (s *Store) FinishEmbeddingRun(ctx context.Context, runID uuid.UUID, written int64, finishedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE embedding_runs
		SET finished_at = $2, vectors_written = $3
		WHERE run_id = $1`, runID, finishedAt, written)
	if err != nil {
		return fmt.Errorf("record embedding run finish: %w", err)
	}
	return nil
}

// VectorLiteral renders a float32 slice in pgvector's input syntax.
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
