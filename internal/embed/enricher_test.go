// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package embed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/datamesa/steamset/internal/config"
	"github.com/datamesa/steamset/internal/store"
)

// fakeProvider returns unit vectors, optionally failing the first n calls.
type fakeProvider struct {
	dim        int
	failFirst  int
	calls      int
	batchSizes []int
	badDim     bool
	badNorm    bool
}

func (p *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.calls++
	p.batchSizes = append(p.batchSizes, len(texts))
	if p.failFirst > 0 {
		p.failFirst--
		return nil, errors.New("inference server overloaded")
	}

	dim := p.dim
	if p.badDim {
		dim = p.dim - 1
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, dim)
		if p.badNorm {
			v[0] = 2
		} else {
			v[0] = 1 // unit vector
		}
		out[i] = v
	}
	return out, nil
}

// fakeSource is an in-memory pending-row table.
type fakeSource struct {
	pending map[int64]string
	written map[int64][]float32
	runs    map[uuid.UUID]int64
}

func newFakeSource(n int) *fakeSource {
	s := &fakeSource{
		pending: make(map[int64]string),
		written: make(map[int64][]float32),
		runs:    make(map[uuid.UUID]int64),
	}
	for i := 1; i <= n; i++ {
		s.pending[int64(i)] = fmt.Sprintf("description %d", i)
	}
	return s
}

func (s *fakeSource) PendingEmbeddingCount(context.Context) (int64, error) {
	return int64(len(s.pending)), nil
}

func (s *fakeSource) PendingEmbeddings(_ context.Context, afterID int64, limit int) ([]store.TextRow, error) {
	var out []store.TextRow
	for id := afterID + 1; len(out) < limit && id <= int64(len(s.pending)+len(s.written)); id++ {
		if text, ok := s.pending[id]; ok {
			out = append(out, store.TextRow{AppID: id, Text: text})
		}
	}
	return out, nil
}

func (s *fakeSource) UpdateVectors(_ context.Context, batch []store.VectorRow) error {
	for _, r := range batch {
		if _, ok := s.pending[r.AppID]; !ok {
			return fmt.Errorf("appid %d not pending", r.AppID)
		}
		delete(s.pending, r.AppID)
		s.written[r.AppID] = r.Vector
	}
	return nil
}

func (s *fakeSource) StartEmbeddingRun(_ context.Context, runID uuid.UUID, _ string, _ int) error {
	s.runs[runID] = -1
	return nil
}

func (s *fakeSource) FinishEmbeddingRun(_ context.Context, runID uuid.UUID, written int64, _ time.Time) error {
	s.runs[runID] = written
	return nil
}

func testEnricherConfig(t *testing.T) config.EmbeddingConfig {
	t.Helper()
	return config.EmbeddingConfig{
		Model:          "test-model",
		Dimension:      4,
		BatchSize:      4,
		MaxBatchSize:   16,
		GrowAfter:      2,
		FastBatch:      time.Second,
		NormTolerance:  1e-3,
		ChunkSize:      100,
		CheckpointPath: filepath.Join(t.TempDir(), "embedding_progress.json"),
	}
}

// TestRunEmbedsAllPending verifies every pending row gets a vector and the
// provenance row records the total.
func TestRunEmbedsAllPending(t *testing.T) {
	cfg := testEnricherConfig(t)
	src := newFakeSource(10)
	provider := &fakeProvider{dim: cfg.Dimension}

	sum, err := New(provider, src, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if sum.Written != 10 {
		t.Errorf("Written = %d, want 10", sum.Written)
	}
	if len(src.pending) != 0 {
		t.Errorf("%d rows still pending", len(src.pending))
	}
	if len(src.written[1]) != cfg.Dimension {
		t.Errorf("stored vector has dimension %d, want %d", len(src.written[1]), cfg.Dimension)
	}

	runID := uuid.MustParse(sum.RunID)
	if got := src.runs[runID]; got != 10 {
		t.Errorf("provenance row records %d vectors, want 10", got)
	}
}

// TestRunHalvesOnFailure verifies a failed batch retries once at half size
// and recovers.
func TestRunHalvesOnFailure(t *testing.T) {
	cfg := testEnricherConfig(t)
	src := newFakeSource(8)
	provider := &fakeProvider{dim: cfg.Dimension, failFirst: 1}

	sum, err := New(provider, src, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if sum.Written != 8 {
		t.Errorf("Written = %d, want 8", sum.Written)
	}
	// First call: full batch, fails. Second: halved.
	if provider.batchSizes[0] != 4 || provider.batchSizes[1] != 2 {
		t.Errorf("batch sizes = %v, want first two 4,2", provider.batchSizes)
	}
}

// TestRunAbortsOnRepeatedFailure verifies two consecutive failures end the run.
func TestRunAbortsOnRepeatedFailure(t *testing.T) {
	cfg := testEnricherConfig(t)
	src := newFakeSource(8)
	provider := &fakeProvider{dim: cfg.Dimension, failFirst: 2}

	_, err := New(provider, src, cfg).Run(context.Background())
	if err == nil {
		t.Fatal("Run() succeeded despite repeated failures")
	}
}

// TestRunGrowsAfterFastBatches verifies sustained fast batches grow the
// batch size toward the ceiling.
func TestRunGrowsAfterFastBatches(t *testing.T) {
	cfg := testEnricherConfig(t) // grow after 2 fast batches
	src := newFakeSource(40)
	provider := &fakeProvider{dim: cfg.Dimension}

	if _, err := New(provider, src, cfg).Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	grew := false
	for _, size := range provider.batchSizes {
		if size > cfg.BatchSize {
			grew = true
		}
		if size > cfg.MaxBatchSize {
			t.Errorf("batch size %d exceeded ceiling %d", size, cfg.MaxBatchSize)
		}
	}
	if !grew {
		t.Errorf("batch size never grew: %v", provider.batchSizes)
	}
}

// TestRunRejectsWrongDimension verifies dimension validation aborts the run.
func TestRunRejectsWrongDimension(t *testing.T) {
	cfg := testEnricherConfig(t)
	src := newFakeSource(4)
	provider := &fakeProvider{dim: cfg.Dimension, badDim: true}

	_, err := New(provider, src, cfg).Run(context.Background())
	if !errors.Is(err, ErrBadVector) {
		t.Fatalf("error = %v, want ErrBadVector", err)
	}
	if len(src.written) != 0 {
		t.Errorf("%d invalid vectors were written", len(src.written))
	}
}

// TestRunRejectsBadNorm verifies non-unit vectors abort the run.
func TestRunRejectsBadNorm(t *testing.T) {
	cfg := testEnricherConfig(t)
	src := newFakeSource(4)
	provider := &fakeProvider{dim: cfg.Dimension, badNorm: true}

	_, err := New(provider, src, cfg).Run(context.Background())
	if !errors.Is(err, ErrBadVector) {
		t.Fatalf("error = %v, want ErrBadVector", err)
	}
}

// TestRunNothingPending verifies an up-to-date catalog is a no-op.
func TestRunNothingPending(t *testing.T) {
	cfg := testEnricherConfig(t)
	src := newFakeSource(0)
	provider := &fakeProvider{dim: cfg.Dimension}

	sum, err := New(provider, src, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if sum.Written != 0 || provider.calls != 0 {
		t.Errorf("no-op run wrote %d and called provider %d times", sum.Written, provider.calls)
	}
	if len(src.runs) != 0 {
		t.Error("no-op run recorded provenance")
	}
}

// TestValidateNormTolerance verifies near-unit vectors within tolerance pass.
func TestValidateNormTolerance(t *testing.T) {
	cfg := testEnricherConfig(t)
	e := New(nil, nil, cfg)

	almost := float32(math.Sqrt(1.0/4.0)) * 0.9999
	v := []float32{almost, almost, almost, almost}
	if err := e.validate([]string{"x"}, [][]float32{v}); err != nil {
		t.Errorf("validate() rejected vector within tolerance: %v", err)
	}
}
