// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/datamesa/steamset/internal/checkpoint"
	"github.com/datamesa/steamset/internal/config"
	"github.com/datamesa/steamset/internal/models"
	"github.com/datamesa/steamset/internal/steam"
)

// fakeFetcher serves canned outcomes per app ID.
type fakeFetcher struct {
	notFound  map[int64]bool
	exhausted map[int64]bool
	badType   map[int64]bool
	noID      map[int64]bool
	fatalFrom int64 // appID at which to return a fatal error, 0 disables
	calls     []int64
}

func (f *fakeFetcher) FetchDetail(_ context.Context, appID int64) (models.DetailRecord, error) {
	f.calls = append(f.calls, appID)
	if f.fatalFrom != 0 && appID == f.fatalFrom {
		return models.DetailRecord{}, fmt.Errorf("authorization rejected: %w", steam.ErrFatalAuth)
	}
	rec := models.DetailRecord{AppID: appID, FetchedAt: time.Now().UTC()}
	switch {
	case f.notFound[appID]:
		rec.Success = false
	case f.exhausted[appID]:
		rec.Success = false
		rec.Error = "retries exhausted after 3 attempts"
	default:
		typ := "game"
		if f.badType[appID] {
			typ = "hardware"
		}
		id := appID
		if f.noID[appID] {
			id = 0
		}
		rec.Success = true
		rec.Data = &models.AppDetail{
			SteamAppID: id,
			Name:       fmt.Sprintf("App %d", appID),
			Type:       typ,
		}
	}
	return rec, nil
}

func testConfig(t *testing.T) config.CollectorConfig {
	t.Helper()
	base := t.TempDir()
	return config.CollectorConfig{
		DataDir:         filepath.Join(base, "data"),
		StateDir:        filepath.Join(base, "state"),
		SaveBatchSize:   4,
		CheckpointEvery: 3,
	}
}

func entryList(ids ...int64) []models.CatalogEntry {
	entries := make([]models.CatalogEntry, len(ids))
	for i, id := range ids {
		entries[i] = models.CatalogEntry{AppID: id, Name: fmt.Sprintf("App %d", id)}
	}
	return entries
}

// TestRunOutcomeTally verifies the canonical split: ten entries where two
// come back not-found yields eight accepted, two rejected, all ten processed.
func TestRunOutcomeTally(t *testing.T) {
	cfg := testConfig(t)
	store := checkpoint.NewStore(filepath.Join(cfg.StateDir, "collection.json"))
	fetcher := &fakeFetcher{notFound: map[int64]bool{3: true, 7: true}}

	sum, err := New(fetcher, store, cfg).Run(context.Background(), entryList(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if sum.Processed != 10 || sum.Accepted != 8 || sum.Rejected != 2 {
		t.Errorf("tally = %+v, want processed=10 accepted=8 rejected=2", sum)
	}

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !state.Completed {
		t.Error("final checkpoint not marked completed")
	}
	if len(state.ProcessedIDs) != 10 {
		t.Errorf("checkpoint processed = %d, want 10", len(state.ProcessedIDs))
	}
	if len(state.Buffer) != 0 {
		t.Errorf("final checkpoint still buffers %d records", len(state.Buffer))
	}
}

// TestRunBatchFiles verifies accepted records land in sequentially numbered
// files of the configured size, with the remainder flushed at the end.
func TestRunBatchFiles(t *testing.T) {
	cfg := testConfig(t) // batch size 4
	store := checkpoint.NewStore(filepath.Join(cfg.StateDir, "collection.json"))
	fetcher := &fakeFetcher{}

	sum, err := New(fetcher, store, cfg).Run(context.Background(), entryList(1, 2, 3, 4, 5, 6))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if sum.Batches != 2 {
		t.Errorf("Batches = %d, want 2", sum.Batches)
	}

	first := filepath.Join(cfg.DataDir, "steam_data_batch_00000.json")
	data, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read %s: %v", first, err)
	}
	var records []models.DetailRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("batch file not a record array: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("first batch holds %d records, want 4", len(records))
	}
	if records[0].Data == nil || records[0].Data.Name != "App 1" {
		t.Errorf("first record mismatch: %+v", records[0])
	}

	second := filepath.Join(cfg.DataDir, "steam_data_batch_00001.json")
	if _, err := os.Stat(second); err != nil {
		t.Errorf("remainder batch missing: %v", err)
	}
}

// TestRunResumeSkipsProcessed verifies a second run over the same worklist
// only fetches IDs the checkpoint has not seen.
func TestRunResumeSkipsProcessed(t *testing.T) {
	cfg := testConfig(t)
	store := checkpoint.NewStore(filepath.Join(cfg.StateDir, "collection.json"))

	// First run aborts partway via a fatal error at appid 4.
	aborting := &fakeFetcher{fatalFrom: 4}
	_, err := New(aborting, store, cfg).Run(context.Background(), entryList(1, 2, 3, 4, 5))
	if err == nil {
		t.Fatal("expected first run to abort")
	}

	resumed := &fakeFetcher{}
	sum, err := New(resumed, store, cfg).Run(context.Background(), entryList(1, 2, 3, 4, 5))
	if err != nil {
		t.Fatalf("resumed Run() failed: %v", err)
	}
	if !sum.Resumed {
		t.Error("summary not marked resumed")
	}
	for _, id := range resumed.calls {
		if id <= 3 {
			t.Errorf("resumed run refetched already-processed appid %d", id)
		}
	}
	if sum.Processed != 2 {
		t.Errorf("resumed run processed %d, want 2", sum.Processed)
	}
}

// TestRunFatalAborts verifies a fatal fetch error stops the run and
// checkpoints what was done so far.
func TestRunFatalAborts(t *testing.T) {
	cfg := testConfig(t)
	store := checkpoint.NewStore(filepath.Join(cfg.StateDir, "collection.json"))
	fetcher := &fakeFetcher{fatalFrom: 3}

	_, err := New(fetcher, store, cfg).Run(context.Background(), entryList(1, 2, 3, 4, 5))
	if !errors.Is(err, steam.ErrFatalAuth) {
		t.Fatalf("error = %v, want ErrFatalAuth", err)
	}

	state, loadErr := store.Load()
	if loadErr != nil {
		t.Fatalf("Load() failed: %v", loadErr)
	}
	if state.Completed {
		t.Error("aborted run marked completed")
	}
	if len(state.ProcessedIDs) != 2 {
		t.Errorf("checkpoint processed = %d, want 2", len(state.ProcessedIDs))
	}
	if last := fetcher.calls[len(fetcher.calls)-1]; last != 3 {
		t.Errorf("run continued past fatal error, last call appid %d", last)
	}
}

// TestRunValidationRejects verifies structurally invalid payloads are
// rejected rather than buffered.
func TestRunValidationRejects(t *testing.T) {
	cfg := testConfig(t)
	store := checkpoint.NewStore(filepath.Join(cfg.StateDir, "collection.json"))
	fetcher := &fakeFetcher{badType: map[int64]bool{2: true}}

	sum, err := New(fetcher, store, cfg).Run(context.Background(), entryList(1, 2))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if sum.Accepted != 1 || sum.Rejected != 1 {
		t.Errorf("tally = %+v, want accepted=1 rejected=1", sum)
	}
}

// TestRunRejectsMissingIdentifier verifies a payload without its steam_appid
// field never reaches the buffer; a zero identifier would otherwise flow into
// batch files and the database as appid 0.
func TestRunRejectsMissingIdentifier(t *testing.T) {
	cfg := testConfig(t)
	store := checkpoint.NewStore(filepath.Join(cfg.StateDir, "collection.json"))
	fetcher := &fakeFetcher{noID: map[int64]bool{2: true}}

	sum, err := New(fetcher, store, cfg).Run(context.Background(), entryList(1, 2, 3))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if sum.Accepted != 2 || sum.Rejected != 1 {
		t.Errorf("tally = %+v, want accepted=2 rejected=1", sum)
	}

	state, loadErr := store.Load()
	if loadErr != nil {
		t.Fatalf("Load() failed: %v", loadErr)
	}
	if len(state.Buffer) != 0 {
		t.Errorf("final checkpoint still buffers %d records", len(state.Buffer))
	}
}

// TestRunFreshRunContinuesBatchNumbering verifies a new run after a completed
// one numbers its batch files after the previous generation instead of
// overwriting it.
func TestRunFreshRunContinuesBatchNumbering(t *testing.T) {
	cfg := testConfig(t) // batch size 4
	store := checkpoint.NewStore(filepath.Join(cfg.StateDir, "collection.json"))

	if _, err := New(&fakeFetcher{}, store, cfg).Run(context.Background(), entryList(1, 2, 3, 4)); err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}
	first := filepath.Join(cfg.DataDir, "steam_data_batch_00000.json")
	before, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("read %s: %v", first, err)
	}

	// Second run starts fresh: the prior checkpoint is marked completed.
	if _, err := New(&fakeFetcher{}, store, cfg).Run(context.Background(), entryList(5, 6, 7, 8)); err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}

	after, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("reread %s: %v", first, err)
	}
	if string(before) != string(after) {
		t.Error("second run overwrote the first run's batch file")
	}
	second := filepath.Join(cfg.DataDir, "steam_data_batch_00001.json")
	data, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("second run's batch file missing: %v", err)
	}
	var records []models.DetailRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("batch file not a record array: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("second generation batch holds %d records, want 4", len(records))
	}
	if records[0].AppID != 5 {
		t.Errorf("second generation starts at appid %d, want 5", records[0].AppID)
	}
}

// TestRunTargetCount verifies the run stops once enough records are accepted.
func TestRunTargetCount(t *testing.T) {
	cfg := testConfig(t)
	cfg.TargetCount = 3
	store := checkpoint.NewStore(filepath.Join(cfg.StateDir, "collection.json"))
	fetcher := &fakeFetcher{}

	sum, err := New(fetcher, store, cfg).Run(context.Background(), entryList(1, 2, 3, 4, 5, 6, 7, 8))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if sum.Accepted != 3 {
		t.Errorf("Accepted = %d, want 3", sum.Accepted)
	}
	if len(fetcher.calls) != 3 {
		t.Errorf("fetched %d entries, want 3", len(fetcher.calls))
	}
}

// TestRunMinAppIDFilter verifies low legacy IDs are excluded from the worklist.
func TestRunMinAppIDFilter(t *testing.T) {
	cfg := testConfig(t)
	cfg.MinAppID = 100
	store := checkpoint.NewStore(filepath.Join(cfg.StateDir, "collection.json"))
	fetcher := &fakeFetcher{}

	sum, err := New(fetcher, store, cfg).Run(context.Background(), entryList(10, 150, 99, 200))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if sum.Processed != 2 {
		t.Errorf("Processed = %d, want 2", sum.Processed)
	}
	for _, id := range fetcher.calls {
		if id < 100 {
			t.Errorf("fetched filtered appid %d", id)
		}
	}
}

// TestRunExhaustedRetriesTracked verifies retry-exhausted IDs land in the
// checkpoint's failed set for later reconciliation.
func TestRunExhaustedRetriesTracked(t *testing.T) {
	cfg := testConfig(t)
	store := checkpoint.NewStore(filepath.Join(cfg.StateDir, "collection.json"))
	fetcher := &fakeFetcher{exhausted: map[int64]bool{2: true}}

	sum, err := New(fetcher, store, cfg).Run(context.Background(), entryList(1, 2, 3))
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if sum.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", sum.Rejected)
	}

	state, loadErr := store.Load()
	if loadErr != nil {
		t.Fatalf("Load() failed: %v", loadErr)
	}
	if len(state.FailedIDs) != 1 || state.FailedIDs[0] != 2 {
		t.Errorf("FailedIDs = %v, want [2]", state.FailedIDs)
	}
}

// fakeReviewFetcher returns a page with one review, or nil for configured IDs.
type fakeReviewFetcher struct {
	empty map[int64]bool
	calls []int64
}

func (f *fakeReviewFetcher) FetchReviews(_ context.Context, appID int64) (*models.ReviewPage, error) {
	f.calls = append(f.calls, appID)
	if f.empty[appID] {
		return nil, nil
	}
	return &models.ReviewPage{
		Success: 1,
		Reviews: []models.Review{{RecommendationID: fmt.Sprintf("rec-%d", appID)}},
	}, nil
}

// TestReviewSweep verifies envelopes are written per app and empty pages
// count as rejected.
func TestReviewSweep(t *testing.T) {
	cfg := testConfig(t)
	store := checkpoint.NewStore(filepath.Join(cfg.StateDir, "reviews.json"))
	fetcher := &fakeReviewFetcher{empty: map[int64]bool{2: true}}

	sum, err := NewReviewCollector(fetcher, store, cfg).Run(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if sum.Processed != 3 || sum.Accepted != 2 || sum.Rejected != 1 {
		t.Errorf("tally = %+v, want processed=3 accepted=2 rejected=1", sum)
	}

	data, err := os.ReadFile(filepath.Join(cfg.DataDir, "steam_reviews_batch_00000.json"))
	if err != nil {
		t.Fatalf("read review batch: %v", err)
	}
	var envelopes []models.ReviewEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		t.Fatalf("review batch not an envelope array: %v", err)
	}
	if len(envelopes) != 2 {
		t.Errorf("batch holds %d envelopes, want 2", len(envelopes))
	}
	if envelopes[0].AppID != 1 || envelopes[0].Reviews == nil {
		t.Errorf("first envelope mismatch: %+v", envelopes[0])
	}
}
