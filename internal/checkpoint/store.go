// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Package checkpoint persists resumable collection state. Writes go through
// write-temp-then-rename so a crash mid-write can never leave a partially
// written checkpoint observable by a later Load.
package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/datamesa/steamset/internal/metrics"
	"github.com/datamesa/steamset/internal/models"
)

// ErrCorrupt indicates an existing checkpoint file that cannot be parsed.
// Treated as fatal at startup: silently discarding it would re-process
// completed work at best and mask a storage fault at worst.
var ErrCorrupt = errors.New("checkpoint: corrupt state file")

// State is the durable progress of one collection run.
type State struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ProcessedIDs lists every identifier attempted, accepted or not, so a
	// resumed run skips them.
	ProcessedIDs []int64 `json:"processed_ids"`

	// FailedIDs is the subset of ProcessedIDs that ended Rejected. Kept
	// separately so gap reconciliation can target them.
	FailedIDs []int64 `json:"failed_ids,omitempty"`

	// Buffer holds accepted records not yet flushed to a batch file. Saved
	// with the ID sets so a crash between flushes loses nothing.
	Buffer []models.DetailRecord `json:"buffer,omitempty"`

	// NextBatch is the sequence number of the next batch output file.
	NextBatch int `json:"next_batch"`

	// AcceptedCount is the running total of accepted records.
	AcceptedCount int `json:"accepted_count"`

	// Completed marks a run that reached its target; the file is kept for
	// the final tally rather than deleted.
	Completed bool `json:"completed"`
}

// ProcessedSet builds an O(1) membership set from ProcessedIDs.
func (s *State) ProcessedSet() map[int64]struct{} {
	set := make(map[int64]struct{}, len(s.ProcessedIDs))
	for _, id := range s.ProcessedIDs {
		set[id] = struct{}{}
	}
	return set
}

// Store reads and writes checkpoint state at a fixed path. Single writer,
// single reader within one process lifetime; no locking.
type Store struct {
	path string
}

// NewStore creates a Store persisting to path. The parent directory is
// created on first Save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string { return s.path }

// Load returns the last durably saved state, or a zero state if no
// checkpoint exists. A present-but-unparseable file returns ErrCorrupt.
func (s *Store) Load() (*State, error) {
	var state State
	if _, err := LoadJSON(s.path, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Save durably writes state. The temp file lands in the checkpoint's own
// directory so the rename never crosses a filesystem boundary.
func (s *Store) Save(state *State) error {
	state.UpdatedAt = time.Now().UTC()
	return SaveJSON(s.path, state)
}

// LoadJSON reads a JSON state file into v. Returns false with a nil error
// when the file does not exist; a present-but-unparseable file returns
// ErrCorrupt.
func LoadJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read checkpoint %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return true, nil
}

// SaveJSON durably writes v as JSON at path via write-temp-then-rename.
func SaveJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename checkpoint into place: %w", err)
	}

	metrics.CheckpointWrites.Inc()
	return nil
}
