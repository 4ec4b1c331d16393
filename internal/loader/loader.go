// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Package loader imports collected batch files into PostgreSQL. The import
// is three phases inside one transaction: lookup names first, then
// applications, then junctions and reviews. A failure in any phase rolls
// back the entire import, so a half-loaded catalog is never observable.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/datamesa/steamset/internal/config"
	"github.com/datamesa/steamset/internal/logging"
	"github.com/datamesa/steamset/internal/metrics"
	"github.com/datamesa/steamset/internal/models"
	"github.com/datamesa/steamset/internal/store"
	"github.com/datamesa/steamset/internal/streamjson"
)

// ImportTx is the transactional surface the loader writes through. Satisfied
// by *store.LoadTx.
type ImportTx interface {
	UpsertNames(ctx context.Context, table string, names []string) error
	NameIDs(ctx context.Context, table string) (map[string]int64, error)
	KnownAppIDs(ctx context.Context) (map[int64]struct{}, error)
	InsertApplications(ctx context.Context, apps []store.AppRow) (int64, error)
	InsertJunctions(ctx context.Context, table string, rows []store.JunctionRow) (int64, error)
	InsertReviews(ctx context.Context, reviews []store.ReviewRow) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxBeginner opens import transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (ImportTx, error)
}

// Summary is the import report, written as a JSON artifact next to the gap
// reports.
type Summary struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ns"`
	DataFiles   int           `json:"data_files"`
	ReviewFiles int           `json:"review_files"`

	RecordsRead    int `json:"records_read"`
	RecordsSkipped int `json:"records_skipped"`

	LookupNames          map[string]int `json:"lookup_names"`
	ApplicationsInserted int64          `json:"applications_inserted"`
	JunctionsInserted    int64          `json:"junctions_inserted"`
	ReviewsRead          int            `json:"reviews_read"`
	ReviewsInserted      int64          `json:"reviews_inserted"`
	DanglingReviews      int            `json:"dangling_reviews"`
}

// Loader drives the import.
type Loader struct {
	target TxBeginner
	cfg    config.LoaderConfig
}

// New assembles a Loader writing through target.
func New(target TxBeginner, cfg config.LoaderConfig) *Loader {
	return &Loader{target: target, cfg: cfg}
}

// Run imports every data and review file. dataFiles hold detail-record
// arrays, reviewFiles hold review envelopes; both are streamed rather than
// slurped. Returns the summary even when the transaction rolls back, so the
// caller can report how far the import got.
func (l *Loader) Run(ctx context.Context, dataFiles, reviewFiles []string) (*Summary, error) {
	sum := &Summary{
		RunID:       uuid.NewString(),
		StartedAt:   time.Now().UTC(),
		DataFiles:   len(dataFiles),
		ReviewFiles: len(reviewFiles),
		LookupNames: make(map[string]int),
	}
	logging.Info().
		Str("run_id", sum.RunID).
		Int("data_files", len(dataFiles)).
		Int("review_files", len(reviewFiles)).
		Msg("import starting")

	tx, err := l.target.Begin(ctx)
	if err != nil {
		return sum, err
	}

	if err := l.runPhases(ctx, tx, dataFiles, reviewFiles, sum); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logging.Err(rbErr).Msg("rollback failed")
		}
		metrics.BatchesRolledBack.Inc()
		sum.Duration = time.Since(sum.StartedAt)
		return sum, err
	}

	if err := tx.Commit(ctx); err != nil {
		sum.Duration = time.Since(sum.StartedAt)
		return sum, err
	}

	sum.Duration = time.Since(sum.StartedAt)
	logging.Info().
		Str("run_id", sum.RunID).
		Int64("applications", sum.ApplicationsInserted).
		Int64("reviews", sum.ReviewsInserted).
		Int("skipped", sum.RecordsSkipped).
		Dur("took", sum.Duration).
		Msg("import committed")
	return sum, nil
}

// junctionFor maps each lookup table to the junction table referencing it.
var junctionFor = map[string]string{
	"developers": "application_developers",
	"publishers": "application_publishers",
	"genres":     "application_genres",
	"categories": "application_categories",
}

func (l *Loader) runPhases(ctx context.Context, tx ImportTx, dataFiles, reviewFiles []string, sum *Summary) error {
	// Phase 1: sweep every record for lookup names, then upsert and read
	// back the name-to-id maps.
	names := map[string]map[string]struct{}{
		"developers": {}, "publishers": {}, "genres": {}, "categories": {},
	}
	for _, path := range dataFiles {
		err := streamjson.EachFile(path, func(rec models.DetailRecord) error {
			if !acceptable(rec) {
				return nil
			}
			d := rec.Data
			for _, n := range d.Developers {
				addName(names["developers"], n)
			}
			for _, n := range d.Publishers {
				addName(names["publishers"], n)
			}
			for _, g := range d.Genres {
				addName(names["genres"], g.Description)
			}
			for _, c := range d.Categories {
				addName(names["categories"], c.Description)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	ids := make(map[string]map[string]int64, len(names))
	for table, set := range names {
		list := make([]string, 0, len(set))
		for n := range set {
			list = append(list, n)
		}
		if err := tx.UpsertNames(ctx, table, list); err != nil {
			return err
		}
		m, err := tx.NameIDs(ctx, table)
		if err != nil {
			return err
		}
		ids[table] = m
		sum.LookupNames[table] = len(set)
		metrics.RowsLoaded.WithLabelValues(table).Add(float64(len(set)))
	}
	logging.Info().
		Int("developers", sum.LookupNames["developers"]).
		Int("publishers", sum.LookupNames["publishers"]).
		Int("genres", sum.LookupNames["genres"]).
		Int("categories", sum.LookupNames["categories"]).
		Msg("lookup tables resolved")

	// Phase 2 and 3a: stream records again, building application rows and
	// their junction links together so a skipped record contributes
	// neither.
	junctions := map[string][]store.JunctionRow{}
	appBatch := make([]store.AppRow, 0, l.cfg.BatchSize)
	seen := make(map[int64]struct{})

	flushApps := func() error {
		if len(appBatch) == 0 {
			return nil
		}
		n, err := tx.InsertApplications(ctx, appBatch)
		if err != nil {
			return err
		}
		sum.ApplicationsInserted += n
		metrics.RowsLoaded.WithLabelValues("applications").Add(float64(n))
		appBatch = appBatch[:0]
		return nil
	}

	for _, path := range dataFiles {
		err := streamjson.EachFile(path, func(rec models.DetailRecord) error {
			sum.RecordsRead++
			if !acceptable(rec) {
				sum.RecordsSkipped++
				metrics.RecordsSkipped.Inc()
				logging.Warn().
					Int64("appid", rec.AppID).
					Str("file", filepath.Base(path)).
					Msg("skipping malformed record")
				return nil
			}
			d := rec.Data
			if _, dup := seen[d.SteamAppID]; dup {
				sum.RecordsSkipped++
				metrics.RecordsSkipped.Inc()
				logging.Debug().Int64("appid", d.SteamAppID).Msg("skipping duplicate record")
				return nil
			}
			seen[d.SteamAppID] = struct{}{}

			appBatch = append(appBatch, buildAppRow(rec))
			appendJunctions(junctions, ids, d)

			if len(appBatch) >= l.cfg.BatchSize {
				return flushApps()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	if err := flushApps(); err != nil {
		return err
	}

	for table, rows := range junctions {
		n, err := tx.InsertJunctions(ctx, table, rows)
		if err != nil {
			return err
		}
		sum.JunctionsInserted += n
		metrics.RowsLoaded.WithLabelValues(table).Add(float64(n))
	}

	// Phase 3b: reviews. Envelopes referencing applications not in the
	// database are dangling and skipped, never inserted to fail on the
	// foreign key.
	if len(reviewFiles) == 0 {
		return nil
	}
	known, err := tx.KnownAppIDs(ctx)
	if err != nil {
		return err
	}

	reviewBatch := make([]store.ReviewRow, 0, l.cfg.ReviewBatchSize)
	flushReviews := func() error {
		if len(reviewBatch) == 0 {
			return nil
		}
		n, err := tx.InsertReviews(ctx, reviewBatch)
		if err != nil {
			return err
		}
		sum.ReviewsInserted += n
		metrics.RowsLoaded.WithLabelValues("reviews").Add(float64(n))
		reviewBatch = reviewBatch[:0]
		return nil
	}

	for _, path := range reviewFiles {
		err := streamjson.EachFile(path, func(env models.ReviewEnvelope) error {
			if env.Reviews == nil {
				return nil
			}
			if _, ok := known[env.AppID]; !ok {
				sum.DanglingReviews += len(env.Reviews.Reviews)
				logging.Warn().
					Int64("appid", env.AppID).
					Int("reviews", len(env.Reviews.Reviews)).
					Msg("review envelope references unknown application")
				return nil
			}
			for _, rv := range env.Reviews.Reviews {
				if rv.RecommendationID == "" {
					sum.RecordsSkipped++
					metrics.RecordsSkipped.Inc()
					continue
				}
				sum.ReviewsRead++
				reviewBatch = append(reviewBatch, buildReviewRow(env.AppID, rv))
				if len(reviewBatch) >= l.cfg.ReviewBatchSize {
					if err := flushReviews(); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return flushReviews()
}

// acceptable filters records the import will materialize: a successful fetch
// with a payload that carries its identifier, a name, and a recognized type.
// A payload without steam_appid would otherwise land as an appid 0 row with
// junctions pointing at it.
func acceptable(rec models.DetailRecord) bool {
	if !rec.Success || rec.Data == nil {
		return false
	}
	if rec.Data.SteamAppID == 0 {
		return false
	}
	if rec.AppID != 0 && rec.Data.SteamAppID != rec.AppID {
		return false
	}
	if rec.Data.Name == "" {
		return false
	}
	_, ok := models.AllowedAppTypes[rec.Data.Type]
	return ok
}

func addName(set map[string]struct{}, name string) {
	if name != "" {
		set[name] = struct{}{}
	}
}

// appendJunctions links one application to its lookup rows. Names missing
// from the id maps were filtered during phase 1 and are skipped here too.
func appendJunctions(junctions map[string][]store.JunctionRow, ids map[string]map[string]int64, d *models.AppDetail) {
	link := func(lookup string, names []string) {
		table := junctionFor[lookup]
		for _, n := range names {
			if id, ok := ids[lookup][n]; ok {
				junctions[table] = append(junctions[table], store.JunctionRow{AppID: d.SteamAppID, RefID: id})
			}
		}
	}
	link("developers", d.Developers)
	link("publishers", d.Publishers)
	link("genres", descriptions(d.Genres))
	link("categories", descriptions(d.Categories))
}

func descriptions(ds []models.Descriptor) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Description)
	}
	return out
}

// WriteReport persists the summary as a JSON artifact in dir.
func (s *Summary) WriteReport(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("load_report_%s.json", s.RunID))
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal load report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write load report: %w", err)
	}
	return path, nil
}
