// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Command steamset runs the catalog pipeline stages:
//
//	steamset collect     fetch app details for the full applist
//	steamset reviews     fetch review pages for loaded applications
//	steamset reconcile   refetch the gap between applist and database
//	steamset load        import batch files into PostgreSQL
//	steamset embed       backfill description embeddings
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/datamesa/steamset/internal/checkpoint"
	"github.com/datamesa/steamset/internal/collector"
	"github.com/datamesa/steamset/internal/config"
	"github.com/datamesa/steamset/internal/embed"
	"github.com/datamesa/steamset/internal/loader"
	"github.com/datamesa/steamset/internal/logging"
	"github.com/datamesa/steamset/internal/metrics"
	"github.com/datamesa/steamset/internal/pacing"
	"github.com/datamesa/steamset/internal/reconcile"
	"github.com/datamesa/steamset/internal/steam"
	"github.com/datamesa/steamset/internal/store"
)

const usage = `usage: steamset <command>

commands:
  collect     fetch app details for the full applist
  reviews     fetch review pages for loaded applications
  reconcile   refetch the gap between applist and database
  load        import batch files into PostgreSQL
  embed       backfill description embeddings
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Local .env files are a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "steamset: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.ListenAddr); err != nil {
				logging.Err(err).Msg("metrics endpoint stopped")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch cmd := os.Args[1]; cmd {
	case "collect":
		runErr = runCollect(ctx, cfg)
	case "reviews":
		runErr = runReviews(ctx, cfg)
	case "reconcile":
		runErr = runReconcile(ctx, cfg)
	case "load":
		runErr = runLoad(ctx, cfg)
	case "embed":
		runErr = runEmbed(ctx, cfg)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "steamset: unknown command %q\n%s", cmd, usage)
		os.Exit(2)
	}
	if runErr != nil {
		logging.Err(runErr).Str("command", os.Args[1]).Msg("command failed")
		os.Exit(1)
	}
}

func newSteamClient(cfg *config.Config) *steam.Client {
	return steam.NewClient(cfg.Steam, pacing.New(cfg.Steam.RequestDelay))
}

func runCollect(ctx context.Context, cfg *config.Config) error {
	client := newSteamClient(cfg)

	entries, err := client.ListAll(ctx)
	if err != nil {
		return err
	}

	state := checkpoint.NewStore(filepath.Join(cfg.Collector.StateDir, "collection_state.json"))
	c := collector.New(client, state, cfg.Collector)

	bar := newProgressBar("collecting app details")
	c.Progress = bar.update

	sum, err := c.Run(ctx, entries)
	bar.finish()
	if err != nil {
		return err
	}
	logging.Info().
		Int("processed", sum.Processed).
		Int("accepted", sum.Accepted).
		Int("rejected", sum.Rejected).
		Int("batches", sum.Batches).
		Msg("collect finished")
	return nil
}

func runReviews(ctx context.Context, cfg *config.Config) error {
	db, err := store.Open(ctx, cfg.Database, cfg.Embedding.Dimension)
	if err != nil {
		return err
	}
	defer db.Close()

	loaded, err := db.ObservedAppIDs(ctx)
	if err != nil {
		return err
	}
	reviewed, err := db.AppIDsWithReviews(ctx)
	if err != nil {
		return err
	}
	seen := make(map[int64]struct{}, len(reviewed))
	for _, id := range reviewed {
		seen[id] = struct{}{}
	}
	var targets []int64
	for _, id := range loaded {
		if _, ok := seen[id]; !ok {
			targets = append(targets, id)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	state := checkpoint.NewStore(filepath.Join(cfg.Collector.StateDir, "review_state.json"))
	r := collector.NewReviewCollector(newSteamClient(cfg), state, cfg.Collector)

	bar := newProgressBar("collecting reviews")
	r.Progress = bar.update

	sum, err := r.Run(ctx, targets)
	bar.finish()
	if err != nil {
		return err
	}
	logging.Info().
		Int("processed", sum.Processed).
		Int("accepted", sum.Accepted).
		Msg("review sweep finished")
	return nil
}

func runReconcile(ctx context.Context, cfg *config.Config) error {
	client := newSteamClient(cfg)

	entries, err := client.ListAll(ctx)
	if err != nil {
		return err
	}
	expected := make([]int64, 0, len(entries))
	for _, e := range entries {
		if e.AppID >= cfg.Collector.MinAppID {
			expected = append(expected, e.AppID)
		}
	}

	db, err := store.Open(ctx, cfg.Database, cfg.Embedding.Dimension)
	if err != nil {
		return err
	}
	defer db.Close()
	observed, err := db.ObservedAppIDs(ctx)
	if err != nil {
		return err
	}

	r := reconcile.New(client, cfg.Reconcile, cfg.Collector.DataDir)
	bar := newProgressBar("reconciling gaps")
	r.Progress = bar.update

	report, err := r.Run(ctx, expected, observed)
	bar.finish()
	if err != nil {
		return err
	}
	logging.Info().
		Int("recovered", len(report.Recovered)).
		Int("permanently_missing", len(report.PermanentlyMissing)).
		Str("report", report.ReportPath).
		Msg("reconcile finished")
	return nil
}

// pgTarget adapts the concrete store to the loader's transaction interface.
type pgTarget struct {
	db *store.Store
}

func (p pgTarget) Begin(ctx context.Context) (loader.ImportTx, error) {
	return p.db.Begin(ctx)
}

func runLoad(ctx context.Context, cfg *config.Config) error {
	dataFiles, err := globSorted(cfg.Collector.DataDir, "steam_data_batch_*.json", "steam_data_backfill_*.json")
	if err != nil {
		return err
	}
	reviewFiles, err := globSorted(cfg.Collector.DataDir, "steam_reviews_batch_*.json")
	if err != nil {
		return err
	}
	if len(dataFiles) == 0 && len(reviewFiles) == 0 {
		return fmt.Errorf("no batch files found under %s", cfg.Collector.DataDir)
	}

	db, err := store.Open(ctx, cfg.Database, cfg.Embedding.Dimension)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	sum, err := loader.New(pgTarget{db: db}, cfg.Loader).Run(ctx, dataFiles, reviewFiles)
	if err != nil {
		return err
	}
	path, err := sum.WriteReport(cfg.Reconcile.ReportDir)
	if err != nil {
		return err
	}
	logging.Info().
		Int64("applications", sum.ApplicationsInserted).
		Int64("reviews", sum.ReviewsInserted).
		Int("skipped", sum.RecordsSkipped).
		Str("report", path).
		Msg("load finished")
	return nil
}

func runEmbed(ctx context.Context, cfg *config.Config) error {
	db, err := store.Open(ctx, cfg.Database, cfg.Embedding.Dimension)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	e := embed.New(embed.NewHTTPProvider(cfg.Embedding), db, cfg.Embedding)
	bar := newProgressBar("embedding descriptions")
	e.Progress = bar.update64

	sum, err := e.Run(ctx)
	bar.finish()
	if err != nil {
		return err
	}
	logging.Info().
		Int64("written", sum.Written).
		Int64("pending_at_start", sum.Pending).
		Msg("embed finished")
	return nil
}

// globSorted collects files matching any pattern under dir, sorted by name
// so batches load in collection order.
func globSorted(dir string, patterns ...string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, p))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", p, err)
		}
		out = append(out, matches...)
	}
	sort.Strings(out)
	return out, nil
}
