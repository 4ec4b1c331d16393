// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// lookupTables whitelists the name-keyed dimension tables. Table names are
// interpolated into SQL and must never come from input data.
var lookupTables = map[string]struct{}{
	"developers": {},
	"publishers": {},
	"genres":     {},
	"categories": {},
}

// junctionColumns maps each junction table to its lookup-reference column.
var junctionColumns = map[string]string{
	"application_developers": "developer_id",
	"application_publishers": "publisher_id",
	"application_genres":     "genre_id",
	"application_categories": "category_id",
}

// LoadTx is one import transaction. All three load phases run through the
// same LoadTx so a failure anywhere rolls the whole import back.
type LoadTx struct {
	tx pgx.Tx
}

// Begin opens an import transaction.
func (s *Store) Begin(ctx context.Context) (*LoadTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import transaction: %w", err)
	}
	return &LoadTx{tx: tx}, nil
}

// Commit makes the import durable.
func (t *LoadTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import transaction: %w", err)
	}
	return nil
}

// Rollback discards the import. Safe to call after Commit.
func (t *LoadTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err == pgx.ErrTxClosed {
		return nil
	}
	return err
}

// UpsertNames inserts lookup names, ignoring ones already present.
func (t *LoadTx) UpsertNames(ctx context.Context, table string, names []string) error {
	if _, ok := lookupTables[table]; !ok {
		return fmt.Errorf("not a lookup table: %s", table)
	}
	if len(names) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	sql := fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, table)
	for _, name := range names {
		batch.Queue(sql, name)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert %s names: %w", table, err)
	}
	return nil
}

// NameIDs reads the full name-to-id mapping of a lookup table.
func (t *LoadTx) NameIDs(ctx context.Context, table string) (map[string]int64, error) {
	if _, ok := lookupTables[table]; !ok {
		return nil, fmt.Errorf("not a lookup table: %s", table)
	}

	rows, err := t.tx.Query(ctx, fmt.Sprintf(`SELECT name, id FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("query %s ids: %w", table, err)
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		ids[name] = id
	}
	return ids, rows.Err()
}

// KnownAppIDs returns the set of application IDs visible to this
// transaction, including rows inserted earlier in it.
func (t *LoadTx) KnownAppIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := t.tx.Query(ctx, `SELECT appid FROM applications`)
	if err != nil {
		return nil, fmt.Errorf("query known appids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan appid: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

const insertApplicationSQL = `INSERT INTO applications (
	appid, name, app_type, is_free, required_age,
	short_description, detailed_description, about_the_game,
	supported_languages, header_image, background,
	release_date, coming_soon,
	supports_windows, supports_mac, supports_linux,
	price_currency, price_initial, price_final, price_discount_pct,
	metacritic_score, metacritic_url, recommendations_total,
	achievements_total, fullgame_appid,
	pc_requirements, mac_requirements, linux_requirements,
	content_descriptors, package_groups, screenshots, movies, ratings,
	fetched_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
	$31, $32, $33, $34
) ON CONFLICT (appid) DO NOTHING`

// InsertApplications inserts the batch, skipping rows whose appid already
// exists. Returns the number of rows actually inserted.
func (t *LoadTx) InsertApplications(ctx context.Context, apps []AppRow) (int64, error) {
	if len(apps) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, a := range apps {
		batch.Queue(insertApplicationSQL,
			a.AppID, a.Name, a.Type, a.IsFree, a.RequiredAge,
			a.ShortDescription, a.DetailedDescription, a.AboutTheGame,
			a.SupportedLanguages, a.HeaderImage, a.Background,
			a.ReleaseDate, a.ComingSoon,
			a.Windows, a.Mac, a.Linux,
			a.PriceCurrency, a.PriceInitial, a.PriceFinal, a.PriceDiscountPct,
			a.MetacriticScore, a.MetacriticURL, a.RecommendationsTotal,
			a.AchievementsTotal, a.FullgameAppID,
			a.PCRequirements, a.MacRequirements, a.LinuxRequirements,
			a.ContentDescriptors, a.PackageGroups, a.Screenshots, a.Movies, a.Ratings,
			a.FetchedAt,
		)
	}
	return execCounting(ctx, t.tx, batch, len(apps), "insert applications")
}

// InsertJunctions inserts application-to-lookup links, ignoring duplicates.
func (t *LoadTx) InsertJunctions(ctx context.Context, table string, rows []JunctionRow) (int64, error) {
	col, ok := junctionColumns[table]
	if !ok {
		return 0, fmt.Errorf("not a junction table: %s", table)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	sql := fmt.Sprintf(`INSERT INTO %s (appid, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`, table, col)
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(sql, r.AppID, r.RefID)
	}
	return execCounting(ctx, t.tx, batch, len(rows), "insert "+table)
}

const insertReviewSQL = `INSERT INTO reviews (
	recommendationid, appid, author_steamid, language, review_text,
	timestamp_created, timestamp_updated,
	voted_up, votes_up, votes_funny, weighted_vote_score, comment_count,
	steam_purchase, received_for_free, written_during_early_access,
	author_num_games_owned, author_num_reviews,
	author_playtime_forever, author_playtime_two_weeks, author_playtime_at_review
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	$17, $18, $19, $20
) ON CONFLICT (recommendationid) DO NOTHING`

// InsertReviews inserts the batch, skipping recommendation IDs already seen.
func (t *LoadTx) InsertReviews(ctx context.Context, reviews []ReviewRow) (int64, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, r := range reviews {
		batch.Queue(insertReviewSQL,
			r.RecommendationID, r.AppID, r.AuthorSteamID, r.Language, r.ReviewText,
			r.TimestampCreated, r.TimestampUpdated,
			r.VotedUp, r.VotesUp, r.VotesFunny, r.WeightedVoteScore, r.CommentCount,
			r.SteamPurchase, r.ReceivedForFree, r.WrittenDuringEarlyAccess,
			r.AuthorNumGamesOwned, r.AuthorNumReviews,
			r.PlaytimeForever, r.PlaytimeLastTwoWeeks, r.PlaytimeAtReview,
		)
	}
	return execCounting(ctx, t.tx, batch, len(reviews), "insert reviews")
}

// execCounting sends a queued batch and sums rows affected across its
// results.
func execCounting(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, n int, op string) (int64, error) {
	results := tx.SendBatch(ctx, batch)
	var inserted int64
	for i := 0; i < n; i++ {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return inserted, fmt.Errorf("%s: %w", op, err)
		}
		inserted += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return inserted, fmt.Errorf("%s: close batch: %w", op, err)
	}
	return inserted, nil
}
