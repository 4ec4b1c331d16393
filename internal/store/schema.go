// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package store

import "fmt"

// schemaStatements returns the idempotent DDL for the catalog schema.
// Statements run one at a time so errors point at the statement that failed.
// Wide engagement counters are BIGINT throughout: playtime and vote counts
// from the remote API have exceeded 32-bit range in production data.
func schemaStatements(vectorDim int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS developers (
			id   BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS publishers (
			id   BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS genres (
			id   BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id   BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS applications (
			appid                 BIGINT PRIMARY KEY,
			name                  TEXT NOT NULL,
			app_type              TEXT NOT NULL,
			is_free               BOOLEAN NOT NULL DEFAULT FALSE,
			required_age          BIGINT NOT NULL DEFAULT 0,

			short_description     TEXT,
			detailed_description  TEXT,
			about_the_game        TEXT,
			supported_languages   TEXT,
			header_image          TEXT,
			background            TEXT,

			release_date          DATE,
			coming_soon           BOOLEAN NOT NULL DEFAULT FALSE,

			supports_windows      BOOLEAN NOT NULL DEFAULT FALSE,
			supports_mac          BOOLEAN NOT NULL DEFAULT FALSE,
			supports_linux        BOOLEAN NOT NULL DEFAULT FALSE,

			price_currency        TEXT,
			price_initial         BIGINT,
			price_final           BIGINT,
			price_discount_pct    BIGINT,

			metacritic_score      BIGINT,
			metacritic_url        TEXT,
			recommendations_total BIGINT NOT NULL DEFAULT 0,
			achievements_total    BIGINT NOT NULL DEFAULT 0,
			fullgame_appid        BIGINT,

			pc_requirements       JSONB,
			mac_requirements      JSONB,
			linux_requirements    JSONB,
			content_descriptors   JSONB,
			package_groups        JSONB,
			screenshots           JSONB,
			movies                JSONB,
			ratings               JSONB,

			fetched_at            TIMESTAMPTZ NOT NULL,
			loaded_at             TIMESTAMPTZ NOT NULL DEFAULT now(),

			description_vector    vector(%d)
		)`, vectorDim),

		`CREATE TABLE IF NOT EXISTS application_developers (
			appid        BIGINT NOT NULL REFERENCES applications(appid) ON DELETE CASCADE,
			developer_id BIGINT NOT NULL REFERENCES developers(id) ON DELETE CASCADE,
			PRIMARY KEY (appid, developer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS application_publishers (
			appid        BIGINT NOT NULL REFERENCES applications(appid) ON DELETE CASCADE,
			publisher_id BIGINT NOT NULL REFERENCES publishers(id) ON DELETE CASCADE,
			PRIMARY KEY (appid, publisher_id)
		)`,
		`CREATE TABLE IF NOT EXISTS application_genres (
			appid    BIGINT NOT NULL REFERENCES applications(appid) ON DELETE CASCADE,
			genre_id BIGINT NOT NULL REFERENCES genres(id) ON DELETE CASCADE,
			PRIMARY KEY (appid, genre_id)
		)`,
		`CREATE TABLE IF NOT EXISTS application_categories (
			appid       BIGINT NOT NULL REFERENCES applications(appid) ON DELETE CASCADE,
			category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			PRIMARY KEY (appid, category_id)
		)`,

		`CREATE TABLE IF NOT EXISTS reviews (
			recommendationid          TEXT PRIMARY KEY,
			appid                     BIGINT NOT NULL REFERENCES applications(appid),
			author_steamid            TEXT NOT NULL,
			language                  TEXT,
			review_text               TEXT,
			timestamp_created         BIGINT NOT NULL DEFAULT 0,
			timestamp_updated         BIGINT NOT NULL DEFAULT 0,
			voted_up                  BOOLEAN NOT NULL DEFAULT FALSE,
			votes_up                  BIGINT NOT NULL DEFAULT 0,
			votes_funny               BIGINT NOT NULL DEFAULT 0,
			weighted_vote_score       DOUBLE PRECISION NOT NULL DEFAULT 0,
			comment_count             BIGINT NOT NULL DEFAULT 0,
			steam_purchase            BOOLEAN NOT NULL DEFAULT FALSE,
			received_for_free         BOOLEAN NOT NULL DEFAULT FALSE,
			written_during_early_access BOOLEAN NOT NULL DEFAULT FALSE,
			author_num_games_owned    BIGINT NOT NULL DEFAULT 0,
			author_num_reviews        BIGINT NOT NULL DEFAULT 0,
			author_playtime_forever   BIGINT NOT NULL DEFAULT 0,
			author_playtime_two_weeks BIGINT NOT NULL DEFAULT 0,
			author_playtime_at_review BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS reviews_appid_idx ON reviews (appid)`,

		`CREATE TABLE IF NOT EXISTS embedding_runs (
			run_id          UUID PRIMARY KEY,
			model           TEXT NOT NULL,
			dimension       INT NOT NULL,
			started_at      TIMESTAMPTZ NOT NULL,
			finished_at     TIMESTAMPTZ,
			vectors_written BIGINT NOT NULL DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS applications_type_idx ON applications (app_type)`,
		`CREATE INDEX IF NOT EXISTS applications_release_date_idx ON applications (release_date)`,
		`CREATE INDEX IF NOT EXISTS applications_missing_vector_idx
			ON applications (appid) WHERE description_vector IS NULL`,
	}
}
