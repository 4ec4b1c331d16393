// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Package store owns the PostgreSQL schema and every query the pipeline
// issues against it. Callers get small purpose-built methods rather than the
// pool itself; the loader's multi-phase import runs inside a single
// transaction handed out by Begin.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datamesa/steamset/internal/config"
	"github.com/datamesa/steamset/internal/logging"
)

// Store wraps a pgx connection pool against the catalog database.
type Store struct {
	pool *pgxpool.Pool
	dim  int
}

// Open connects to the database described by cfg and verifies the connection.
// vectorDim fixes the dimensionality of the embedding column; it must match
// the enrichment model.
func Open(ctx context.Context, cfg config.DatabaseConfig, vectorDim int) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database %s@%s: %w", cfg.Name, cfg.Host, err)
	}

	logging.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Msg("database connection established")
	return &Store{pool: pool, dim: vectorDim}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates every table, index, and extension the pipeline needs.
// All statements are idempotent; running against an existing schema is a
// no-op.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.dim) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	logging.Info().Msg("database schema verified")
	return nil
}

// ObservedAppIDs returns every application ID present in the database, the
// "observed" side of gap reconciliation.
func (s *Store) ObservedAppIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT appid FROM applications ORDER BY appid`)
	if err != nil {
		return nil, fmt.Errorf("query observed appids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan appid: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AppIDsWithReviews returns application IDs that already have at least one
// review row, so review sweeps can skip them.
func (s *Store) AppIDsWithReviews(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT appid FROM reviews ORDER BY appid`)
	if err != nil {
		return nil, fmt.Errorf("query reviewed appids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan appid: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
