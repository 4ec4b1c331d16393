// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Package pacing enforces the minimum inter-request interval owed to the
// remote service. The pacer is an explicit value handed to every component
// that talks to the network, so the serialization guarantee is visible in
// call signatures rather than hidden in package state.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks callers until the configured interval has elapsed since the
// previous permit. Monotonic-clock based via x/time/rate; wall-clock
// adjustments do not distort the spacing.
type Pacer struct {
	limiter *rate.Limiter
}

// New creates a Pacer with the given minimum interval between permits.
// A non-positive interval produces a pacer that never blocks.
func New(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next permit or until ctx is done. Every network
// attempt, including retries, takes a permit so retries cannot compress the
// request spacing.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
