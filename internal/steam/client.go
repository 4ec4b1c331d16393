// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

/*
client.go - Remote Catalog Client

Wraps the remote catalog API behind typed operations with a shared failure
taxonomy:

  - success:    2xx with a well-formed, success-flagged payload
  - not_found:  delisted/invalid identifier (2xx with success=false, or 404);
                an expected negative outcome, never an error
  - transient:  timeout, 429, 5xx, connection error, malformed body;
                retried with bounded exponential backoff
  - fatal_auth: 401/403; aborts the run, never retried

Every HTTP attempt, including retries, takes a pacer permit so retries cannot
compress the request spacing. A circuit breaker sits between the retry loop
and the transport; an open breaker classifies as transient.
*/
package steam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/datamesa/steamset/internal/config"
	"github.com/datamesa/steamset/internal/logging"
	"github.com/datamesa/steamset/internal/metrics"
	"github.com/datamesa/steamset/internal/pacing"
)

// Outcome classifies the result of a fetch attempt.
type Outcome string

// Fetch outcome classes. See the package comment for semantics.
const (
	OutcomeSuccess   Outcome = "success"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeTransient Outcome = "transient"
	OutcomeFatalAuth Outcome = "fatal_auth"
)

// ErrFatalAuth indicates an authentication/authorization failure. It aborts
// the entire run; retrying cannot help and continuing would burn the whole ID
// space against a broken precondition.
var ErrFatalAuth = errors.New("steam: authentication failed")

// errTransient tags retryable attempt failures inside the retry loop.
type errTransient struct {
	cause error
}

func (e errTransient) Error() string { return "transient: " + e.cause.Error() }
func (e errTransient) Unwrap() error { return e.cause }

// Client performs rate-limited, classified fetches against the catalog API.
type Client struct {
	httpClient *http.Client
	apiBase    string
	storeBase  string
	userAgent  string
	apiKey     string

	pacer      *pacing.Pacer
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	maxRetries int

	// sleep is overridable in tests so retry/backoff behavior is assertable
	// without wall-clock waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client from configuration. The pacer is shared by the
// caller across everything that talks to the remote service.
func NewClient(cfg config.SteamConfig, pacer *pacing.Pacer) *Client {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name: "steam-api",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		Timeout: 60 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state change")
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		apiBase:    cfg.APIBaseURL,
		storeBase:  cfg.StoreBaseURL,
		userAgent:  cfg.UserAgent,
		apiKey:     cfg.APIKey,
		pacer:      pacer,
		breaker:    breaker,
		maxRetries: cfg.MaxRetries,
		sleep:      sleepCtx,
	}
}

// doGet executes one paced GET attempt through the circuit breaker and
// returns the raw response. Callers own closing the body.
func (c *Client) doGet(ctx context.Context, url string) (*http.Response, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, execErr := c.httpClient.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		// 5xx counts against the breaker; 4xx is a per-identifier outcome,
		// not a service health signal.
		if r.StatusCode >= 500 {
			drainAndClose(r.Body)
			return nil, fmt.Errorf("server error: %d %s", r.StatusCode, r.Status)
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// classifyStatus maps an HTTP status to an outcome. Bodies flagged
// success=false are classified separately by the callers that decode them.
func classifyStatus(status int) Outcome {
	switch {
	case status == http.StatusOK:
		return OutcomeSuccess
	case status == http.StatusNotFound:
		return OutcomeNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return OutcomeFatalAuth
	default:
		// 429, remaining 4xx oddities, and anything else the breaker let
		// through get retried.
		return OutcomeTransient
	}
}

// backoff computes the delay before retry attempt n (0-based), with jitter so
// parallel runs against the same service do not synchronize.
func backoff(attempt int) time.Duration {
	base := time.Second << uint(attempt)
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
	return base + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4096))
	_ = body.Close()
}

// retryLoop runs fn up to maxRetries times, backing off between transient
// failures. fn returns (done, err): done=true stops the loop regardless of
// err; a transient err schedules another attempt.
func (c *Client) retryLoop(ctx context.Context, endpoint string, fn func() (bool, error)) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.RetriesTotal.WithLabelValues(endpoint).Inc()
			if err := c.sleep(ctx, backoff(attempt-1)); err != nil {
				return err
			}
		}

		done, err := fn()
		if done {
			return err
		}

		var te errTransient
		if errors.As(err, &te) {
			lastErr = te.cause
			logging.Warn().
				Err(te.cause).
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Int("max_retries", c.maxRetries).
				Msg("Transient failure, will retry")
			continue
		}
		return err
	}
	return fmt.Errorf("retries exhausted after %d attempts: %w", c.maxRetries, lastErr)
}
