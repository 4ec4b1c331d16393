// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package steam

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/datamesa/steamset/internal/metrics"
	"github.com/datamesa/steamset/internal/models"
)

// detailEnvelope is the per-appid wrapper the appdetails endpoint returns:
// {"<appid>": {"success": bool, "data": {...}}}.
type detailEnvelope struct {
	Success bool              `json:"success"`
	Data    *models.AppDetail `json:"data,omitempty"`
}

// FetchDetail fetches the detail payload for one identifier.
//
// The returned DetailRecord always carries the requested AppID and fetch
// timestamp. Success=false covers both expected absence (delisted content)
// and exhausted transient retries; the two are distinguished by the Error
// field being empty for expected absence. The returned error is non-nil only
// for fatal_auth and context cancellation; per-identifier failures are a
// normal outcome, not an error.
func (c *Client) FetchDetail(ctx context.Context, appID int64) (models.DetailRecord, error) {
	const endpoint = "appdetails"
	start := time.Now()
	record := models.DetailRecord{
		AppID:     appID,
		FetchedAt: start.UTC(),
	}

	url := c.storeBase + "/api/appdetails?appids=" + strconv.FormatInt(appID, 10)

	err := c.retryLoop(ctx, endpoint, func() (bool, error) {
		resp, err := c.doGet(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			return false, errTransient{cause: err}
		}
		defer resp.Body.Close()

		switch classifyStatus(resp.StatusCode) {
		case OutcomeSuccess:
			// Fall through to body decoding below.
		case OutcomeNotFound:
			metrics.ObserveFetch(endpoint, string(OutcomeNotFound), time.Since(start))
			return true, nil
		case OutcomeFatalAuth:
			return true, fmt.Errorf("%w: appdetails %d returned %d", ErrFatalAuth, appID, resp.StatusCode)
		default:
			return false, errTransient{cause: fmt.Errorf("status %d %s", resp.StatusCode, resp.Status)}
		}

		var envelope map[string]detailEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			// A 200 with a malformed body is a service hiccup, not absence.
			return false, errTransient{cause: fmt.Errorf("decode appdetails body: %w", err)}
		}

		entry, ok := envelope[strconv.FormatInt(appID, 10)]
		if !ok || !entry.Success {
			// The endpoint reports failure inside a 200 body for delisted
			// and region-restricted identifiers.
			metrics.ObserveFetch(endpoint, string(OutcomeNotFound), time.Since(start))
			return true, nil
		}

		record.Success = true
		record.Data = entry.Data
		metrics.ObserveFetch(endpoint, string(OutcomeSuccess), time.Since(start))
		return true, nil
	})

	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrFatalAuth) {
			return record, err
		}
		// Retries exhausted: demote to a recorded failure and continue.
		record.Error = err.Error()
		metrics.ObserveFetch(endpoint, string(OutcomeTransient), time.Since(start))
	}
	return record, nil
}
