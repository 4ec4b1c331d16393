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

// FetchReviews fetches one page (up to 100 reviews, all languages) for the
// identifier. A nil page with nil error means the application has no
// retrievable reviews, the expected-absence outcome. Failure semantics match
// FetchDetail: only fatal_auth and cancellation surface as errors.
func (c *Client) FetchReviews(ctx context.Context, appID int64) (*models.ReviewPage, error) {
	const endpoint = "appreviews"
	start := time.Now()

	url := c.storeBase + "/appreviews/" + strconv.FormatInt(appID, 10) +
		"?json=1&num_per_page=100&language=all&purchase_type=all"

	var page *models.ReviewPage
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
		case OutcomeNotFound:
			metrics.ObserveFetch(endpoint, string(OutcomeNotFound), time.Since(start))
			return true, nil
		case OutcomeFatalAuth:
			return true, fmt.Errorf("%w: appreviews %d returned %d", ErrFatalAuth, appID, resp.StatusCode)
		default:
			return false, errTransient{cause: fmt.Errorf("status %d %s", resp.StatusCode, resp.Status)}
		}

		var decoded models.ReviewPage
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return false, errTransient{cause: fmt.Errorf("decode appreviews body: %w", err)}
		}
		if decoded.Success != 1 {
			metrics.ObserveFetch(endpoint, string(OutcomeNotFound), time.Since(start))
			return true, nil
		}

		page = &decoded
		metrics.ObserveFetch(endpoint, string(OutcomeSuccess), time.Since(start))
		return true, nil
	})

	if err != nil {
		if ctx.Err() != nil || errors.Is(err, ErrFatalAuth) {
			return nil, err
		}
		metrics.ObserveFetch(endpoint, string(OutcomeTransient), time.Since(start))
		return nil, nil
	}
	return page, nil
}
