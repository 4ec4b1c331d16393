// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package steam

import (
	"context"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/datamesa/steamset/internal/logging"
	"github.com/datamesa/steamset/internal/models"
)

// appListResponse is the GetAppList envelope.
type appListResponse struct {
	AppList struct {
		Apps []models.CatalogEntry `json:"apps"`
	} `json:"applist"`
}

// ListAll fetches the complete application listing in one bulk call. The
// whole run depends on this universe, so any failure propagates rather than
// being absorbed.
func (c *Client) ListAll(ctx context.Context) ([]models.CatalogEntry, error) {
	endpoint := c.apiBase + "/ISteamApps/GetAppList/v2/"
	if c.apiKey != "" {
		q := url.Values{}
		q.Set("key", c.apiKey)
		endpoint += "?" + q.Encode()
	}

	resp, err := c.doGet(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch app list: %w", err)
	}
	defer resp.Body.Close()

	switch classifyStatus(resp.StatusCode) {
	case OutcomeSuccess:
	case OutcomeFatalAuth:
		return nil, fmt.Errorf("%w: app list returned %d", ErrFatalAuth, resp.StatusCode)
	default:
		return nil, fmt.Errorf("fetch app list: unexpected status %d %s", resp.StatusCode, resp.Status)
	}

	var parsed appListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode app list: %w", err)
	}
	if len(parsed.AppList.Apps) == 0 {
		return nil, fmt.Errorf("app list response contained no applications")
	}

	logging.Info().Int("count", len(parsed.AppList.Apps)).Msg("Fetched application listing")
	return parsed.AppList.Apps, nil
}
