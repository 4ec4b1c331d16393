// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

// Package models defines the wire and record types shared across the
// pipeline: catalog entries, detail records, review records, and the typed
// payload shapes the remote API returns.
//
// The remote API is loosely typed; fields that arrive as either string or
// number use the Flex* wrappers, and payload sections stored verbatim as
// JSONB stay json.RawMessage so nothing is dropped in transit.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// CatalogEntry is one row of the full application listing. The set of all
// entries is the universe completeness is measured against.
type CatalogEntry struct {
	AppID int64  `json:"appid"`
	Name  string `json:"name"`
}

// DetailRecord is the outcome of one detail fetch attempt. Success=true
// implies Data is present and structurally valid; Success=false records the
// negative outcome so downstream gap accounting can distinguish "fetched and
// delisted" from "never attempted".
type DetailRecord struct {
	AppID     int64      `json:"appid"`
	Success   bool       `json:"success"`
	Data      *AppDetail `json:"data,omitempty"`
	FetchedAt time.Time  `json:"fetched_at"`
	Error     string     `json:"error,omitempty"`
}

// AllowedAppTypes enumerates the application types accepted by structural
// validation. Anything else is rejected rather than loaded with a null type.
var AllowedAppTypes = map[string]bool{
	"game":        true,
	"dlc":         true,
	"software":    true,
	"video":       true,
	"demo":        true,
	"music":       true,
	"advertising": true,
	"mod":         true,
	"episode":     true,
	"series":      true,
}

// AppDetail is the typed shape of a successful appdetails payload. Sections
// the schema stores as JSONB documents are kept raw; sections feeding
// materialized columns are typed.
type AppDetail struct {
	SteamAppID  int64   `json:"steam_appid"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	IsFree      bool    `json:"is_free"`
	RequiredAge FlexInt `json:"required_age"`

	DetailedDescription string `json:"detailed_description,omitempty"`
	ShortDescription    string `json:"short_description,omitempty"`
	AboutTheGame        string `json:"about_the_game,omitempty"`
	SupportedLanguages  string `json:"supported_languages,omitempty"`
	HeaderImage         string `json:"header_image,omitempty"`
	Background          string `json:"background,omitempty"`

	ReleaseDate     *ReleaseDate     `json:"release_date,omitempty"`
	Platforms       *Platforms       `json:"platforms,omitempty"`
	PriceOverview   *PriceOverview   `json:"price_overview,omitempty"`
	Metacritic      *Metacritic      `json:"metacritic,omitempty"`
	Recommendations *Recommendations `json:"recommendations,omitempty"`
	Achievements    *Achievements    `json:"achievements,omitempty"`
	Fullgame        *Fullgame        `json:"fullgame,omitempty"`

	Developers []string     `json:"developers,omitempty"`
	Publishers []string     `json:"publishers,omitempty"`
	Genres     []Descriptor `json:"genres,omitempty"`
	Categories []Descriptor `json:"categories,omitempty"`

	// Stored verbatim as JSONB. The requirements sections are notorious for
	// arriving as either an object or an empty array, so no typed shape fits.
	PCRequirements     json.RawMessage `json:"pc_requirements,omitempty"`
	MacRequirements    json.RawMessage `json:"mac_requirements,omitempty"`
	LinuxRequirements  json.RawMessage `json:"linux_requirements,omitempty"`
	ContentDescriptors json.RawMessage `json:"content_descriptors,omitempty"`
	PackageGroups      json.RawMessage `json:"package_groups,omitempty"`
	Screenshots        json.RawMessage `json:"screenshots,omitempty"`
	Movies             json.RawMessage `json:"movies,omitempty"`
	Ratings            json.RawMessage `json:"ratings,omitempty"`
}

// Descriptor is a {id, description} pair used by genres and categories. The
// id arrives as a string for genres and a number for categories.
type Descriptor struct {
	ID          FlexInt `json:"id"`
	Description string  `json:"description"`
}

// ReleaseDate carries the human-formatted date string; normalization to a
// calendar date happens in the loader.
type ReleaseDate struct {
	ComingSoon bool   `json:"coming_soon"`
	Date       string `json:"date"`
}

// Platforms flags store-reported OS support.
type Platforms struct {
	Windows bool `json:"windows"`
	Mac     bool `json:"mac"`
	Linux   bool `json:"linux"`
}

// PriceOverview carries pricing in the store's minor currency units.
type PriceOverview struct {
	Currency         string `json:"currency,omitempty"`
	Initial          int64  `json:"initial,omitempty"`
	Final            int64  `json:"final,omitempty"`
	DiscountPercent  int64  `json:"discount_percent,omitempty"`
	InitialFormatted string `json:"initial_formatted,omitempty"`
	FinalFormatted   string `json:"final_formatted,omitempty"`
}

// Metacritic carries the aggregate critic score.
type Metacritic struct {
	Score int64  `json:"score"`
	URL   string `json:"url,omitempty"`
}

// Recommendations carries the store's recommendation total.
type Recommendations struct {
	Total int64 `json:"total"`
}

// Achievements carries the achievement count plus the highlighted set, which
// is stored verbatim.
type Achievements struct {
	Total       int64           `json:"total"`
	Highlighted json.RawMessage `json:"highlighted,omitempty"`
}

// Fullgame links DLC back to its base application. The appid arrives as a
// string.
type Fullgame struct {
	AppID FlexInt `json:"appid"`
	Name  string  `json:"name,omitempty"`
}
