// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package loader

import (
	"strings"
	"time"

	"github.com/datamesa/steamset/internal/models"
	"github.com/datamesa/steamset/internal/store"
)

// buildAppRow normalizes a raw detail record into an applications row.
func buildAppRow(rec models.DetailRecord) store.AppRow {
	d := rec.Data
	row := store.AppRow{
		AppID:       d.SteamAppID,
		Name:        d.Name,
		Type:        d.Type,
		IsFree:      d.IsFree,
		RequiredAge: d.RequiredAge.Int64(),

		ShortDescription:    d.ShortDescription,
		DetailedDescription: d.DetailedDescription,
		AboutTheGame:        d.AboutTheGame,
		SupportedLanguages:  d.SupportedLanguages,
		HeaderImage:         d.HeaderImage,
		Background:          d.Background,

		PCRequirements:     rawOrNil(d.PCRequirements),
		MacRequirements:    rawOrNil(d.MacRequirements),
		LinuxRequirements:  rawOrNil(d.LinuxRequirements),
		ContentDescriptors: rawOrNil(d.ContentDescriptors),
		PackageGroups:      rawOrNil(d.PackageGroups),
		Screenshots:        rawOrNil(d.Screenshots),
		Movies:             rawOrNil(d.Movies),
		Ratings:            rawOrNil(d.Ratings),

		FetchedAt: rec.FetchedAt,
	}
	if row.FetchedAt.IsZero() {
		row.FetchedAt = time.Now().UTC()
	}

	if d.ReleaseDate != nil {
		row.ComingSoon = d.ReleaseDate.ComingSoon
		row.ReleaseDate = normalizeReleaseDate(d.ReleaseDate.Date)
	}
	if d.Platforms != nil {
		row.Windows = d.Platforms.Windows
		row.Mac = d.Platforms.Mac
		row.Linux = d.Platforms.Linux
	}
	if p := d.PriceOverview; p != nil {
		row.PriceCurrency = &p.Currency
		row.PriceInitial = &p.Initial
		row.PriceFinal = &p.Final
		row.PriceDiscountPct = &p.DiscountPercent
	}
	if m := d.Metacritic; m != nil {
		row.MetacriticScore = &m.Score
		row.MetacriticURL = &m.URL
	}
	if d.Recommendations != nil {
		row.RecommendationsTotal = d.Recommendations.Total
	}
	if d.Achievements != nil {
		row.AchievementsTotal = d.Achievements.Total
	}
	if d.Fullgame != nil {
		if id := d.Fullgame.AppID.Int64(); id != 0 {
			row.FullgameAppID = &id
		}
	}
	return row
}

// rawOrNil keeps verbatim JSON only when it holds something. Empty arrays
// are the API's way of saying "no data" for object-shaped sections.
func rawOrNil(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" || s == "[]" || s == "{}" {
		return nil
	}
	return raw
}

func buildReviewRow(appID int64, rv models.Review) store.ReviewRow {
	return store.ReviewRow{
		RecommendationID: rv.RecommendationID,
		AppID:            appID,
		AuthorSteamID:    rv.Author.SteamID,
		Language:         rv.Language,
		ReviewText:       rv.ReviewText,

		TimestampCreated: rv.TimestampCreated,
		TimestampUpdated: rv.TimestampUpdated,

		VotedUp:           rv.VotedUp,
		VotesUp:           rv.VotesUp,
		VotesFunny:        rv.VotesFunny,
		WeightedVoteScore: rv.WeightedVoteScore.Float64(),
		CommentCount:      rv.CommentCount,

		SteamPurchase:            rv.SteamPurchase,
		ReceivedForFree:          rv.ReceivedForFree,
		WrittenDuringEarlyAccess: rv.WrittenDuringEarlyAccess,

		AuthorNumGamesOwned:  rv.Author.NumGamesOwned,
		AuthorNumReviews:     rv.Author.NumReviews,
		PlaytimeForever:      rv.Author.PlaytimeForever,
		PlaytimeLastTwoWeeks: rv.Author.PlaytimeLastTwoWeeks,
		PlaytimeAtReview:     rv.Author.PlaytimeAtReview,
	}
}

// releaseDateLayouts covers the formats the store emits, most common first.
var releaseDateLayouts = []string{
	"2 Jan, 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"Jan 2 2006",
	"Jan 2006",
	"January 2, 2006",
	"2006",
}

// normalizeReleaseDate parses the store's human-formatted release date.
// Placeholder strings like "TBA" or "Coming soon" and anything unparseable
// map to nil; a wrong date is worse than no date.
func normalizeReleaseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch strings.ToLower(s) {
	case "tba", "to be announced", "coming soon", "soon":
		return nil
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
