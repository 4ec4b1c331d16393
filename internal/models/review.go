// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package models

// ReviewEnvelope is one record of a review batch file: the owning application
// ID plus the review page fetched for it.
type ReviewEnvelope struct {
	AppID   int64       `json:"appid"`
	Reviews *ReviewPage `json:"reviews,omitempty"`
}

// ReviewPage is the appreviews endpoint response. Success is 1 on a valid
// page; the endpoint uses an integer flag, not a boolean.
type ReviewPage struct {
	Success      int           `json:"success"`
	QuerySummary *QuerySummary `json:"query_summary,omitempty"`
	Reviews      []Review      `json:"reviews,omitempty"`
	Cursor       string        `json:"cursor,omitempty"`
}

// QuerySummary aggregates review statistics for the page's application.
type QuerySummary struct {
	NumReviews      int64  `json:"num_reviews"`
	ReviewScore     int64  `json:"review_score"`
	ReviewScoreDesc string `json:"review_score_desc,omitempty"`
	TotalPositive   int64  `json:"total_positive"`
	TotalNegative   int64  `json:"total_negative"`
	TotalReviews    int64  `json:"total_reviews"`
}

// Review is a single user review. Counter fields are int64 throughout:
// playtime and engagement counters from the remote API have exceeded 32-bit
// range in production data.
type Review struct {
	RecommendationID string       `json:"recommendationid"`
	Author           ReviewAuthor `json:"author"`
	Language         string       `json:"language,omitempty"`
	ReviewText       string       `json:"review"`

	TimestampCreated int64 `json:"timestamp_created"`
	TimestampUpdated int64 `json:"timestamp_updated"`

	VotedUp           bool      `json:"voted_up"`
	VotesUp           int64     `json:"votes_up"`
	VotesFunny        int64     `json:"votes_funny"`
	WeightedVoteScore FlexFloat `json:"weighted_vote_score"`
	CommentCount      int64     `json:"comment_count"`

	SteamPurchase            bool `json:"steam_purchase"`
	ReceivedForFree          bool `json:"received_for_free"`
	WrittenDuringEarlyAccess bool `json:"written_during_early_access"`
}

// ReviewAuthor carries per-author statistics.
type ReviewAuthor struct {
	SteamID              string `json:"steamid"`
	NumGamesOwned        int64  `json:"num_games_owned"`
	NumReviews           int64  `json:"num_reviews"`
	PlaytimeForever      int64  `json:"playtime_forever"`
	PlaytimeLastTwoWeeks int64  `json:"playtime_last_two_weeks"`
	PlaytimeAtReview     int64  `json:"playtime_at_review"`
	LastPlayed           int64  `json:"last_played"`
}
