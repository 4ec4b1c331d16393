// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package store

import "time"

// AppRow is one applications-table row, fully normalized from the raw
// payload by the loader. Nullable columns use pointers.
type AppRow struct {
	AppID       int64
	Name        string
	Type        string
	IsFree      bool
	RequiredAge int64

	ShortDescription    string
	DetailedDescription string
	AboutTheGame        string
	SupportedLanguages  string
	HeaderImage         string
	Background          string

	ReleaseDate *time.Time
	ComingSoon  bool

	Windows bool
	Mac     bool
	Linux   bool

	PriceCurrency    *string
	PriceInitial     *int64
	PriceFinal       *int64
	PriceDiscountPct *int64

	MetacriticScore      *int64
	MetacriticURL        *string
	RecommendationsTotal int64
	AchievementsTotal    int64
	FullgameAppID        *int64

	PCRequirements     []byte
	MacRequirements    []byte
	LinuxRequirements  []byte
	ContentDescriptors []byte
	PackageGroups      []byte
	Screenshots        []byte
	Movies             []byte
	Ratings            []byte

	FetchedAt time.Time
}

// JunctionRow links an application to a lookup-table row.
type JunctionRow struct {
	AppID int64
	RefID int64
}

// ReviewRow is one reviews-table row.
type ReviewRow struct {
	RecommendationID string
	AppID            int64
	AuthorSteamID    string
	Language         string
	ReviewText       string

	TimestampCreated int64
	TimestampUpdated int64

	VotedUp           bool
	VotesUp           int64
	VotesFunny        int64
	WeightedVoteScore float64
	CommentCount      int64

	SteamPurchase            bool
	ReceivedForFree          bool
	WrittenDuringEarlyAccess bool

	AuthorNumGamesOwned  int64
	AuthorNumReviews     int64
	PlaytimeForever      int64
	PlaytimeLastTwoWeeks int64
	PlaytimeAtReview     int64
}

// VectorRow pairs an application with its embedding, rendered by the
// enricher.
type VectorRow struct {
	AppID  int64
	Vector []float32
}

// TextRow is an application still awaiting an embedding, paired with the
// text to embed.
type TextRow struct {
	AppID int64
	Text  string
}
