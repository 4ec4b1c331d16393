// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package models

import (
	"testing"

	"github.com/goccy/go-json"
)

// TestFlexInt_MixedRepresentations verifies number/string/null all decode
func TestFlexInt_MixedRepresentations(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{`18`, 18},
		{`"18"`, 18},
		{`"0"`, 0},
		{`""`, 0},
		{`null`, 0},
		{`"18+"`, 18},
		{`17.5`, 17},
	}
	for _, tt := range tests {
		var f FlexInt
		if err := json.Unmarshal([]byte(tt.in), &f); err != nil {
			t.Errorf("FlexInt(%s): unexpected error: %v", tt.in, err)
			continue
		}
		if f.Int64() != tt.want {
			t.Errorf("FlexInt(%s) = %d, want %d", tt.in, f.Int64(), tt.want)
		}
	}
}

// TestFlexInt_RejectsGarbage verifies non-numeric strings fail loudly
func TestFlexInt_RejectsGarbage(t *testing.T) {
	var f FlexInt
	if err := json.Unmarshal([]byte(`"not a number"`), &f); err == nil {
		t.Error("Expected error for non-numeric string")
	}
}

// TestFlexFloat_StringScores verifies the review API's string-typed scores decode
func TestFlexFloat_StringScores(t *testing.T) {
	var r Review
	blob := `{"recommendationid":"123","author":{"steamid":"7656"},"review":"good","weighted_vote_score":"0.523809432983398438"}`
	if err := json.Unmarshal([]byte(blob), &r); err != nil {
		t.Fatalf("Unmarshal review: %v", err)
	}
	if got := r.WeightedVoteScore.Float64(); got < 0.52 || got > 0.53 {
		t.Errorf("WeightedVoteScore = %v, want ~0.5238", got)
	}
}

// TestAppDetail_RequirementsShapeTolerance verifies object-or-array sections survive decode
func TestAppDetail_RequirementsShapeTolerance(t *testing.T) {
	blobs := []string{
		`{"steam_appid":10,"name":"x","type":"game","pc_requirements":{"minimum":"<ul>...</ul>"}}`,
		`{"steam_appid":10,"name":"x","type":"game","pc_requirements":[]}`,
	}
	for _, blob := range blobs {
		var d AppDetail
		if err := json.Unmarshal([]byte(blob), &d); err != nil {
			t.Errorf("Unmarshal with pc_requirements variant failed: %v\ninput: %s", err, blob)
		}
	}
}

// TestAppDetail_DescriptorIDVariants verifies genre (string id) and category (int id) both decode
func TestAppDetail_DescriptorIDVariants(t *testing.T) {
	blob := `{"steam_appid":10,"name":"x","type":"game",
		"genres":[{"id":"1","description":"Action"}],
		"categories":[{"id":2,"description":"Single-player"}]}`
	var d AppDetail
	if err := json.Unmarshal([]byte(blob), &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(d.Genres) != 1 || d.Genres[0].ID.Int64() != 1 {
		t.Errorf("Expected genre id 1, got %+v", d.Genres)
	}
	if len(d.Categories) != 1 || d.Categories[0].ID.Int64() != 2 {
		t.Errorf("Expected category id 2, got %+v", d.Categories)
	}
}
