// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package streamjson

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datamesa/steamset/internal/models"
)

// TestEachTopLevelArray verifies records stream out of a plain array in order.
func TestEachTopLevelArray(t *testing.T) {
	input := `[{"appid":1,"name":"A"},{"appid":2,"name":"B"},{"appid":3,"name":"C"}]`

	var got []models.CatalogEntry
	err := Each(strings.NewReader(input), func(e models.CatalogEntry) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("Each() failed: %v", err)
	}
	if len(got) != 3 || got[0].AppID != 1 || got[2].Name != "C" {
		t.Errorf("streamed entries = %+v", got)
	}
}

// TestEachNestedObject verifies the applist response shape, where the record
// array sits two objects deep, streams the same way.
func TestEachNestedObject(t *testing.T) {
	input := `{"applist":{"apps":[{"appid":10,"name":"X"},{"appid":20,"name":"Y"}]}}`

	var got []models.CatalogEntry
	err := Each(strings.NewReader(input), func(e models.CatalogEntry) error {
		got = append(got, e)
		return nil
	})
	if err != nil {
		t.Fatalf("Each() failed: %v", err)
	}
	if len(got) != 2 || got[1].AppID != 20 {
		t.Errorf("streamed entries = %+v", got)
	}
}

// TestEachSkipsScalars verifies scalar members around the record array are
// consumed without error.
func TestEachSkipsScalars(t *testing.T) {
	input := `{"success":1,"total":2,"note":"x","items":[{"appid":5,"name":"E"}],"cursor":null}`

	count := 0
	err := Each(strings.NewReader(input), func(models.CatalogEntry) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("Each() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("streamed %d records, want 1", count)
	}
}

// TestEachStop verifies ErrStop ends iteration cleanly.
func TestEachStop(t *testing.T) {
	input := `[{"appid":1},{"appid":2},{"appid":3}]`

	count := 0
	err := Each(strings.NewReader(input), func(models.CatalogEntry) error {
		count++
		if count == 2 {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Each() with ErrStop returned %v", err)
	}
	if count != 2 {
		t.Errorf("callback ran %d times, want 2", count)
	}
}

// TestEachCallbackError verifies a real callback error propagates.
func TestEachCallbackError(t *testing.T) {
	input := `[{"appid":1}]`

	err := Each(strings.NewReader(input), func(models.CatalogEntry) error {
		return os.ErrPermission
	})
	if err == nil {
		t.Fatal("callback error did not propagate")
	}
}

// TestEachRejectsScalarInput verifies a non-container document errors out.
func TestEachRejectsScalarInput(t *testing.T) {
	err := Each(strings.NewReader(`42`), func(models.CatalogEntry) error { return nil })
	if err == nil {
		t.Fatal("scalar input accepted")
	}
}

// TestEachMalformed verifies truncated input surfaces a decode error.
func TestEachMalformed(t *testing.T) {
	err := Each(strings.NewReader(`[{"appid":1},{"appid":`), func(models.CatalogEntry) error { return nil })
	if err == nil {
		t.Fatal("truncated input accepted")
	}
}

// TestEachFile verifies the file wrapper streams detail records, including
// nested payload fields.
func TestEachFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	content := `[{"appid":70,"success":true,"data":{"steam_appid":70,"name":"Half-Life","type":"game","developers":["Valve"]}}]`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("seed batch file: %v", err)
	}

	var got []models.DetailRecord
	err := EachFile(path, func(r models.DetailRecord) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("EachFile() failed: %v", err)
	}
	if len(got) != 1 || got[0].Data == nil || got[0].Data.Name != "Half-Life" {
		t.Errorf("streamed records = %+v", got)
	}
	if len(got) == 1 && got[0].Data != nil && len(got[0].Data.Developers) != 1 {
		t.Errorf("nested developer list lost: %+v", got[0].Data)
	}
}

// TestEachFileMissing verifies a missing path errors.
func TestEachFileMissing(t *testing.T) {
	err := EachFile(filepath.Join(t.TempDir(), "nope.json"), func(models.CatalogEntry) error { return nil })
	if err == nil {
		t.Fatal("missing file accepted")
	}
}
