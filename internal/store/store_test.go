// Steamset - Steam Catalog Collection and ETL Pipeline
// Copyright 2026 Data Mesa Labs
// SPDX-License-Identifier: MIT
// https://github.com/datamesa/steamset

package store

import (
	"strings"
	"testing"
)

// TestVectorLiteral verifies pgvector input rendering.
func TestVectorLiteral(t *testing.T) {
	tests := []struct {
		in   []float32
		want string
	}{
		{nil, "[]"},
		{[]float32{1}, "[1]"},
		{[]float32{0.5, -0.25, 2}, "[0.5,-0.25,2]"},
	}
	for _, tt := range tests {
		if got := VectorLiteral(tt.in); got != tt.want {
			t.Errorf("VectorLiteral(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestSchemaStatements verifies the DDL set covers every table the pipeline
// touches and embeds the configured vector dimension.
func TestSchemaStatements(t *testing.T) {
	stmts := schemaStatements(1024)
	all := strings.Join(stmts, "\n")

	for _, table := range []string{
		"developers", "publishers", "genres", "categories",
		"applications", "application_developers", "application_publishers",
		"application_genres", "application_categories",
		"reviews", "embedding_runs",
	} {
		if !strings.Contains(all, table) {
			t.Errorf("schema missing table %s", table)
		}
	}
	if !strings.Contains(all, "vector(1024)") {
		t.Error("schema does not embed the vector dimension")
	}
	for _, stmt := range stmts {
		if strings.Contains(stmt, ";") {
			t.Errorf("statement contains a semicolon, breaks one-at-a-time execution: %.60s", stmt)
		}
	}
}

// TestJunctionColumnsMatchSchema verifies every junction table named in the
// insert map exists in the DDL with its reference column.
func TestJunctionColumnsMatchSchema(t *testing.T) {
	all := strings.Join(schemaStatements(8), "\n")
	for table, col := range junctionColumns {
		if !strings.Contains(all, table) {
			t.Errorf("junction table %s missing from schema", table)
		}
		if !strings.Contains(all, col) {
			t.Errorf("junction column %s missing from schema", col)
		}
	}
}
