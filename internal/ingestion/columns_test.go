package ingestion

import (
	"testing"

	"github.com/fieldserve/rmaflow/internal/domain"
)

func TestResolveColumnsLabelWinsOverPosition(t *testing.T) {
	// "RMA #" sits at index 6, which positionally belongs to the site field.
	row := RawRow{Cells: []Cell{
		{Label: "#", Value: "1", Index: 0},
		{Label: "RMA #", Value: "X", Index: 6},
	}}

	resolved := resolveColumns(row)

	if resolved[domain.FieldCaseNumber] != "X" {
		t.Fatalf("expected case number X, got %q", resolved[domain.FieldCaseNumber])
	}
	if _, ok := resolved[domain.FieldSiteName]; ok {
		t.Fatalf("label-matched column must not leak into positional mapping")
	}
}

func TestResolveColumnsLabelNormalization(t *testing.T) {
	row := RawRow{Cells: []Cell{
		{Label: "  CALL   Log  NUMBER ", Value: "CL-9", Index: 3},
	}}

	resolved := resolveColumns(row)
	if resolved[domain.FieldCaseNumber] != "CL-9" {
		t.Fatalf("expected case-insensitive whitespace-tolerant label match, got %v", resolved)
	}
}

func TestResolveColumnsPositionalFallback(t *testing.T) {
	// Headers renamed beyond recognition; positions still line up with the
	// legacy layout.
	row := RawRow{Cells: []Cell{
		{Label: "col_a", Value: "7", Index: 0},
		{Label: "col_b", Value: "RMA-2024-ABC", Index: 1},
		{Label: "col_c", Value: "", Index: 6},
		{Label: "col_d", Value: "Model Z", Index: 7},
	}}

	resolved := resolveColumns(row)

	if resolved[domain.FieldCaseNumber] != "RMA-2024-ABC" {
		t.Fatalf("expected positional case number, got %v", resolved)
	}
	if resolved[domain.FieldProductName] != "Model Z" {
		t.Fatalf("expected positional product, got %v", resolved)
	}
	if _, ok := resolved[domain.FieldSiteName]; ok {
		t.Fatalf("empty cells must not be mapped positionally")
	}
}

func TestResolveColumnsIndexZeroIgnored(t *testing.T) {
	// Even a recognizable label at index 0 is skipped; that column is the
	// row sequence.
	row := RawRow{Cells: []Cell{
		{Label: "RMA Number", Value: "RMA-1", Index: 0},
		{Label: "Site Name", Value: "Plant A", Index: 1},
	}}

	resolved := resolveColumns(row)

	if _, ok := resolved[domain.FieldCaseNumber]; ok {
		t.Fatalf("index 0 must never map to a field, got %v", resolved)
	}
	if resolved[domain.FieldSiteName] != "Plant A" {
		t.Fatalf("expected site from labeled column, got %v", resolved)
	}
}

func TestResolveColumnsFirstLabelWins(t *testing.T) {
	row := RawRow{Cells: []Cell{
		{Label: "RMA #", Value: "first", Index: 1},
		{Label: "Case Number", Value: "second", Index: 2},
	}}

	resolved := resolveColumns(row)
	if resolved[domain.FieldCaseNumber] != "first" {
		t.Fatalf("expected first aliased column to win, got %q", resolved[domain.FieldCaseNumber])
	}
}
