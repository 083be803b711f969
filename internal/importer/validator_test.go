package importer

import (
	"strings"
	"testing"
)

func TestMapColumnsMatchesCaseInsensitively(t *testing.T) {
	cols, err := mapColumns([]string{"SKU", " Name ", "PRICE", "Description"})
	if err != nil {
		t.Fatalf("mapColumns returned error: %v", err)
	}
	if cols["sku"] != 0 || cols["name"] != 1 || cols["price"] != 2 || cols["description"] != 3 {
		t.Fatalf("unexpected column mapping: %v", cols)
	}
}

func TestMapColumnsRejectsMissingRequired(t *testing.T) {
	_, err := mapColumns([]string{"sku", "name"})
	if err == nil {
		t.Fatal("expected missing price column to be rejected")
	}
	if !strings.Contains(err.Error(), "price") {
		t.Fatalf("error should name the required columns, got %v", err)
	}
}

func TestValidateRowAccepts(t *testing.T) {
	cols, err := mapColumns([]string{"sku", "name", "price", "description"})
	if err != nil {
		t.Fatalf("mapColumns returned error: %v", err)
	}

	product, rowErr := validateRow(2, cols, []string{" ab-1 ", " Widget ", " 9.99 ", "A widget"})
	if rowErr != nil {
		t.Fatalf("expected valid row, got %+v", rowErr)
	}
	if product.SKU != "AB-1" {
		t.Fatalf("expected normalized SKU AB-1, got %q", product.SKU)
	}
	if product.Name != "Widget" || product.Description != "A widget" {
		t.Fatalf("unexpected fields: %+v", product)
	}
	if product.Price.StringFixed(2) != "9.99" {
		t.Fatalf("expected price 9.99, got %s", product.Price)
	}
	if !product.Active {
		t.Fatal("imported products default to active")
	}
}

func TestValidateRowRejects(t *testing.T) {
	cols, err := mapColumns([]string{"sku", "name", "price"})
	if err != nil {
		t.Fatalf("mapColumns returned error: %v", err)
	}

	cases := []struct {
		name string
		row  []string
		kind RowErrorKind
	}{
		{"empty sku", []string{"", "Widget", "9.99"}, RowErrorMissingField},
		{"blank name", []string{"A1", "   ", "9.99"}, RowErrorMissingField},
		{"missing price", []string{"A1", "Widget", ""}, RowErrorMissingField},
		{"short row", []string{"A1"}, RowErrorMissingField},
		{"unparseable price", []string{"A1", "Widget", "nine"}, RowErrorInvalidAmount},
		{"negative price", []string{"A1", "Widget", "-1"}, RowErrorInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, rowErr := validateRow(5, cols, tc.row)
			if rowErr == nil {
				t.Fatal("expected row to be rejected")
			}
			if rowErr.Kind != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, rowErr.Kind)
			}
			if rowErr.Row != 5 {
				t.Fatalf("row number should be preserved, got %d", rowErr.Row)
			}
			if !strings.HasPrefix(rowErr.Message(), "Row 5:") {
				t.Fatalf("message should name the row, got %q", rowErr.Message())
			}
		})
	}
}
