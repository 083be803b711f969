package importer

import (
	"errors"
	"testing"
)

func TestParseCSVStripsByteOrderMark(t *testing.T) {
	payload := append([]byte{0xEF, 0xBB, 0xBF}, []byte("sku,name,price\nA1,Widget,9.99\n")...)

	table, err := parseTable("products.csv", payload)
	if err != nil {
		t.Fatalf("parseTable returned error: %v", err)
	}
	if table.headers[0] != "sku" {
		t.Fatalf("BOM should be stripped from the first header, got %q", table.headers[0])
	}
	if len(table.rows) != 1 {
		t.Fatalf("expected 1 data row, got %d", len(table.rows))
	}
}

func TestParseTableRejectsUnknownExtension(t *testing.T) {
	_, err := parseTable("products.txt", []byte("sku,name,price\n"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNormalizeTableKeepsBlankDataRows(t *testing.T) {
	table, err := parseTable("products.csv", []byte("sku,name,price\nA1,Widget,9.99\n,,\nB2,Gadget,1.25\n"))
	if err != nil {
		t.Fatalf("parseTable returned error: %v", err)
	}
	// The all-blank row counts: it is rejected later, not dropped here.
	if len(table.rows) != 3 {
		t.Fatalf("expected 3 data rows including the blank one, got %d", len(table.rows))
	}
	if table.rows[1][0] != "" || table.rows[1][1] != "" || table.rows[1][2] != "" {
		t.Fatalf("expected blank row to be preserved, got %v", table.rows[1])
	}
}

func TestNormalizeTableSkipsLeadingBlankRowsBeforeHeader(t *testing.T) {
	table, err := parseTable("products.csv", []byte(",,\nsku,name,price\nA1,Widget,9.99\n"))
	if err != nil {
		t.Fatalf("parseTable returned error: %v", err)
	}
	if table.headers[0] != "sku" {
		t.Fatalf("header detection should skip blank leading rows, got %v", table.headers)
	}
	if len(table.rows) != 1 {
		t.Fatalf("expected 1 data row, got %d", len(table.rows))
	}
}

func TestNormalizeTablePadsShortRows(t *testing.T) {
	table, err := parseTable("products.csv", []byte("sku,name,price\nA1,Widget\n"))
	if err != nil {
		t.Fatalf("parseTable returned error: %v", err)
	}
	if len(table.rows[0]) != 3 {
		t.Fatalf("rows should be padded to the header width, got %d cells", len(table.rows[0]))
	}
	if table.rows[0][2] != "" {
		t.Fatalf("padded cells should be empty, got %q", table.rows[0][2])
	}
}
