package importer

import (
	"fmt"
	"strings"

	"catalog-importer/internal/domain"

	"github.com/shopspring/decimal"
)

// requiredColumns must all be present (case-insensitively) in the
// header row before ingestion starts.
var requiredColumns = []string{"sku", "name", "price"}

// RowErrorKind classifies why a row was rejected.
type RowErrorKind string

const (
	RowErrorMissingField  RowErrorKind = "missing_field"
	RowErrorInvalidAmount RowErrorKind = "invalid_amount"
	RowErrorUnexpected    RowErrorKind = "unexpected"
)

// RowError describes a single rejected row. It is a value, not an
// error to propagate: the stream always continues past it.
type RowError struct {
	Row    int
	Kind   RowErrorKind
	Value  string
	Reason string
}

// Message renders the error line stored in the session's error log.
func (e RowError) Message() string {
	switch e.Kind {
	case RowErrorMissingField:
		return fmt.Sprintf("Row %d: missing required fields (%s)", e.Row, strings.Join(requiredColumns, ", "))
	case RowErrorInvalidAmount:
		return fmt.Sprintf("Row %d: invalid price %q: %s", e.Row, e.Value, e.Reason)
	default:
		return fmt.Sprintf("Row %d: unexpected error: %s", e.Row, e.Reason)
	}
}

// columnIndex maps a lower-cased column name to its position in the row.
type columnIndex map[string]int

// mapColumns matches headers case-insensitively and rejects the whole
// file when a required column is missing.
func mapColumns(headers []string) (columnIndex, error) {
	cols := make(columnIndex, len(headers))
	for i, header := range headers {
		name := strings.ToLower(strings.TrimSpace(header))
		if name == "" {
			continue
		}
		if _, taken := cols[name]; !taken {
			cols[name] = i
		}
	}

	var missing []string
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("file must contain columns: %s", strings.Join(requiredColumns, ", "))
	}

	return cols, nil
}

func (c columnIndex) value(row []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// validateRow turns one raw record into a product or a RowError. A
// panic while handling the row is converted to a RowError so a single
// bad record can never abort the stream.
func validateRow(rowNumber int, cols columnIndex, row []string) (product domain.Product, rowErr *RowError) {
	defer func() {
		if r := recover(); r != nil {
			rowErr = &RowError{Row: rowNumber, Kind: RowErrorUnexpected, Reason: fmt.Sprint(r)}
		}
	}()

	sku := cols.value(row, "sku")
	name := cols.value(row, "name")
	priceText := cols.value(row, "price")

	if sku == "" || name == "" || priceText == "" {
		return domain.Product{}, &RowError{Row: rowNumber, Kind: RowErrorMissingField}
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return domain.Product{}, &RowError{Row: rowNumber, Kind: RowErrorInvalidAmount, Value: priceText, Reason: "not a valid number"}
	}
	if price.IsNegative() {
		return domain.Product{}, &RowError{Row: rowNumber, Kind: RowErrorInvalidAmount, Value: priceText, Reason: "price cannot be negative"}
	}

	description := cols.value(row, "description")

	return domain.NewProduct(sku, name, price, description, true), nil
}
