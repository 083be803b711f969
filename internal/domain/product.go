package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog record upserted by its normalized SKU.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewProduct creates a product with a normalized SKU.
func NewProduct(sku, name string, price decimal.Decimal, description string, active bool) Product {
	now := time.Now()
	return Product{
		ID:          uuid.New(),
		SKU:         NormalizeSKU(sku),
		Name:        name,
		Price:       price,
		Description: description,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NormalizeSKU folds a SKU to its canonical upper-cased form so that
// "abc-1" and "ABC-1" address the same record.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// ProductCounts summarizes the catalog for the management surface.
type ProductCounts struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}
