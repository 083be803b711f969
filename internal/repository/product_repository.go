package repository

import (
	"context"
	"errors"
	"fmt"

	"catalog-importer/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const upsertProductSQL = `
	INSERT INTO products (id, sku, name, price, description, active, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	ON CONFLICT (sku) DO UPDATE
	SET name = EXCLUDED.name,
	    price = EXCLUDED.price,
	    description = EXCLUDED.description,
	    active = EXCLUDED.active,
	    updated_at = NOW()`

// productRepository implements ProductRepository backed by pgxpool.
type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a new product repository.
func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

// Upsert creates or updates a single product keyed on its normalized SKU.
func (r *productRepository) Upsert(ctx context.Context, product domain.Product) (domain.Product, error) {
	product.SKU = domain.NormalizeSKU(product.SKU)
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		product.ID,
		product.SKU,
		product.Name,
		product.Price.StringFixed(2),
		product.Description,
		product.Active,
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to upsert product %s: %w", product.SKU, err)
	}
	return r.GetBySKU(ctx, product.SKU)
}

// UpsertBatch applies the batch in one transaction. If the transaction
// fails it falls back to independent per-record upserts and keeps going
// past individual failures. The return value counts only persisted
// records; per-record errors are never surfaced.
func (r *productRepository) UpsertBatch(ctx context.Context, batch []domain.Product) int {
	if len(batch) == 0 {
		return 0
	}

	err := r.upsertBatchTx(ctx, batch)
	if err == nil {
		return len(batch)
	}
	logrus.WithError(err).Warn("batch upsert failed, retrying records individually")

	applied := 0
	for _, product := range batch {
		_, err := r.pool.Exec(ctx, upsertProductSQL,
			product.ID,
			domain.NormalizeSKU(product.SKU),
			product.Name,
			product.Price.StringFixed(2),
			product.Description,
			product.Active,
		)
		if err != nil {
			logrus.WithError(err).WithField("sku", product.SKU).Debug("record upsert failed")
			continue
		}
		applied++
	}
	return applied
}

func (r *productRepository) upsertBatchTx(ctx context.Context, batch []domain.Product) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // safe no-op on commit

	for _, product := range batch {
		_, err := tx.Exec(ctx, upsertProductSQL,
			product.ID,
			domain.NormalizeSKU(product.SKU),
			product.Name,
			product.Price.StringFixed(2),
			product.Description,
			product.Active,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", product.SKU, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, sku, name, price::text, description, active, created_at, updated_at
		FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// GetBySKU retrieves a product by its normalized SKU.
func (r *productRepository) GetBySKU(ctx context.Context, sku string) (domain.Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, sku, name, price::text, description, active, created_at, updated_at
		FROM products WHERE sku = $1`, domain.NormalizeSKU(sku))
	return scanProduct(row)
}

// List retrieves products ordered by most recently updated.
func (r *productRepository) List(ctx context.Context, limit, offset int) ([]domain.Product, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, sku, name, price::text, description, active, created_at, updated_at,
		       COUNT(*) OVER() AS total_count
		FROM products
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	total := 0
	for rows.Next() {
		var (
			product     domain.Product
			priceText   string
			description pgtype.Text
		)
		if err := rows.Scan(
			&product.ID,
			&product.SKU,
			&product.Name,
			&priceText,
			&description,
			&product.Active,
			&product.CreatedAt,
			&product.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		price, err := decimal.NewFromString(priceText)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to parse stored price: %w", err)
		}
		product.Price = price
		if description.Valid {
			product.Description = description.String
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, total, nil
}

// Update overwrites the mutable attributes of an existing product.
func (r *productRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET sku = $2, name = $3, price = $4, description = $5, active = $6, updated_at = NOW()
		WHERE id = $1`,
		product.ID,
		domain.NormalizeSKU(product.SKU),
		product.Name,
		product.Price.StringFixed(2),
		product.Description,
		product.Active,
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Product{}, ErrNotFound
	}
	return r.GetByID(ctx, product.ID)
}

// Delete removes a product.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByIDs removes the listed products and reports how many existed.
func (r *productRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Counts summarizes the catalog.
func (r *productRepository) Counts(ctx context.Context) (domain.ProductCounts, error) {
	var counts domain.ProductCounts
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE active),
		       COUNT(*) FILTER (WHERE NOT active)
		FROM products`).Scan(&counts.Total, &counts.Active, &counts.Inactive)
	if err != nil {
		return domain.ProductCounts{}, fmt.Errorf("failed to count products: %w", err)
	}
	return counts, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		product     domain.Product
		priceText   string
		description pgtype.Text
	)
	err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&priceText,
		&description,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to scan product: %w", err)
	}

	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to parse stored price: %w", err)
	}
	product.Price = price
	if description.Valid {
		product.Description = description.String
	}
	return product, nil
}
