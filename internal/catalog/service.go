package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catalog-importer/internal/domain"
	"catalog-importer/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventPublisher decouples the catalog surface from the dispatcher.
type EventPublisher interface {
	Publish(kind domain.EventKind, payload map[string]any)
}

// Service exposes single-record catalog operations. Each mutation
// dispatches its event after the store mutation commits; delivery
// outcomes never affect the caller's result.
type Service struct {
	products repository.ProductRepository
	events   EventPublisher
}

// NewService creates a catalog service.
func NewService(products repository.ProductRepository, events EventPublisher) *Service {
	return &Service{products: products, events: events}
}

// ProductInput carries the caller-supplied attributes of a product.
type ProductInput struct {
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

func (in ProductInput) parse() (sku, name string, price decimal.Decimal, err error) {
	sku = strings.TrimSpace(in.SKU)
	name = strings.TrimSpace(in.Name)
	priceText := strings.TrimSpace(in.Price)
	if sku == "" || name == "" || priceText == "" {
		return "", "", decimal.Decimal{}, errors.New("sku, name and price are required")
	}
	price, err = decimal.NewFromString(priceText)
	if err != nil {
		return "", "", decimal.Decimal{}, fmt.Errorf("invalid price %q", priceText)
	}
	if price.IsNegative() {
		return "", "", decimal.Decimal{}, errors.New("price cannot be negative")
	}
	return sku, name, price, nil
}

// Create upserts a product from caller input and emits product_created.
func (s *Service) Create(ctx context.Context, input ProductInput) (domain.Product, error) {
	sku, name, price, err := input.parse()
	if err != nil {
		return domain.Product{}, err
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	product, err := s.products.Upsert(ctx, domain.NewProduct(sku, name, price, strings.TrimSpace(input.Description), active))
	if err != nil {
		return domain.Product{}, err
	}

	s.events.Publish(domain.EventProductCreated, productPayload(product))
	return product, nil
}

// Update overwrites a product's attributes and emits product_updated.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input ProductInput) (domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	sku, name, price, err := input.parse()
	if err != nil {
		return domain.Product{}, err
	}

	product.SKU = domain.NormalizeSKU(sku)
	product.Name = name
	product.Price = price
	product.Description = strings.TrimSpace(input.Description)
	if input.Active != nil {
		product.Active = *input.Active
	}

	updated, err := s.products.Update(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.events.Publish(domain.EventProductUpdated, productPayload(updated))
	return updated, nil
}

// Delete removes a product and emits product_deleted.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.events.Publish(domain.EventProductDeleted, productPayload(product))
	return nil
}

// DeleteSelected removes the listed products and emits
// bulk_delete_completed with the count actually deleted.
func (s *Service) DeleteSelected(ctx context.Context, ids []uuid.UUID) (int, error) {
	deleted, err := s.products.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	s.events.Publish(domain.EventBulkDeleteCompleted, map[string]any{
		"requested_count": len(ids),
		"deleted_count":   deleted,
	})
	return deleted, nil
}

// List returns a page of products plus the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]domain.Product, int, error) {
	return s.products.List(ctx, limit, offset)
}

// Counts summarizes the catalog.
func (s *Service) Counts(ctx context.Context) (domain.ProductCounts, error) {
	return s.products.Counts(ctx)
}

func productPayload(product domain.Product) map[string]any {
	return map[string]any{
		"id":     product.ID.String(),
		"sku":    product.SKU,
		"name":   product.Name,
		"price":  product.Price.StringFixed(2),
		"active": product.Active,
	}
}
