package repository

import (
	"context"
	"errors"

	"catalog-importer/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ProductRepository defines the interface for catalog record operations.
// UpsertBatch is the batch engine of the ingestion pipeline: it applies
// the whole batch in one transaction, falls back to independent
// per-record upserts when the transaction fails, and reports only the
// number of records persisted.
type ProductRepository interface {
	Upsert(ctx context.Context, product domain.Product) (domain.Product, error)
	UpsertBatch(ctx context.Context, batch []domain.Product) int
	GetByID(ctx context.Context, id uuid.UUID) (domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]domain.Product, int, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int, error)
	Counts(ctx context.Context) (domain.ProductCounts, error)
}

// ImportSessionRepository defines the interface for session tracking.
// One coordinator owns the writes for a session; reads may happen
// concurrently from pollers and observe a consistent snapshot.
type ImportSessionRepository interface {
	Create(ctx context.Context, session domain.ImportSession) (domain.ImportSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ImportSession, error)
	Checkpoint(ctx context.Context, id uuid.UUID, processed, success, errorCount int) error
	Finalize(ctx context.Context, id uuid.UUID, status domain.ImportStatus, processed, success, errorCount int, errorLog string) error
}

// WebhookRepository defines the interface for webhook subscriptions.
type WebhookRepository interface {
	Create(ctx context.Context, sub domain.WebhookSubscription) (domain.WebhookSubscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.WebhookSubscription, error)
	List(ctx context.Context) ([]domain.WebhookSubscription, error)
	ListActiveByEvent(ctx context.Context, kind domain.EventKind) ([]domain.WebhookSubscription, error)
	Update(ctx context.Context, sub domain.WebhookSubscription) (domain.WebhookSubscription, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordDelivery(ctx context.Context, id uuid.UUID, attempt domain.DeliveryAttempt) error
}
