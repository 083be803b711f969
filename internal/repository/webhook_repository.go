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
)

const selectSubscriptionColumns = `
	SELECT id, url, event, active, secret,
	       last_triggered_at, last_status, last_status_code, last_latency_ms, last_error,
	       created_at, updated_at
	FROM webhook_subscriptions`

// webhookRepository implements WebhookRepository backed by pgxpool.
type webhookRepository struct {
	pool *pgxpool.Pool
}

// NewWebhookRepository creates a new webhook subscription repository.
func NewWebhookRepository(pool *pgxpool.Pool) WebhookRepository {
	return &webhookRepository{pool: pool}
}

// Create persists a new subscription.
func (r *webhookRepository) Create(ctx context.Context, sub domain.WebhookSubscription) (domain.WebhookSubscription, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO webhook_subscriptions (id, url, event, active, secret, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`,
		sub.ID, sub.URL, string(sub.Event), sub.Active, sub.Secret,
	)
	if err != nil {
		return domain.WebhookSubscription{}, fmt.Errorf("failed to create webhook subscription: %w", err)
	}
	return r.GetByID(ctx, sub.ID)
}

// GetByID fetches a subscription.
func (r *webhookRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.WebhookSubscription, error) {
	row := r.pool.QueryRow(ctx, selectSubscriptionColumns+` WHERE id = $1`, id)
	return scanSubscription(row)
}

// List returns every subscription, newest first.
func (r *webhookRepository) List(ctx context.Context) ([]domain.WebhookSubscription, error) {
	rows, err := r.pool.Query(ctx, selectSubscriptionColumns+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook subscriptions: %w", err)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// ListActiveByEvent returns the fan-out targets for one event kind.
func (r *webhookRepository) ListActiveByEvent(ctx context.Context, kind domain.EventKind) ([]domain.WebhookSubscription, error) {
	rows, err := r.pool.Query(ctx,
		selectSubscriptionColumns+` WHERE event = $1 AND active ORDER BY created_at`,
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active subscriptions: %w", err)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// Update overwrites the mutable attributes of a subscription.
func (r *webhookRepository) Update(ctx context.Context, sub domain.WebhookSubscription) (domain.WebhookSubscription, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_subscriptions
		SET url = $2, event = $3, active = $4, secret = $5, updated_at = NOW()
		WHERE id = $1`,
		sub.ID, sub.URL, string(sub.Event), sub.Active, sub.Secret,
	)
	if err != nil {
		return domain.WebhookSubscription{}, fmt.Errorf("failed to update webhook subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.WebhookSubscription{}, ErrNotFound
	}
	return r.GetByID(ctx, sub.ID)
}

// Delete removes a subscription.
func (r *webhookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhook_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordDelivery overwrites the diagnostics with the most recent attempt.
func (r *webhookRepository) RecordDelivery(ctx context.Context, id uuid.UUID, attempt domain.DeliveryAttempt) error {
	var statusCode any
	if attempt.StatusCode != 0 {
		statusCode = attempt.StatusCode
	}

	_, err := r.pool.Exec(ctx, `
		UPDATE webhook_subscriptions
		SET last_triggered_at = $2, last_status = $3, last_status_code = $4, last_latency_ms = $5, last_error = $6, updated_at = NOW()
		WHERE id = $1`,
		id, attempt.At, attempt.Outcome, statusCode, attempt.Latency.Milliseconds(), attempt.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record webhook delivery: %w", err)
	}
	return nil
}

func scanSubscription(row pgx.Row) (domain.WebhookSubscription, error) {
	sub, err := scanSubscriptionFields(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.WebhookSubscription{}, ErrNotFound
	}
	return sub, err
}

func collectSubscriptions(rows pgx.Rows) ([]domain.WebhookSubscription, error) {
	subs := []domain.WebhookSubscription{}
	for rows.Next() {
		sub, err := scanSubscriptionFields(rows.Scan)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}
	return subs, nil
}

func scanSubscriptionFields(scan func(dest ...any) error) (domain.WebhookSubscription, error) {
	var (
		sub         domain.WebhookSubscription
		event       string
		triggeredAt pgtype.Timestamptz
		lastStatus  pgtype.Text
		statusCode  pgtype.Int4
		latencyMS   pgtype.Int8
		lastError   pgtype.Text
	)
	err := scan(
		&sub.ID,
		&sub.URL,
		&event,
		&sub.Active,
		&sub.Secret,
		&triggeredAt,
		&lastStatus,
		&statusCode,
		&latencyMS,
		&lastError,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WebhookSubscription{}, err
		}
		return domain.WebhookSubscription{}, fmt.Errorf("failed to scan webhook subscription: %w", err)
	}

	sub.Event = domain.EventKind(event)
	if triggeredAt.Valid {
		t := triggeredAt.Time
		sub.LastTriggeredAt = &t
	}
	if lastStatus.Valid {
		sub.LastStatus = lastStatus.String
	}
	if statusCode.Valid {
		code := int(statusCode.Int32)
		sub.LastStatusCode = &code
	}
	if latencyMS.Valid {
		ms := latencyMS.Int64
		sub.LastLatencyMS = &ms
	}
	if lastError.Valid {
		sub.LastError = lastError.String
	}
	return sub, nil
}
