package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates the notifications the dispatcher can fan out.
type EventKind string

const (
	EventProductCreated      EventKind = "product_created"
	EventProductUpdated      EventKind = "product_updated"
	EventProductDeleted      EventKind = "product_deleted"
	EventBulkImportCompleted EventKind = "bulk_import_completed"
	EventBulkDeleteCompleted EventKind = "bulk_delete_completed"
)

// KnownEventKinds lists every kind a subscription may register for.
var KnownEventKinds = []EventKind{
	EventProductCreated,
	EventProductUpdated,
	EventProductDeleted,
	EventBulkImportCompleted,
	EventBulkDeleteCompleted,
}

// ValidEventKind reports whether kind is part of the fixed enumeration.
func ValidEventKind(kind EventKind) bool {
	for _, known := range KnownEventKinds {
		if kind == known {
			return true
		}
	}
	return false
}

// Delivery outcomes recorded on a subscription after each attempt.
const (
	DeliveryOutcomeSuccess = "success"
	DeliveryOutcomeFailed  = "failed"
)

// WebhookSubscription registers an external endpoint for one event kind.
// Delivery diagnostics reflect only the most recent attempt.
type WebhookSubscription struct {
	ID              uuid.UUID  `json:"id"`
	URL             string     `json:"url"`
	Event           EventKind  `json:"event"`
	Active          bool       `json:"active"`
	Secret          string     `json:"-"`
	LastTriggeredAt *time.Time `json:"last_triggered_at,omitempty"`
	LastStatus      string     `json:"last_status,omitempty"`
	LastStatusCode  *int       `json:"last_status_code,omitempty"`
	LastLatencyMS   *int64     `json:"last_latency_ms,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewWebhookSubscription creates an active subscription.
func NewWebhookSubscription(url string, event EventKind, secret string) WebhookSubscription {
	now := time.Now()
	return WebhookSubscription{
		ID:        uuid.New(),
		URL:       url,
		Event:     event,
		Active:    true,
		Secret:    secret,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DeliveryAttempt captures the outcome of one webhook delivery.
type DeliveryAttempt struct {
	At         time.Time     `json:"at"`
	Outcome    string        `json:"outcome"`
	StatusCode int           `json:"status_code,omitempty"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
}

// Event is an ephemeral message handed to the dispatcher; it is never
// persisted beyond delivery.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Payload   map[string]any `json:"payload"`
	EmittedAt time.Time      `json:"emitted_at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(kind EventKind, payload map[string]any) Event {
	return Event{Kind: kind, Payload: payload, EmittedAt: time.Now()}
}
