package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"catalog-importer/internal/config"
	"catalog-importer/internal/domain"
	"catalog-importer/internal/repository"

	"github.com/google/uuid"
)

type stubWebhookRepo struct {
	mu       sync.Mutex
	subs     []domain.WebhookSubscription
	attempts map[uuid.UUID]domain.DeliveryAttempt
	recorded chan uuid.UUID
}

func newStubWebhookRepo(subs ...domain.WebhookSubscription) *stubWebhookRepo {
	return &stubWebhookRepo{
		subs:     subs,
		attempts: map[uuid.UUID]domain.DeliveryAttempt{},
		recorded: make(chan uuid.UUID, 16),
	}
}

func (r *stubWebhookRepo) Create(_ context.Context, sub domain.WebhookSubscription) (domain.WebhookSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, sub)
	return sub, nil
}

func (r *stubWebhookRepo) GetByID(_ context.Context, id uuid.UUID) (domain.WebhookSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.ID == id {
			return sub, nil
		}
	}
	return domain.WebhookSubscription{}, repository.ErrNotFound
}

func (r *stubWebhookRepo) List(context.Context) ([]domain.WebhookSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.WebhookSubscription(nil), r.subs...), nil
}

func (r *stubWebhookRepo) ListActiveByEvent(_ context.Context, kind domain.EventKind) ([]domain.WebhookSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WebhookSubscription
	for _, sub := range r.subs {
		if sub.Active && sub.Event == kind {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *stubWebhookRepo) Update(_ context.Context, sub domain.WebhookSubscription) (domain.WebhookSubscription, error) {
	return sub, nil
}

func (r *stubWebhookRepo) Delete(context.Context, uuid.UUID) error { return nil }

func (r *stubWebhookRepo) RecordDelivery(_ context.Context, id uuid.UUID, attempt domain.DeliveryAttempt) error {
	r.mu.Lock()
	r.attempts[id] = attempt
	r.mu.Unlock()
	r.recorded <- id
	return nil
}

func (r *stubWebhookRepo) waitRecorded(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.recorded:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d deliveries were recorded", i, n)
		}
	}
}

func (r *stubWebhookRepo) attempt(t *testing.T, id uuid.UUID) domain.DeliveryAttempt {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	attempt, ok := r.attempts[id]
	if !ok {
		t.Fatalf("no delivery recorded for %s", id)
	}
	return attempt
}

func testConfig() config.WebhookConfig {
	return config.WebhookConfig{
		Timeout:   2 * time.Second,
		UserAgent: "catalog-importer-webhook/1.0",
	}
}

func TestPublishDeliversEnvelopeWithHeaders(t *testing.T) {
	type received struct {
		envelope Envelope
		header   http.Header
	}
	got := make(chan received, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var env Envelope
		if err := json.Unmarshal(body, &env); err != nil {
			t.Errorf("invalid envelope: %v", err)
		}
		got <- received{envelope: env, header: r.Header.Clone()}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sub := domain.NewWebhookSubscription(server.URL, domain.EventProductCreated, "s3cret")
	repo := newStubWebhookRepo(sub)
	dispatcher := NewDispatcher(repo, testConfig())

	dispatcher.Publish(domain.EventProductCreated, map[string]any{"sku": "A1"})
	repo.waitRecorded(t, 1)

	r := <-got
	if r.envelope.Event != "product_created" {
		t.Fatalf("expected event product_created, got %q", r.envelope.Event)
	}
	if r.envelope.Timestamp <= 0 {
		t.Fatalf("expected unix timestamp, got %v", r.envelope.Timestamp)
	}
	if r.envelope.Data["sku"] != "A1" {
		t.Fatalf("unexpected payload: %v", r.envelope.Data)
	}
	if ct := r.header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
	if ua := r.header.Get("User-Agent"); ua != "catalog-importer-webhook/1.0" {
		t.Fatalf("unexpected user agent %q", ua)
	}
	if secret := r.header.Get("X-Webhook-Secret"); secret != "s3cret" {
		t.Fatalf("expected secret header, got %q", secret)
	}

	attempt := repo.attempt(t, sub.ID)
	if attempt.Outcome != domain.DeliveryOutcomeSuccess || attempt.StatusCode != http.StatusOK {
		t.Fatalf("unexpected diagnostics: %+v", attempt)
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	subA := domain.NewWebhookSubscription(server.URL, domain.EventBulkImportCompleted, "")
	subB := domain.NewWebhookSubscription(server.URL, domain.EventBulkImportCompleted, "")
	inactive := domain.NewWebhookSubscription(server.URL, domain.EventBulkImportCompleted, "")
	inactive.Active = false
	other := domain.NewWebhookSubscription(server.URL, domain.EventProductDeleted, "")

	repo := newStubWebhookRepo(subA, subB, inactive, other)
	dispatcher := NewDispatcher(repo, testConfig())

	dispatcher.Publish(domain.EventBulkImportCompleted, map[string]any{"total_rows": 10})
	repo.waitRecorded(t, 2)

	mu.Lock()
	defer mu.Unlock()
	if hits != 2 {
		t.Fatalf("expected 2 deliveries, got %d", hits)
	}
}

func TestDeliveryFailureIsRecordedNotRaised(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	sub := domain.NewWebhookSubscription(server.URL, domain.EventProductUpdated, "")
	repo := newStubWebhookRepo(sub)
	dispatcher := NewDispatcher(repo, testConfig())

	// Publish must not block or fail regardless of the endpoint outcome.
	dispatcher.Publish(domain.EventProductUpdated, map[string]any{"sku": "A1"})
	repo.waitRecorded(t, 1)

	attempt := repo.attempt(t, sub.ID)
	if attempt.Outcome != domain.DeliveryOutcomeFailed {
		t.Fatalf("expected failed outcome, got %+v", attempt)
	}
	if attempt.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", attempt.StatusCode)
	}
	if attempt.Error == "" {
		t.Fatal("expected error detail in diagnostics")
	}
}

func TestTestDeliveryAgainstUnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	server.Close() // deliberately unreachable

	sub := domain.NewWebhookSubscription(server.URL, domain.EventProductCreated, "")
	repo := newStubWebhookRepo(sub)
	dispatcher := NewDispatcher(repo, testConfig())

	attempt := dispatcher.TestDelivery(context.Background(), sub)
	if attempt.Outcome != domain.DeliveryOutcomeFailed {
		t.Fatalf("expected failed outcome, got %+v", attempt)
	}
	if attempt.Error == "" {
		t.Fatal("expected connection error detail")
	}

	// Diagnostics are recorded exactly like real deliveries.
	recorded := repo.attempt(t, sub.ID)
	if recorded.Outcome != domain.DeliveryOutcomeFailed {
		t.Fatalf("expected recorded failure, got %+v", recorded)
	}
}

func TestTestDeliverySuccessReturnsOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sub := domain.NewWebhookSubscription(server.URL, domain.EventProductCreated, "")
	repo := newStubWebhookRepo(sub)
	dispatcher := NewDispatcher(repo, testConfig())

	attempt := dispatcher.TestDelivery(context.Background(), sub)
	if attempt.Outcome != domain.DeliveryOutcomeSuccess {
		t.Fatalf("expected success, got %+v", attempt)
	}
	if attempt.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", attempt.StatusCode)
	}
	if attempt.Latency <= 0 {
		t.Fatalf("expected positive latency, got %v", attempt.Latency)
	}
}
