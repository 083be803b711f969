package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"catalog-importer/internal/config"
	"catalog-importer/internal/domain"
	"catalog-importer/internal/repository"
	"catalog-importer/internal/telemetry"

	"github.com/sirupsen/logrus"
)

// Envelope is the wire format delivered to subscriber endpoints.
type Envelope struct {
	Event     string         `json:"event"`
	Timestamp float64        `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Dispatcher fans events out to registered webhook endpoints. Delivery
// is best-effort: one attempt per active subscription, no retries, no
// ordering, and nothing ever propagates back to the publisher.
type Dispatcher struct {
	subscriptions repository.WebhookRepository
	client        *http.Client
	timeout       time.Duration
	userAgent     string
}

// NewDispatcher creates a dispatcher with its own HTTP client.
func NewDispatcher(subscriptions repository.WebhookRepository, cfg config.WebhookConfig) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		subscriptions: subscriptions,
		client:        &http.Client{Timeout: timeout},
		timeout:       timeout,
		userAgent:     cfg.UserAgent,
	}
}

// Publish returns immediately; subscription lookup and every delivery
// run in their own goroutines. One goroutine per subscription per
// event, no pool: subscriber counts are expected to stay small.
func (d *Dispatcher) Publish(kind domain.EventKind, payload map[string]any) {
	event := domain.NewEvent(kind, payload)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		subs, err := d.subscriptions.ListActiveByEvent(ctx, kind)
		if err != nil {
			logrus.WithError(err).WithField("event", kind).Error("failed to look up webhook subscriptions")
			return
		}

		for _, sub := range subs {
			go d.deliverAndRecord(sub, event)
		}
	}()
}

// TestDelivery performs one synchronous attempt with a synthetic
// payload and returns the outcome to the caller. Diagnostics are
// recorded the same way as for real deliveries.
func (d *Dispatcher) TestDelivery(ctx context.Context, sub domain.WebhookSubscription) domain.DeliveryAttempt {
	event := domain.NewEvent(sub.Event, map[string]any{
		"test":    true,
		"message": "test delivery from catalog-importer",
	})

	attempt := d.deliver(sub, event)
	if err := d.subscriptions.RecordDelivery(ctx, sub.ID, attempt); err != nil {
		logrus.WithError(err).WithField("subscription_id", sub.ID).Error("failed to record test delivery")
	}
	return attempt
}

func (d *Dispatcher) deliverAndRecord(sub domain.WebhookSubscription, event domain.Event) {
	attempt := d.deliver(sub, event)

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.subscriptions.RecordDelivery(ctx, sub.ID, attempt); err != nil {
		logrus.WithError(err).WithField("subscription_id", sub.ID).Error("failed to record webhook delivery")
	}
}

// deliver performs a single HTTP delivery attempt. Failures are
// reported only through the returned attempt.
func (d *Dispatcher) deliver(sub domain.WebhookSubscription, event domain.Event) domain.DeliveryAttempt {
	attempt := domain.DeliveryAttempt{At: time.Now(), Outcome: domain.DeliveryOutcomeFailed}

	body, err := json.Marshal(Envelope{
		Event:     string(event.Kind),
		Timestamp: float64(event.EmittedAt.UnixNano()) / float64(time.Second),
		Data:      event.Payload,
	})
	if err != nil {
		attempt.Error = fmt.Sprintf("failed to encode payload: %v", err)
		return attempt
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		attempt.Error = fmt.Sprintf("failed to build request: %v", err)
		return attempt
	}
	req.Header.Set("Content-Type", "application/json")
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	if sub.Secret != "" {
		req.Header.Set("X-Webhook-Secret", sub.Secret)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	attempt.Latency = time.Since(start)
	if err != nil {
		attempt.Error = err.Error()
		telemetry.WebhookFailures.Inc()
		return attempt
	}
	defer resp.Body.Close()

	attempt.StatusCode = resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		attempt.Outcome = domain.DeliveryOutcomeSuccess
		telemetry.WebhookSuccesses.Inc()
	} else {
		attempt.Error = fmt.Sprintf("endpoint returned status %d", resp.StatusCode)
		telemetry.WebhookFailures.Inc()
	}
	return attempt
}
