package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"pos-ledger-api/pkg/logging"
)

// EventNewOrder is sent when a store submits a purchase request.
const EventNewOrder = "NEW_ORDER"

// NewOrderEvent is the payload posted to the operator's webhook
type NewOrderEvent struct {
	Event   string `json:"event"`
	OrderID string `json:"orderId"`
	Store   string `json:"store"`
	Contact string `json:"contact"`
	Plan    string `json:"plan"`
	Time    string `json:"time"`
}

// OrderNotifier delivers new-order events. Implementations must not block
// the caller and must swallow delivery failures.
type OrderNotifier interface {
	NotifyNewOrder(webhookURL string, event NewOrderEvent)
}

// MultiNotifier fans an event out to several notifiers
type MultiNotifier []OrderNotifier

func (m MultiNotifier) NotifyNewOrder(webhookURL string, event NewOrderEvent) {
	for _, n := range m {
		if n != nil {
			n.NotifyNewOrder(webhookURL, event)
		}
	}
}

// WebhookNotifier posts events to the configured webhook URL
type WebhookNotifier struct {
	httpClient  *http.Client
	secret      string
	retryDelays []time.Duration
	wg          sync.WaitGroup
}

// NewWebhookNotifier creates a new webhook notifier. When secret is set every
// request carries an HMAC-SHA256 signature of the body.
func NewWebhookNotifier(timeout time.Duration, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		secret:      secret,
		retryDelays: []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// NotifyNewOrder sends the event in the background
func (wn *WebhookNotifier) NotifyNewOrder(webhookURL string, event NewOrderEvent) {
	if webhookURL == "" {
		// No webhook configured, skip
		return
	}

	wn.wg.Add(1)
	go func() {
		defer wn.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logging.Errorf("Webhook notification panicked - order: %s, panic: %v", event.OrderID, r)
			}
		}()
		wn.sendWithRetry(webhookURL, event)
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done
func (wn *WebhookNotifier) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		wn.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// sendWithRetry sends webhook with retry mechanism
// One attempt, then a retry after each delay: 1s, 5s, 30s (4 attempts total)
func (wn *WebhookNotifier) sendWithRetry(webhookURL string, event NewOrderEvent) {
	maxAttempts := len(wn.retryDelays) + 1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := wn.sendWebhook(webhookURL, event)
		if err == nil {
			logging.Infof("Webhook notification sent successfully - url: %s, order: %s, attempt: %d",
				webhookURL, event.OrderID, attempt+1)
			return
		}

		logging.Errorf("Webhook notification failed - url: %s, order: %s, attempt: %d, error: %v",
			webhookURL, event.OrderID, attempt+1, err)

		// If not the last attempt, wait before retry
		if attempt < maxAttempts-1 {
			time.Sleep(wn.retryDelays[attempt])
		}
	}

	logging.Errorf("Webhook notification failed after %d attempts - url: %s, order: %s",
		maxAttempts, webhookURL, event.OrderID)
}

// sendWebhook sends a single webhook request
func (wn *WebhookNotifier) sendWebhook(webhookURL string, event NewOrderEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "POS-Ledger-Webhook/1.0")

	if wn.secret != "" {
		req.Header.Set("X-POS-Signature", wn.generateSignature(jsonData))
	}

	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// generateSignature generates HMAC-SHA256 signature for webhook payload
func (wn *WebhookNotifier) generateSignature(payload []byte) string {
	h := hmac.New(sha256.New, []byte(wn.secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
