package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestWebhookNotifierSignsAndRetries(t *testing.T) {
	var attempts int32
	received := make(chan NewOrderEvent, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		mac := hmac.New(sha256.New, []byte("hook-secret"))
		mac.Write(body)
		if r.Header.Get("X-POS-Signature") != hex.EncodeToString(mac.Sum(nil)) {
			t.Errorf("bad signature header %q", r.Header.Get("X-POS-Signature"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}

		var evt NewOrderEvent
		if err := json.Unmarshal(body, &evt); err != nil {
			t.Errorf("decode body: %v", err)
		}
		received <- evt
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(2*time.Second, "hook-secret")
	notifier.retryDelays = []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond}

	notifier.NotifyNewOrder(srv.URL, NewOrderEvent{Event: EventNewOrder, OrderID: "ABCD1234", Store: "Toko A", Contact: "0811", Plan: "1m"})

	select {
	case evt := <-received:
		if evt.OrderID != "ABCD1234" || evt.Event != EventNewOrder {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("webhook was not delivered")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	notifier.Wait(ctx)
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestWebhookNotifierGivesUp(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(time.Second, "")
	notifier.retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	notifier.NotifyNewOrder(srv.URL, NewOrderEvent{Event: EventNewOrder, OrderID: "X"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	notifier.Wait(ctx)

	if got := atomic.LoadInt32(&attempts); got != 4 {
		t.Fatalf("expected one attempt plus a retry per delay, got %d", got)
	}
}

func TestWebhookNotifierSkipsEmptyURL(t *testing.T) {
	notifier := NewWebhookNotifier(time.Second, "")
	notifier.NotifyNewOrder("", NewOrderEvent{OrderID: "X"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	notifier.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatalf("expected no pending delivery")
	}
}

func TestMultiNotifierFansOut(t *testing.T) {
	a, b := &recordingNotifier{}, &recordingNotifier{}
	MultiNotifier{a, nil, b}.NotifyNewOrder("u", NewOrderEvent{OrderID: "X"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("expected both notifiers to receive the event")
	}
}
