package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"pos-ledger-api/internal/models"
)

var orderIDPattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

type orderFixture struct {
	orders   *OrderService
	tokens   *TokenService
	settings *SettingsService
	notifier *recordingNotifier
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := newTestDB(t)
	clock := newClock(time.Date(2026, 5, 10, 8, 30, 0, 0, time.UTC))
	tokens := NewTokenService(db, "ARB", time.UTC)
	tokens.now = clock.Now
	settings := NewSettingsService(db)
	notifier := &recordingNotifier{}
	orders := NewOrderService(db, tokens, settings, notifier, nil, time.UTC)
	orders.now = clock.Now
	return &orderFixture{orders: orders, tokens: tokens, settings: settings, notifier: notifier}
}

func TestOrderApprovalFlow(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	if err := f.settings.Save(ctx, Settings{WebhookURL: "https://hooks.example/pos", PaymentInfo: "Bank 123"}); err != nil {
		t.Fatalf("Save settings: %v", err)
	}

	submitted, err := f.orders.Submit(ctx, "Toko A", "0812", "1m")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !orderIDPattern.MatchString(submitted.OrderID) {
		t.Fatalf("unexpected order id %q", submitted.OrderID)
	}

	events := f.notifier.Events()
	if len(events) != 1 {
		t.Fatalf("expected one notification, got %d", len(events))
	}
	evt := events[0]
	if evt.Event != EventNewOrder || evt.OrderID != submitted.OrderID || evt.Store != "Toko A" || evt.Contact != "0812" || evt.Plan != "1m" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if f.notifier.urls[0] != "https://hooks.example/pos" {
		t.Fatalf("expected configured webhook url, got %q", f.notifier.urls[0])
	}

	view, err := f.orders.Lookup(ctx, "0812")
	if err != nil {
		t.Fatalf("Lookup by contact: %v", err)
	}
	if view.Status != models.OrderPending || view.Token != "" {
		t.Fatalf("expected pending order without token, got %+v", view)
	}

	decision, err := f.orders.Decide(ctx, submitted.OrderID, "APPROVE")
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decision.Status != models.OrderApproved || !tokenCodePattern.MatchString(decision.Token) {
		t.Fatalf("unexpected decision %+v", decision)
	}

	view, err = f.orders.Lookup(ctx, submitted.OrderID)
	if err != nil {
		t.Fatalf("Lookup by id: %v", err)
	}
	if view.Status != models.OrderApproved || view.Token != decision.Token || view.StoreName != "Toko A" {
		t.Fatalf("unexpected order view %+v", view)
	}

	login, err := f.tokens.AuthenticateDevice(ctx, decision.Token, "D1")
	if err != nil {
		t.Fatalf("login with issued token: %v", err)
	}
	if login.StoreName != "Toko A" {
		t.Fatalf("expected store Toko A, got %q", login.StoreName)
	}
	wantExpiry := time.Date(2026, 6, 10, 8, 30, 0, 0, time.UTC)
	if !login.Expiry.Equal(wantExpiry) {
		t.Fatalf("expected expiry %s, got %s", wantExpiry, login.Expiry)
	}
	if _, err := f.tokens.AuthenticateDevice(ctx, decision.Token, "D2"); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch, got %v", err)
	}
}

func TestDecideIsOneShot(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	approved, _ := f.orders.Submit(ctx, "Store", "c1", "6m")
	if _, err := f.orders.Decide(ctx, approved.OrderID, "APPROVE"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.orders.Decide(ctx, approved.OrderID, "APPROVE"); !errors.Is(err, ErrOrderAlreadyDecided) {
		t.Fatalf("expected ErrOrderAlreadyDecided, got %v", err)
	}
	if _, err := f.orders.Decide(ctx, approved.OrderID, "REJECT"); !errors.Is(err, ErrOrderAlreadyDecided) {
		t.Fatalf("expected ErrOrderAlreadyDecided on reject, got %v", err)
	}

	tokens, _ := f.tokens.List(ctx)
	if len(tokens) != 1 {
		t.Fatalf("expected exactly one minted token, got %d", len(tokens))
	}

	rejected, _ := f.orders.Submit(ctx, "Store", "c2", "1y")
	res, err := f.orders.Decide(ctx, rejected.OrderID, "reject")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if res.Status != models.OrderRejected || res.Token != "" {
		t.Fatalf("unexpected reject result %+v", res)
	}
	if _, err := f.orders.Decide(ctx, rejected.OrderID, "APPROVE"); !errors.Is(err, ErrOrderAlreadyDecided) {
		t.Fatalf("expected rejected order to stay rejected, got %v", err)
	}
}

func TestDecideErrors(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	if _, err := f.orders.Decide(ctx, "DEADBEEF", "APPROVE"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	order, _ := f.orders.Submit(ctx, "Store", "c1", "1m")
	if _, err := f.orders.Decide(ctx, order.OrderID, "MAYBE"); !errors.Is(err, ErrInvalidOrderAction) {
		t.Fatalf("expected ErrInvalidOrderAction, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	if _, err := f.orders.Submit(ctx, "Store", "", "1m"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if _, err := f.orders.Submit(ctx, "Store", "c1", "3m"); !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
	if len(f.notifier.Events()) != 0 {
		t.Fatalf("rejected submissions must not notify")
	}
}

func TestSubmitWithoutWebhookStillNotifiesEmptyURL(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	if _, err := f.orders.Submit(ctx, "Store", "c1", "1m"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(f.notifier.urls) != 1 || f.notifier.urls[0] != "" {
		t.Fatalf("expected a single notification with empty url, got %v", f.notifier.urls)
	}
}

func TestLookupPrefersExactIDThenLatestForContact(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	first, _ := f.orders.Submit(ctx, "Old Store", "0812", "1m")
	second, _ := f.orders.Submit(ctx, "New Store", "0812", "1m")

	view, err := f.orders.Lookup(ctx, "0812")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if view.OrderID != second.OrderID {
		t.Fatalf("expected latest order %s, got %s", second.OrderID, view.OrderID)
	}

	view, err = f.orders.Lookup(ctx, first.OrderID)
	if err != nil {
		t.Fatalf("Lookup by id: %v", err)
	}
	if view.StoreName != "Old Store" {
		t.Fatalf("expected Old Store, got %q", view.StoreName)
	}

	if _, err := f.orders.Lookup(ctx, "nobody"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	first, _ := f.orders.Submit(ctx, "A", "c1", "1m")
	second, _ := f.orders.Submit(ctx, "B", "c2", "1m")

	orders, err := f.orders.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(orders) != 2 || orders[0].OrderID != second.OrderID || orders[1].OrderID != first.OrderID {
		t.Fatalf("expected newest first, got %+v", orders)
	}
}

type denyThrottle struct{}

func (denyThrottle) Allow(context.Context, string) (bool, error) { return false, nil }
func (denyThrottle) Reset(context.Context, string) error { return nil }

type brokenThrottle struct{}

func (brokenThrottle) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}
func (brokenThrottle) Reset(context.Context, string) error { return errors.New("redis down") }

// memoryThrottle allows one event per key until it is reset.
type memoryThrottle struct {
	taken map[string]bool
}

func (m *memoryThrottle) Allow(_ context.Context, key string) (bool, error) {
	if m.taken[key] {
		return false, nil
	}
	m.taken[key] = true
	return true, nil
}

func (m *memoryThrottle) Reset(_ context.Context, key string) error {
	delete(m.taken, key)
	return nil
}

func TestSubmitThrottle(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	f.orders.throttle = denyThrottle{}
	if _, err := f.orders.Submit(ctx, "Store", "c1", "1m"); !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests, got %v", err)
	}

	f.orders.throttle = brokenThrottle{}
	if _, err := f.orders.Submit(ctx, "Store", "c1", "1m"); err != nil {
		t.Fatalf("expected throttle failure to be ignored, got %v", err)
	}
}

func TestSubmitFailureFreesThrottle(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.orders.throttle = &memoryThrottle{taken: map[string]bool{}}

	if err := f.orders.db.Migrator().DropTable(&models.Order{}); err != nil {
		t.Fatalf("drop orders: %v", err)
	}
	if _, err := f.orders.Submit(ctx, "Store", "0812", "1m"); err == nil {
		t.Fatalf("expected submission to fail without an orders table")
	}

	if err := f.orders.db.AutoMigrate(&models.Order{}); err != nil {
		t.Fatalf("recreate orders: %v", err)
	}
	if _, err := f.orders.Submit(ctx, "Store", "0812", "1m"); err != nil {
		t.Fatalf("expected retry after failed insert to be allowed, got %v", err)
	}
	if _, err := f.orders.Submit(ctx, "Store", "0812", "1m"); !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("expected stored order to hold the throttle, got %v", err)
	}
}

func TestSubmitSurvivesBrokenNotifier(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	f.orders.notifier = panicNotifier{}

	res, err := f.orders.Submit(ctx, "Store", "c1", "1m")
	if err != nil {
		t.Fatalf("expected submission to succeed, got %v", err)
	}
	if _, err := f.orders.Lookup(ctx, res.OrderID); err != nil {
		t.Fatalf("expected order to be stored, got %v", err)
	}
}
