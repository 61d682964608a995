package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"pos-ledger-api/internal/models"
)

var tokenCodePattern = regexp.MustCompile(`^ARB-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

func newTestTokenService(t *testing.T, clock *fixedClock) *TokenService {
	t.Helper()
	svc := NewTokenService(newTestDB(t), "ARB", time.UTC)
	svc.now = clock.Now
	return svc
}

func TestMintIssuesActiveUnboundToken(t *testing.T) {
	ctx := context.Background()
	clock := newClock(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	svc := newTestTokenService(t, clock)

	token, err := svc.Mint(ctx, "Toko A", "1m")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	if !tokenCodePattern.MatchString(token.Code) {
		t.Fatalf("unexpected code format %q", token.Code)
	}
	if !token.IsActive || token.IsBound() {
		t.Fatalf("expected active unbound token, got active=%t device=%q", token.IsActive, token.BoundDeviceID)
	}
	want := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	if !token.Expiry.Equal(want) {
		t.Fatalf("expected expiry %s, got %s", want, token.Expiry)
	}
}

func TestMintCalendarExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newClock(time.Date(2027, 1, 31, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(t, clock)

	cases := []struct {
		plan string
		want time.Time
	}{
		{"1m", time.Date(2027, 2, 28, 12, 0, 0, 0, time.UTC)},
		{"6m", time.Date(2027, 7, 31, 12, 0, 0, 0, time.UTC)},
		{"1y", time.Date(2028, 1, 31, 12, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		token, err := svc.Mint(ctx, "Store", tc.plan)
		if err != nil {
			t.Fatalf("Mint(%s): %v", tc.plan, err)
		}
		if !token.Expiry.Equal(tc.want) {
			t.Fatalf("plan %s: expected expiry %s, got %s", tc.plan, tc.want, token.Expiry)
		}
	}
}

func TestMintRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, newClock(time.Now()))

	if _, err := svc.Mint(ctx, "", "1m"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if _, err := svc.Mint(ctx, "Store", "2w"); !errors.Is(err, ErrInvalidPlan) {
		t.Fatalf("expected ErrInvalidPlan, got %v", err)
	}
}

func TestAuthenticateDeviceBindsOnce(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	token, err := svc.Mint(ctx, "Toko A", "1m")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	res, err := svc.AuthenticateDevice(ctx, token.Code, "D1")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if res.StoreName != "Toko A" || res.DeviceID != "D1" || res.Token != token.Code {
		t.Fatalf("unexpected login result %+v", res)
	}

	// Same device again is idempotent.
	if _, err := svc.AuthenticateDevice(ctx, token.Code, "D1"); err != nil {
		t.Fatalf("repeat login: %v", err)
	}

	if _, err := svc.AuthenticateDevice(ctx, token.Code, "D2"); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch, got %v", err)
	}
	if err := svc.Verify(ctx, token.Code, "D1"); err != nil {
		t.Fatalf("verify bound device: %v", err)
	}
	if err := svc.Verify(ctx, token.Code, "D2"); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch for D2, got %v", err)
	}
}

func TestAuthenticateDeviceFailures(t *testing.T) {
	ctx := context.Background()
	clock := newClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := newTestTokenService(t, clock)

	if _, err := svc.AuthenticateDevice(ctx, "ARB-NOPE-NOPE", "D1"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := svc.AuthenticateDevice(ctx, "", "D1"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}

	inactive, _ := svc.Mint(ctx, "Store", "1m")
	if err := svc.SetActive(ctx, inactive.Code, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if _, err := svc.AuthenticateDevice(ctx, inactive.Code, "D1"); !errors.Is(err, ErrTokenInactive) {
		t.Fatalf("expected ErrTokenInactive, got %v", err)
	}

	expiring, _ := svc.Mint(ctx, "Store", "1m")
	clock.Advance(60 * 24 * time.Hour)
	if _, err := svc.AuthenticateDevice(ctx, expiring.Code, "D1"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyUnboundTokenFails(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, newClock(time.Now()))

	token, _ := svc.Mint(ctx, "Store", "1m")
	if err := svc.Verify(ctx, token.Code, "D1"); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected ErrDeviceMismatch for unbound token, got %v", err)
	}
	if err := svc.Verify(ctx, "ARB-0000-0000", "D1"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyInactiveBoundToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, newClock(time.Now()))

	token, _ := svc.Mint(ctx, "Store", "1m")
	if _, err := svc.AuthenticateDevice(ctx, token.Code, "D1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.SetActive(ctx, token.Code, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if err := svc.Verify(ctx, token.Code, "D1"); !errors.Is(err, ErrTokenInactive) {
		t.Fatalf("expected ErrTokenInactive, got %v", err)
	}
}

func TestResetDeviceLockAllowsRebind(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, newClock(time.Now()))

	token, _ := svc.Mint(ctx, "Store", "6m")
	if _, err := svc.AuthenticateDevice(ctx, token.Code, "D1"); err != nil {
		t.Fatalf("login D1: %v", err)
	}
	if err := svc.ResetDeviceLock(ctx, token.Code); err != nil {
		t.Fatalf("ResetDeviceLock: %v", err)
	}
	if _, err := svc.AuthenticateDevice(ctx, token.Code, "D2"); err != nil {
		t.Fatalf("login D2 after reset: %v", err)
	}
	if _, err := svc.AuthenticateDevice(ctx, token.Code, "D1"); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("expected D1 to be locked out, got %v", err)
	}

	if err := svc.ResetDeviceLock(ctx, "ARB-MISS-ING0"); !errors.Is(err, ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestConcurrentLoginsBindExactlyOneDevice(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, newClock(time.Now()))

	token, _ := svc.Mint(ctx, "Store", "1m")

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, device := range []string{"D1", "D2"} {
		wg.Add(1)
		go func(i int, device string) {
			defer wg.Done()
			_, results[i] = svc.AuthenticateDevice(ctx, token.Code, device)
		}(i, device)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrDeviceMismatch):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one device to bind, got %d", succeeded)
	}
}

func TestListTokensInIssueOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestTokenService(t, newClock(time.Now()))

	first, _ := svc.Mint(ctx, "First", "1m")
	second, _ := svc.Mint(ctx, "Second", "1y")

	tokens, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tokens) != 2 || tokens[0].Code != first.Code || tokens[1].Code != second.Code {
		t.Fatalf("unexpected token list %+v", tokens)
	}
	if tokens[1].Duration != models.PlanOneYear {
		t.Fatalf("expected duration 1y, got %s", tokens[1].Duration)
	}
}
