package keypool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testRotator builds a rotator with a controllable clock. Advancing the
// returned *time.Time moves the clock; the sleep hook advances it by the
// requested wait instead of actually sleeping.
func testRotator(t *testing.T, accounts []Account) (*Rotator, *time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	r := NewRotator(accounts, discardLogger())
	r.now = func() time.Time { return now }
	r.sleep = func(_ context.Context, d time.Duration) error {
		now = now.Add(d)
		return nil
	}
	return r, &now
}

func TestAcquire_EmptyPool(t *testing.T) {
	r := NewRotator(nil, discardLogger())
	if _, err := r.Acquire(context.Background()); !errors.Is(err, ErrNoAccounts) {
		t.Fatalf("expected ErrNoAccounts, got %v", err)
	}
}

func TestAcquire_DropsKeylessAccounts(t *testing.T) {
	r := NewRotator([]Account{{ID: "1"}, {ID: "2", Keys: []string{"k"}}}, discardLogger())
	if n := r.AccountCount(); n != 1 {
		t.Fatalf("expected 1 usable account, got %d", n)
	}
	key, err := r.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "k" {
		t.Errorf("expected key from account 2, got %q", key)
	}
}

func TestAcquire_RoundRobinWithinAccount(t *testing.T) {
	r, _ := testRotator(t, []Account{
		{ID: "1", Keys: []string{"a", "b", "c"}},
	})

	counts := map[string]int{}
	var order []string
	for i := 0; i < 9; i++ {
		key, err := r.Acquire(context.Background())
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		counts[key]++
		order = append(order, key)
	}

	for _, k := range []string{"a", "b", "c"} {
		if counts[k] != 3 {
			t.Errorf("key %s dispensed %d times, want 3", k, counts[k])
		}
	}
	for i, k := range order {
		want := []string{"a", "b", "c"}[i%3]
		if k != want {
			t.Errorf("acquire %d: got %s, want %s (cyclic order)", i, k, want)
		}
	}
}

func TestReportExhausted_SkipsCoolingAccount(t *testing.T) {
	r, now := testRotator(t, []Account{
		{ID: "1", Keys: []string{"a1"}},
		{ID: "2", Keys: []string{"b1"}},
	})

	key, err := r.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "a1" {
		t.Fatalf("expected a1 first, got %q", key)
	}

	r.ReportExhausted()

	// Account 1 is cooling down: every acquire within the window must come
	// from account 2.
	for i := 0; i < 5; i++ {
		key, err := r.Acquire(context.Background())
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if key != "b1" {
			t.Errorf("acquire %d during cooldown: got %q, want b1", i, key)
		}
	}

	// Past the cooldown the account is selectable again.
	*now = now.Add(defaultCooldown + time.Second)
	r.ReportExhausted() // cool account 2, pointing selection back at 1
	key, err = r.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "a1" {
		t.Errorf("expected a1 after cooldown expiry, got %q", key)
	}
}

func TestAcquire_WaitsWhenAllCooling(t *testing.T) {
	r, now := testRotator(t, []Account{
		{ID: "1", Keys: []string{"a1"}},
		{ID: "2", Keys: []string{"b1"}},
	})

	var slept []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		*now = now.Add(d)
		return nil
	}

	if _, err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.ReportExhausted() // account 1
	if _, err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.ReportExhausted() // account 2 — now everything is cooling

	key, err := r.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "a1" {
		t.Errorf("expected a1 (earliest expiry) after wait, got %q", key)
	}
	if len(slept) != 1 {
		t.Fatalf("expected exactly one scheduled wait, got %d", len(slept))
	}
	// Account 1 cooled first, so the wait is its remaining window + margin.
	if slept[0] != defaultCooldown+wakeMargin {
		t.Errorf("wait = %v, want %v", slept[0], defaultCooldown+wakeMargin)
	}
}

func TestAcquire_CancelledDuringWait(t *testing.T) {
	r, _ := testRotator(t, []Account{
		{ID: "1", Keys: []string{"a1"}},
	})
	r.sleep = sleepContext // real wait so cancellation is exercised

	if _, err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.ReportExhausted()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReportExhausted_ResetsCooldownForward(t *testing.T) {
	r, now := testRotator(t, []Account{
		{ID: "1", Keys: []string{"a1"}},
		{ID: "2", Keys: []string{"b1"}},
	})

	if _, err := r.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.ReportExhausted()
	first := r.coolUntil[0]

	// A second exhaustion of the same account while it is already cooling
	// moves the window forward from now, never backward.
	*now = now.Add(30 * time.Second)
	r.mu.Lock()
	r.current = 0
	r.mu.Unlock()
	r.ReportExhausted()
	second := r.coolUntil[0]

	if !second.After(first) {
		t.Errorf("cooldown did not move forward: first=%v second=%v", first, second)
	}
}
