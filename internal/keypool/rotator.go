package keypool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrNoAccounts is returned by Acquire when no credentials are configured.
var ErrNoAccounts = errors.New("keypool: no accounts configured")

const (
	defaultCooldown = 90 * time.Second
	// wakeMargin pads the wait past the earliest cooldown expiry so the
	// rescan does not race the expiry instant.
	wakeMargin = time.Second
)

// Rotator hands out API keys from the pool: round-robin within an account,
// skipping accounts that are cooling down after a quota hit. All state is
// guarded by a mutex so callers may share one Rotator across goroutines.
type Rotator struct {
	logger *slog.Logger

	mu        sync.Mutex
	accounts  []Account
	current   int
	keyIdx    []int
	coolUntil []time.Time
	cooldown  time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRotator(accounts []Account, logger *slog.Logger) *Rotator {
	// An account without keys can never serve an Acquire; drop it up front.
	usable := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if len(a.Keys) > 0 {
			usable = append(usable, a)
		}
	}
	return &Rotator{
		logger:    logger,
		accounts:  usable,
		keyIdx:    make([]int, len(usable)),
		coolUntil: make([]time.Time, len(usable)),
		cooldown:  defaultCooldown,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// AccountCount reports the number of usable accounts in the pool.
func (r *Rotator) AccountCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

// Acquire returns the next usable key. Selection scans circularly from the
// current account for the first one off cooldown and advances that
// account's key index for the next call. When every account is cooling
// down, Acquire waits for the earliest expiry (plus a margin) on a single
// timer and rescans; the wait is cancellable through ctx. There is no
// internal attempt limit — the caller's retry budget bounds total work.
func (r *Rotator) Acquire(ctx context.Context) (string, error) {
	for {
		r.mu.Lock()
		if len(r.accounts) == 0 {
			r.mu.Unlock()
			return "", ErrNoAccounts
		}

		now := r.now()
		found := -1
		for range r.accounts {
			if r.coolUntil[r.current].IsZero() || now.After(r.coolUntil[r.current]) {
				found = r.current
				break
			}
			r.current = (r.current + 1) % len(r.accounts)
		}

		if found >= 0 {
			acc := r.accounts[found]
			key := acc.Keys[r.keyIdx[found]]
			r.keyIdx[found] = (r.keyIdx[found] + 1) % len(acc.Keys)
			r.mu.Unlock()
			return key, nil
		}

		earliest := r.coolUntil[0]
		for _, t := range r.coolUntil[1:] {
			if t.Before(earliest) {
				earliest = t
			}
		}
		wait := earliest.Sub(now) + wakeMargin
		r.mu.Unlock()

		r.logger.Warn("all accounts cooling down", "wait", wait.Round(time.Millisecond))

		if err := r.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
}

// ReportExhausted marks the current account as quota-exhausted: the
// cooldown window restarts from now and selection moves to the next
// account, so the very next Acquire does not re-pick the account that just
// failed.
func (r *Rotator) ReportExhausted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.accounts) == 0 {
		return
	}
	acc := r.accounts[r.current]
	r.coolUntil[r.current] = r.now().Add(r.cooldown)
	r.current = (r.current + 1) % len(r.accounts)
	r.logger.Warn("account exhausted, rotating",
		"account", acc.ID,
		"cooldown", r.cooldown,
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
