// Package usage enforces the per-IP daily quota on free report generation.
//
// Counters live in the shared key-value store under a key derived from the
// caller's network address and the current UTC date, and expire on their own
// at the next UTC midnight. The limiter is best effort: the read-then-write
// increment is not transactional, so two concurrent requests near the limit
// can both be admitted. Without a configured store it grants open access.
package usage

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/growthlens/go-growth-backend/internal/domain"
	"github.com/growthlens/go-growth-backend/internal/kv"
)

// DefaultDailyLimit is the number of free reports per IP per UTC day.
const DefaultDailyLimit = 5

// ipSanitizer keeps address characters that are safe inside a store key.
var ipSanitizer = regexp.MustCompile(`[^a-zA-Z0-9.:]`)

// Limiter tracks daily usage counters. A nil store means unlimited access.
type Limiter struct {
	store kv.Store
	limit int

	now func() time.Time // test seam
}

// New builds a Limiter over store with the given daily limit. store may be
// nil; a non-positive limit falls back to DefaultDailyLimit.
func New(store kv.Store, limit int) *Limiter {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Limiter{store: store, limit: limit, now: time.Now}
}

// Limit returns the configured daily limit.
func (l *Limiter) Limit() int { return l.limit }

// Check decides admission for ip without consuming quota. When no store is
// configured it always admits with the full allowance, so local and degraded
// deployments keep working.
func (l *Limiter) Check(ctx context.Context, ip string) (domain.UsageResult, error) {
	res := domain.UsageResult{
		Allowed:   true,
		Remaining: l.limit,
		Limit:     l.limit,
		ResetAt:   nextMidnightUTC(l.now()),
	}
	if l.store == nil {
		return res, nil
	}

	count, err := l.count(ctx, ip)
	if err != nil {
		return res, err
	}
	res.Allowed = count < l.limit
	res.Remaining = l.limit - count
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res, nil
}

// Increment consumes one unit of quota for ip. The counter is written with
// an expiry at the next UTC midnight so it resets daily without a cron. The
// count is never decremented. No-op without a store.
func (l *Limiter) Increment(ctx context.Context, ip string) error {
	if l.store == nil {
		return nil
	}
	count, err := l.count(ctx, ip)
	if err != nil {
		return err
	}
	now := l.now()
	ttl := nextMidnightUTC(now).Sub(now)
	return l.store.Set(ctx, l.key(ip), strconv.Itoa(count+1), ttl)
}

func (l *Limiter) count(ctx context.Context, ip string) (int, error) {
	raw, err := l.store.Get(ctx, l.key(ip))
	if err == kv.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("usage: corrupt counter %q: %w", raw, err)
	}
	return n, nil
}

// key scopes the counter to the sanitized address and the current UTC date.
func (l *Limiter) key(ip string) string {
	safe := ipSanitizer.ReplaceAllString(ip, "_")
	return fmt.Sprintf("usage:%s:%s", safe, l.now().UTC().Format("2006-01-02"))
}

func nextMidnightUTC(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
