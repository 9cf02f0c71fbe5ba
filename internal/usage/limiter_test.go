package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/growthlens/go-growth-backend/internal/kv"
)

// ----- Fake store -----

type entry struct {
	value string
	ttl   time.Duration
}

type fakeStore struct {
	data   map[string]entry
	getErr error
}

func newFakeStore() *fakeStore { return &fakeStore{data: make(map[string]entry)} }

func (s *fakeStore) Get(_ context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	e, ok := s.data[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return e.value, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.data[key] = entry{value: value, ttl: ttl}
	return nil
}

func (s *fakeStore) PushCapped(context.Context, string, string, int64, time.Duration) error {
	return nil
}

func (s *fakeStore) Range(context.Context, string, int64, int64) ([]string, error) {
	return nil, nil
}

// ----- Tests -----

// fixed "now": 2026-03-01 21:30 UTC, 2.5 hours before midnight.
var fixedNow = time.Date(2026, 3, 1, 21, 30, 0, 0, time.UTC)

func newTestLimiter(store kv.Store) *Limiter {
	l := New(store, 0)
	l.now = func() time.Time { return fixedNow }
	return l
}

func TestCheckAdmitsUpToLimitThenDenies(t *testing.T) {
	store := newFakeStore()
	l := newTestLimiter(store)
	ctx := context.Background()

	for i := 0; i < DefaultDailyLimit; i++ {
		res, err := l.Check(ctx, "203.0.113.7")
		if err != nil {
			t.Fatalf("Check #%d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("Check #%d: denied before reaching the limit", i)
		}
		if res.Remaining != DefaultDailyLimit-i {
			t.Errorf("Check #%d: remaining = %d, want %d", i, res.Remaining, DefaultDailyLimit-i)
		}
		if err := l.Increment(ctx, "203.0.113.7"); err != nil {
			t.Fatalf("Increment #%d: %v", i, err)
		}
	}

	res, err := l.Check(ctx, "203.0.113.7")
	if err != nil {
		t.Fatalf("final Check: %v", err)
	}
	if res.Allowed {
		t.Error("expected denial after exhausting the limit")
	}
	if res.Remaining != 0 {
		t.Errorf("remaining = %d, want 0 floor", res.Remaining)
	}
	if res.Limit != DefaultDailyLimit {
		t.Errorf("limit = %d", res.Limit)
	}
}

func TestRemainingFloorsAtZero(t *testing.T) {
	store := newFakeStore()
	l := newTestLimiter(store)
	ctx := context.Background()

	// Simulate the accepted race over-admitting past the limit.
	for i := 0; i < DefaultDailyLimit+2; i++ {
		if err := l.Increment(ctx, "ip"); err != nil {
			t.Fatal(err)
		}
	}
	res, err := l.Check(ctx, "ip")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Remaining != 0 {
		t.Errorf("res = %+v", res)
	}
}

func TestIncrementTTLRunsToUTCMidnight(t *testing.T) {
	store := newFakeStore()
	l := newTestLimiter(store)

	if err := l.Increment(context.Background(), "198.51.100.1"); err != nil {
		t.Fatal(err)
	}

	key := "usage:198.51.100.1:2026-03-01"
	e, ok := store.data[key]
	if !ok {
		t.Fatalf("counter key missing; have %v", keys(store.data))
	}
	if e.value != "1" {
		t.Errorf("count = %q, want 1", e.value)
	}
	if want := 2*time.Hour + 30*time.Minute; e.ttl != want {
		t.Errorf("ttl = %v, want %v", e.ttl, want)
	}
}

func TestKeySanitizesAddress(t *testing.T) {
	store := newFakeStore()
	l := newTestLimiter(store)
	if err := l.Increment(context.Background(), "2001:db8::1%eth0"); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.data["usage:2001:db8::1_eth0:2026-03-01"]; !ok {
		t.Errorf("sanitized key missing; have %v", keys(store.data))
	}
}

func TestCountersAreScopedPerIP(t *testing.T) {
	store := newFakeStore()
	l := newTestLimiter(store)
	ctx := context.Background()

	for i := 0; i < DefaultDailyLimit; i++ {
		if err := l.Increment(ctx, "first"); err != nil {
			t.Fatal(err)
		}
	}
	res, err := l.Check(ctx, "second")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.Remaining != DefaultDailyLimit {
		t.Errorf("unrelated ip affected: %+v", res)
	}
}

func TestNilStoreGrantsOpenAccess(t *testing.T) {
	l := newTestLimiter(nil)
	ctx := context.Background()

	res, err := l.Check(ctx, "anyone")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.Remaining != DefaultDailyLimit {
		t.Errorf("res = %+v, want open access", res)
	}
	if err := l.Increment(ctx, "anyone"); err != nil {
		t.Errorf("Increment should be a no-op: %v", err)
	}
	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !res.ResetAt.Equal(want) {
		t.Errorf("resetAt = %v, want %v", res.ResetAt, want)
	}
}

func TestCheckSurfacesStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	l := newTestLimiter(store)

	if _, err := l.Check(context.Background(), "ip"); err == nil {
		t.Error("expected store error to surface for the caller to swallow")
	}
}

func keys(m map[string]entry) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
