// Package cache implements the report cache on top of the kv.Store port.
//
// Reports are stored under a key derived deterministically from the handle
// and the analysis parameters, with a fixed retention window. Every store
// also refreshes a secondary "latest" pointer per handle and the public
// recently-analyzed feed. The cache degrades to always-miss when no store
// is configured: lookups return clean misses and writes are no-ops.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/growthlens/go-growth-backend/internal/domain"
	"github.com/growthlens/go-growth-backend/internal/kv"
)

const (
	// DefaultTTL is the report retention window.
	DefaultTTL = 90 * 24 * time.Hour

	// DefaultRecentMax caps the recently-analyzed feed.
	DefaultRecentMax = 20

	// recentKey is the list key backing the recently-analyzed feed.
	recentKey = "recent:analyses"
)

// Reports is the report cache. The zero value is not usable; construct with
// NewReports. A nil store is valid and means "unconfigured".
type Reports struct {
	store     kv.Store
	ttl       time.Duration
	recentMax int64

	now func() time.Time // test seam
}

// NewReports builds a report cache over store. store may be nil, in which
// case the cache is unconfigured and every lookup misses. Non-positive ttl
// and recentMax fall back to the defaults.
func NewReports(store kv.Store, ttl time.Duration, recentMax int) *Reports {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if recentMax <= 0 {
		recentMax = DefaultRecentMax
	}
	return &Reports{
		store:     store,
		ttl:       ttl,
		recentMax: int64(recentMax),
		now:       time.Now,
	}
}

// Configured reports whether a backing store is present. Callers are
// expected to treat false as "cache always misses", which the methods here
// already implement.
func (c *Reports) Configured() bool { return c.store != nil }

// Key derives the cache key for a (handle, analysis type, competitor)
// combination. Handles are lowercased with a leading "@" stripped, so equal
// parameters always map to the same key and each parameter combination owns
// exactly one entry.
func Key(handle string, analysisType domain.AnalysisType, competitorHandle string) string {
	base := fmt.Sprintf("report:%s:%s", normalize(handle), analysisType)
	if competitorHandle != "" {
		return base + ":vs:" + normalize(competitorHandle)
	}
	return base
}

func normalize(handle string) string {
	return strings.ToLower(strings.TrimPrefix(handle, "@"))
}

func latestKey(handle string) string {
	return "latest:" + normalize(handle)
}

// Store persists the report under its derived key and then re-points the
// handle's latest record at it. The two writes share the retention TTL and
// are not atomic: a crash in between leaves a stale or missing latest
// pointer while the exact-parameter lookup keeps working.
func (c *Reports) Store(ctx context.Context, handle, report string, analysisType domain.AnalysisType, competitorHandle string) error {
	if c.store == nil {
		return nil
	}

	key := Key(handle, analysisType, competitorHandle)
	rec := domain.StoredReport{
		Handle:           handle,
		Report:           report,
		AnalysisType:     analysisType,
		CompetitorHandle: competitorHandle,
		CreatedAt:        c.now().UTC(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache: marshal report: %w", err)
	}
	if err := c.store.Set(ctx, key, string(payload), c.ttl); err != nil {
		return err
	}

	ptr, err := json.Marshal(domain.LatestPointer{
		Key:              key,
		AnalysisType:     analysisType,
		CompetitorHandle: competitorHandle,
	})
	if err != nil {
		return fmt.Errorf("cache: marshal latest pointer: %w", err)
	}
	return c.store.Set(ctx, latestKey(handle), string(ptr), c.ttl)
}

// Get looks up the report stored for the exact parameter combination.
// A miss (including the unconfigured case) returns (nil, nil).
func (c *Reports) Get(ctx context.Context, handle string, analysisType domain.AnalysisType, competitorHandle string) (*domain.StoredReport, error) {
	if c.store == nil {
		return nil, nil
	}
	return c.getByKey(ctx, Key(handle, analysisType, competitorHandle))
}

// Latest returns the most recently stored report for handle regardless of
// analysis type, by dereferencing the latest pointer. Absent if either the
// pointer or the report it references is gone.
func (c *Reports) Latest(ctx context.Context, handle string) (*domain.StoredReport, error) {
	if c.store == nil {
		return nil, nil
	}

	raw, err := c.store.Get(ctx, latestKey(handle))
	if err == kv.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ptr domain.LatestPointer
	if err := json.Unmarshal([]byte(raw), &ptr); err != nil {
		return nil, fmt.Errorf("cache: decode latest pointer: %w", err)
	}
	return c.getByKey(ctx, ptr.Key)
}

func (c *Reports) getByKey(ctx context.Context, key string) (*domain.StoredReport, error) {
	raw, err := c.store.Get(ctx, key)
	if err == kv.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec domain.StoredReport
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("cache: decode report %s: %w", key, err)
	}
	return &rec, nil
}

// RecordRecent pushes an entry onto the recently-analyzed feed, newest
// first, trimming the feed to its cap.
func (c *Reports) RecordRecent(ctx context.Context, handle string, analysisType domain.AnalysisType) error {
	if c.store == nil {
		return nil
	}
	payload, err := json.Marshal(domain.RecentAnalysis{
		Handle:       normalize(handle),
		AnalysisType: analysisType,
		CreatedAt:    c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("cache: marshal recent entry: %w", err)
	}
	return c.store.PushCapped(ctx, recentKey, string(payload), c.recentMax, c.ttl)
}

// Recent returns up to limit entries of the recently-analyzed feed, newest
// first. Undecodable entries are skipped rather than failing the whole feed.
func (c *Reports) Recent(ctx context.Context, limit int) ([]domain.RecentAnalysis, error) {
	if c.store == nil {
		return []domain.RecentAnalysis{}, nil
	}
	if limit <= 0 || int64(limit) > c.recentMax {
		limit = int(c.recentMax)
	}
	raws, err := c.store.Range(ctx, recentKey, 0, int64(limit)-1)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RecentAnalysis, 0, len(raws))
	for _, raw := range raws {
		var rec domain.RecentAnalysis
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
