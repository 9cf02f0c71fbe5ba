// Package domain defines the core types exchanged between the analysis
// service, the report cache, the usage limiter, and the HTTP layer. These
// types carry no behavior beyond parsing/validation helpers and are safe to
// serialize as-is.
package domain

import "time"

// AnalysisType identifies one of the fixed report templates.
type AnalysisType string

// Supported analysis types.
const (
	// AnalysisFullAudit is the comprehensive growth audit.
	AnalysisFullAudit AnalysisType = "full-growth-audit"
	// AnalysisContentStrategy focuses on content themes, formats, and hooks.
	AnalysisContentStrategy AnalysisType = "content-strategy"
	// AnalysisEngagement digs into engagement patterns and community building.
	AnalysisEngagement AnalysisType = "engagement-analysis"
	// AnalysisCompetitor compares the handle against a competitor handle.
	AnalysisCompetitor AnalysisType = "competitor-comparison"
)

// analysisTypeLabels maps each type to its human-readable name.
var analysisTypeLabels = map[AnalysisType]string{
	AnalysisFullAudit:       "Full Growth Audit",
	AnalysisContentStrategy: "Content Strategy",
	AnalysisEngagement:      "Engagement Analysis",
	AnalysisCompetitor:      "Competitor Comparison",
}

// ParseAnalysisType validates a raw string against the supported analysis
// types. The second return value reports whether the input was recognized.
func ParseAnalysisType(s string) (AnalysisType, bool) {
	t := AnalysisType(s)
	_, ok := analysisTypeLabels[t]
	return t, ok
}

// Valid reports whether t is one of the supported analysis types.
func (t AnalysisType) Valid() bool {
	_, ok := analysisTypeLabels[t]
	return ok
}

// Label returns the human-readable name for t, or the raw value when t is
// not a known type.
func (t AnalysisType) Label() string {
	if l, ok := analysisTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

// NeedsCompetitor reports whether t requires a competitor handle.
// Invariant: a competitor handle is present if and only if this returns true.
func (t AnalysisType) NeedsCompetitor() bool {
	return t == AnalysisCompetitor
}

// AnalysisRequest is a validated request for a growth report.
type AnalysisRequest struct {
	Handle           string       `json:"handle"`
	AnalysisType     AnalysisType `json:"analysis_type"`
	CompetitorHandle string       `json:"competitor_handle,omitempty"`
}

// AnalysisResult is the single outcome value returned by the analysis
// service. Exactly one of the success/failure sides is populated; the
// service never returns an error alongside it.
//
// Fields:
//   - Success: discriminator between the two sides of the union.
//   - Report: the generated report text (success only).
//   - Error: human-readable failure reason (failure only).
//   - RateLimited: set when the failure was a daily-quota rejection.
//   - Remaining: reports left today; only meaningful when RateLimited is set.
type AnalysisResult struct {
	Success      bool         `json:"success"`
	Report       string       `json:"report,omitempty"`
	Error        string       `json:"error,omitempty"`
	Handle       string       `json:"handle"`
	AnalysisType AnalysisType `json:"analysis_type"`
	RateLimited  bool         `json:"rate_limited,omitempty"`
	Remaining    *int         `json:"remaining,omitempty"`
}

// StoredReport is a generated report persisted by the report cache.
// Created on successful analysis, it expires after the cache retention
// window and is superseded by newer reports stored under the same key.
type StoredReport struct {
	Handle           string       `json:"handle"`
	Report           string       `json:"report"`
	AnalysisType     AnalysisType `json:"analysisType"`
	CompetitorHandle string       `json:"competitorHandle,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// LatestPointer is the secondary cache record mapping a handle to the key
// of its most recently stored report.
type LatestPointer struct {
	Key              string       `json:"key"`
	AnalysisType     AnalysisType `json:"analysisType"`
	CompetitorHandle string       `json:"competitorHandle,omitempty"`
}

// RecentAnalysis is one entry of the public recently-analyzed feed. It
// intentionally carries no report text.
type RecentAnalysis struct {
	Handle       string       `json:"handle"`
	AnalysisType AnalysisType `json:"analysis_type"`
	CreatedAt    time.Time    `json:"created_at"`
}

// UsageResult is the admission decision of the daily usage limiter.
type UsageResult struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"` // next UTC midnight
}
