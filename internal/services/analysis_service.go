// Package services – AnalysisService
//
// This file implements the AnalysisService, the orchestrator behind the
// analyze endpoint. It validates handles, enforces the daily usage quota,
// drives the AI retrieval client, and persists successful reports to the
// cache as a detached best-effort side effect. Every outcome, including
// errors raised anywhere below it, is folded into a single
// domain.AnalysisResult value; the service never returns an error to its
// caller from Analyze.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/growthlens/go-growth-backend/internal/domain"
	"github.com/growthlens/go-growth-backend/internal/handle"
	"github.com/growthlens/go-growth-backend/internal/xai"
)

// analysesTotal counts analysis requests by type and outcome. Outcomes:
// success, validation_error, rate_limited, retrieval_error.
var analysesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analysis_requests_total",
		Help: "Total number of growth-report analysis requests.",
	},
	[]string{"type", "outcome"},
)

func init() {
	prometheus.MustRegister(analysesTotal)
}

// Retriever is the AI retrieval contract consumed by the service.
// Implementations must be safe for concurrent use and honor ctx.
type Retriever interface {
	// Analyze returns the generated report text for req.
	Analyze(ctx context.Context, req domain.AnalysisRequest) (string, error)
}

// UsageLimiter decides and records daily quota consumption per client IP.
type UsageLimiter interface {
	// Check decides admission without consuming quota.
	Check(ctx context.Context, ip string) (domain.UsageResult, error)
	// Increment consumes one unit of quota.
	Increment(ctx context.Context, ip string) error
}

// ReportStore is the report cache contract consumed by the service.
type ReportStore interface {
	// Store persists a report and re-points the handle's latest record.
	Store(ctx context.Context, handle, report string, analysisType domain.AnalysisType, competitorHandle string) error
	// Get looks up the report for the exact parameter combination.
	Get(ctx context.Context, handle string, analysisType domain.AnalysisType, competitorHandle string) (*domain.StoredReport, error)
	// Latest returns the most recently stored report for handle.
	Latest(ctx context.Context, handle string) (*domain.StoredReport, error)
	// RecordRecent pushes an entry onto the recently-analyzed feed.
	RecordRecent(ctx context.Context, handle string, analysisType domain.AnalysisType) error
	// Recent returns the newest feed entries.
	Recent(ctx context.Context, limit int) ([]domain.RecentAnalysis, error)
	// Configured reports whether a backing store is present.
	Configured() bool
}

// AnalysisService orchestrates report generation and read-side lookups.
type AnalysisService struct {
	// Limiter enforces the daily free quota.
	Limiter UsageLimiter
	// Reports is the report cache.
	Reports ReportStore
	// Retriever produces report text from the generative API.
	Retriever Retriever

	// SideEffectTimeout bounds the detached cache/usage writes.
	SideEffectTimeout time.Duration

	// spawn runs a detached side effect; replaced in tests to run inline.
	spawn func(fn func())
}

// NewAnalysisService constructs an AnalysisService with sane defaults for
// the detached side-effect handling.
func NewAnalysisService(limiter UsageLimiter, reports ReportStore, retriever Retriever) *AnalysisService {
	return &AnalysisService{
		Limiter:           limiter,
		Reports:           reports,
		Retriever:         retriever,
		SideEffectTimeout: 15 * time.Second,
		spawn:             func(fn func()) { go fn() },
	}
}

// Analyze runs the full pipeline for one report request. The result is
// always well-formed: a Success carrying the report text, or a Failure
// carrying a human-readable reason (plus quota info when rate limited).
// Cache and usage writes happen off the response path and their failures
// are logged, never surfaced.
func (s *AnalysisService) Analyze(ctx context.Context, clientIP, rawHandle string, analysisType domain.AnalysisType, rawCompetitor string) domain.AnalysisResult {
	cleanHandle, err := handle.Validate(rawHandle)
	if err != nil {
		return s.failure(cleanHandle, analysisType, err.Error(), "validation_error")
	}

	if !analysisType.Valid() {
		return s.failure(cleanHandle, analysisType, ErrUnknownAnalysisType.Error(), "validation_error")
	}

	// Competitor handle is present if and only if the type needs one.
	competitor := ""
	if analysisType.NeedsCompetitor() {
		if strings.TrimSpace(rawCompetitor) == "" {
			return s.failure(cleanHandle, analysisType, ErrCompetitorRequired.Error(), "validation_error")
		}
		cleanCompetitor, err := handle.Validate(rawCompetitor)
		if err != nil {
			return s.failure(cleanHandle, analysisType, fmt.Sprintf("Competitor handle error: %s", err), "validation_error")
		}
		competitor = cleanCompetitor
	}

	usage, err := s.Limiter.Check(ctx, clientIP)
	if err != nil {
		// A broken quota store must not block users: admit and move on.
		log.Warn().Err(err).Msg("usage check failed, admitting request")
	} else if !usage.Allowed {
		remaining := usage.Remaining
		res := s.failure(cleanHandle, analysisType,
			fmt.Sprintf("Daily limit of %d free reports reached. Try again after %s.",
				usage.Limit, usage.ResetAt.Format("15:04 MST")),
			"rate_limited")
		res.RateLimited = true
		res.Remaining = &remaining
		return res
	}

	// Quota is consumed per admitted request, off the response path.
	s.detach("usage increment", func(dctx context.Context) error {
		return s.Limiter.Increment(dctx, clientIP)
	})

	req := domain.AnalysisRequest{
		Handle:           cleanHandle,
		AnalysisType:     analysisType,
		CompetitorHandle: competitor,
	}
	report, err := s.Retriever.Analyze(ctx, req)
	if err != nil {
		var apiErr *xai.APIError
		msg := ""
		if errors.As(err, &apiErr) {
			msg = apiErr.Message
		} else {
			msg = fmt.Sprintf("Error: %v", err)
		}
		return s.failure(cleanHandle, analysisType, msg, "retrieval_error")
	}

	// Persist and publish off the response path; the caller gets the
	// report regardless of how these fare.
	s.detach("report store", func(dctx context.Context) error {
		if err := s.Reports.Store(dctx, cleanHandle, report, analysisType, competitor); err != nil {
			return err
		}
		return s.Reports.RecordRecent(dctx, cleanHandle, analysisType)
	})

	analysesTotal.WithLabelValues(string(analysisType), "success").Inc()
	return domain.AnalysisResult{
		Success:      true,
		Report:       report,
		Handle:       cleanHandle,
		AnalysisType: analysisType,
	}
}

// Report is the read-only companion lookup: the exact report when an
// analysis type is supplied, otherwise the handle's most recent one.
// A clean miss is (nil, nil).
func (s *AnalysisService) Report(ctx context.Context, rawHandle string, analysisType domain.AnalysisType, rawCompetitor string) (*domain.StoredReport, error) {
	cleanHandle, err := handle.Validate(rawHandle)
	if err != nil {
		return nil, err
	}
	if analysisType == "" {
		return s.Reports.Latest(ctx, cleanHandle)
	}
	if !analysisType.Valid() {
		return nil, ErrUnknownAnalysisType
	}
	competitor := ""
	if rawCompetitor != "" {
		if competitor, err = handle.Validate(rawCompetitor); err != nil {
			return nil, fmt.Errorf("competitor handle error: %w", err)
		}
	}
	return s.Reports.Get(ctx, cleanHandle, analysisType, competitor)
}

// Recent returns the recently-analyzed feed. Backend faults degrade to an
// empty feed; they are logged, never surfaced.
func (s *AnalysisService) Recent(ctx context.Context, limit int) []domain.RecentAnalysis {
	entries, err := s.Reports.Recent(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("recent feed lookup failed")
		return []domain.RecentAnalysis{}
	}
	return entries
}

// StorageConfigured reports whether the backing report store is present;
// used by the health endpoint.
func (s *AnalysisService) StorageConfigured() bool {
	return s.Reports.Configured()
}

// failure builds the failure side of the result union and counts it.
func (s *AnalysisService) failure(cleanHandle string, analysisType domain.AnalysisType, msg, outcome string) domain.AnalysisResult {
	analysesTotal.WithLabelValues(string(analysisType), outcome).Inc()
	return domain.AnalysisResult{
		Success:      false,
		Error:        msg,
		Handle:       cleanHandle,
		AnalysisType: analysisType,
	}
}

// detach runs fn on its own context so it outlives the request; failures
// are only observable in logs.
func (s *AnalysisService) detach(name string, fn func(context.Context) error) {
	s.spawn(func() {
		dctx, cancel := context.WithTimeout(context.Background(), s.SideEffectTimeout)
		defer cancel()
		if err := fn(dctx); err != nil {
			log.Error().Err(err).Str("task", name).Msg("detached side effect failed")
		}
	})
}
