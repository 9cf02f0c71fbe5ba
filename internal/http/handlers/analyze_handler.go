// Analysis HTTP handlers.
//
// This file exposes the report-generation endpoint:
//   - POST /analyze
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. The analysis outcome is returned
// as the domain result union (success flag, report text or error message) so
// frontends can render it without inspecting status codes, but the status code
// still reflects the outcome for proxies and monitoring.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/growthlens/go-growth-backend/internal/domain"
	"github.com/growthlens/go-growth-backend/internal/handle"
)

//
// Service contracts (context-aware)
//

// AnalysisService defines the report operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AnalysisService interface {
	// Analyze generates a growth report for a handle, enforcing the daily
	// quota keyed by clientIP. It never returns an error; failures are
	// carried in the result.
	Analyze(ctx context.Context, clientIP, rawHandle string, analysisType domain.AnalysisType, rawCompetitor string) domain.AnalysisResult
	// Report looks up a cached report. A clean miss is (nil, nil).
	Report(ctx context.Context, rawHandle string, analysisType domain.AnalysisType, rawCompetitor string) (*domain.StoredReport, error)
	// Recent returns the newest-first feed of completed analyses.
	Recent(ctx context.Context, limit int) []domain.RecentAnalysis
	// StorageConfigured reports whether the report cache has a backing store.
	StorageConfigured() bool
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for analysis, report lookup, and the
// recent feed. It depends on an abstract service interface to keep transport
// concerns separate from business logic.
type Handlers struct {
	svc AnalysisService
}

// New constructs and returns a Handlers instance bound to the given service.
func New(svc AnalysisService) *Handlers {
	return &Handlers{svc: svc}
}

//
// DTOs
//

// AnalyzeRequest is the JSON payload for requesting a growth report.
type AnalyzeRequest struct {
	// Handle is the X handle to analyze, with or without a leading @.
	Handle string `json:"handle"`
	// AnalysisType selects the report flavor (see domain.AnalysisType).
	AnalysisType string `json:"analysisType"`
	// CompetitorHandle is required for competitor comparisons, ignored otherwise.
	CompetitorHandle string `json:"competitorHandle"`
}

//
// Handlers
//

// Analyze handles POST /analyze.
//
// Input problems (bad handle, unknown analysis type, missing competitor)
// return 400 with a failure result. A quota rejection returns 429 with the
// remaining count. Upstream retrieval failures return 502. A generated
// report returns 200.
func (h *Handlers) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	analysisType, known := domain.ParseAnalysisType(strings.TrimSpace(req.AnalysisType))

	// Reject unusable input here so the status code can distinguish caller
	// mistakes from upstream failures. The service re-checks the same rules.
	cleanHandle, err := handle.Validate(req.Handle)
	if err != nil {
		ok(c, http.StatusBadRequest, failureResult(cleanHandle, analysisType, err.Error()))
		return
	}
	if !known {
		ok(c, http.StatusBadRequest, failureResult(cleanHandle, analysisType, "unknown analysis type"))
		return
	}
	if analysisType.NeedsCompetitor() && strings.TrimSpace(req.CompetitorHandle) == "" {
		ok(c, http.StatusBadRequest, failureResult(cleanHandle, analysisType, "please enter a competitor handle for comparison"))
		return
	}

	res := h.svc.Analyze(c.Request.Context(), c.ClientIP(), req.Handle, analysisType, req.CompetitorHandle)

	switch {
	case res.RateLimited:
		ok(c, http.StatusTooManyRequests, res)
	case !res.Success:
		ok(c, http.StatusBadGateway, res)
	default:
		ok(c, http.StatusOK, res)
	}
}

// failureResult builds the failure side of the result union for responses
// produced before the service is involved.
func failureResult(cleanHandle string, analysisType domain.AnalysisType, msg string) domain.AnalysisResult {
	return domain.AnalysisResult{
		Success:      false,
		Error:        msg,
		Handle:       cleanHandle,
		AnalysisType: analysisType,
	}
}
