// Report lookup and feed HTTP handlers.
//
// This file exposes the read side of the API:
//   - GET /reports/{handle}   (cached report lookup, exact or latest)
//   - GET /recent-reports     (newest-first feed of completed analyses)
//   - GET /health             (liveness plus storage status)
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/growthlens/go-growth-backend/internal/domain"
	"github.com/growthlens/go-growth-backend/internal/handle"
	"github.com/growthlens/go-growth-backend/internal/services"
	"github.com/growthlens/go-growth-backend/internal/utils"
)

// RecentReportsResponse wraps the recent-analyses feed.
type RecentReportsResponse struct {
	Analyses []domain.RecentAnalysis `json:"analyses"`
}

// HealthResponse reports process liveness and storage configuration.
type HealthResponse struct {
	Status    string        `json:"status"`
	Storage   StorageStatus `json:"storage"`
	Timestamp time.Time     `json:"timestamp"`
}

// StorageStatus indicates whether the report cache has a backing store,
// with a hint for the operator when it does not.
type StorageStatus struct {
	Configured bool   `json:"configured"`
	Message    string `json:"message"`
}

const (
	storageReadyMsg   = "Upstash Redis is connected! Reports will be persisted."
	storageMissingMsg = "Upstash Redis NOT configured. Set KV_REST_API_URL and KV_REST_API_TOKEN in the environment."
)

// GetReport handles GET /reports/:handle.
//
// Without an analysis_type query parameter it returns the handle's most
// recent cached report of any type. With one it returns the exact report
// for that type (plus the competitor query parameter for comparisons).
// A miss returns 404.
func (h *Handlers) GetReport(c *gin.Context) {
	rawHandle := c.Param("handle")
	analysisType := domain.AnalysisType(strings.TrimSpace(c.Query("analysis_type")))
	competitor := c.Query("competitor")

	report, err := h.svc.Report(c.Request.Context(), rawHandle, analysisType, competitor)
	if err != nil {
		if isLookupInputError(err) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeLookupFailed, "report lookup failed")
		return
	}
	if report == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "no report found for this handle")
		return
	}
	ok(c, http.StatusOK, report)
}

// RecentReports handles GET /recent-reports.
//
// The limit query parameter caps the feed size (default 20, max 50). Feed
// errors degrade to an empty list inside the service, so this endpoint
// always returns 200.
func (h *Handlers) RecentReports(c *gin.Context) {
	const (
		defaultLimit = 20
		maxLimit     = 50
	)
	limit := utils.AtoiDefault(c.Query("limit"), defaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	ok(c, http.StatusOK, RecentReportsResponse{Analyses: h.svc.Recent(c.Request.Context(), limit)})
}

// Health handles GET /health. It always returns 200; a missing report store
// only flips the storage flag and message so degraded deployments stay
// visible to operators.
func (h *Handlers) Health(c *gin.Context) {
	configured := h.svc.StorageConfigured()
	msg := storageMissingMsg
	if configured {
		msg = storageReadyMsg
	}
	ok(c, http.StatusOK, HealthResponse{
		Status:    "ok",
		Storage:   StorageStatus{Configured: configured, Message: msg},
		Timestamp: time.Now().UTC(),
	})
}

// isLookupInputError reports whether err stems from caller input rather than
// the store.
func isLookupInputError(err error) bool {
	return errors.Is(err, handle.ErrEmpty) ||
		errors.Is(err, handle.ErrTooLong) ||
		errors.Is(err, handle.ErrInvalidChars) ||
		errors.Is(err, services.ErrUnknownAnalysisType)
}
