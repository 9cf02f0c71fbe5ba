package xai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/growthlens/go-growth-backend/internal/domain"
	"github.com/growthlens/go-growth-backend/internal/prompts"
)

// Defaults for the direct strategy.
const (
	DefaultBaseURL     = "https://api.x.ai/v1"
	DefaultModel       = "grok-4-1-fast-reasoning"
	DefaultTimeout     = 120 * time.Second
	DefaultMaxAttempts = 10

	// retryDelay is the flat pause between agent-loop turns that produced
	// neither text nor a completed status.
	retryDelay = 500 * time.Millisecond

	// maxErrorBody caps raw upstream error bodies embedded in messages.
	maxErrorBody = 200

	// maxDebugBody caps raw 2xx payloads embedded in diagnostics.
	maxDebugBody = 800
)

// Config carries the injected settings for a Client. Only APIKey (or
// RealtimeURL) is strictly required to do useful work; everything else has a
// default.
type Config struct {
	// APIKey is the bearer credential for the direct API. Its absence is a
	// configuration error raised before any network call.
	APIKey string
	// BaseURL overrides the direct API root (no trailing slash).
	BaseURL string
	// Model is the model identifier sent with every request.
	Model string
	// RealtimeURL, when set, selects the realtime-service strategy with
	// fallback to the direct API.
	RealtimeURL string
	// Timeout bounds each HTTP call. The direct agent loop gets a fresh
	// countdown per turn, not one for the whole loop.
	Timeout time.Duration
	// MaxAttempts bounds the agent loop.
	MaxAttempts int
	// HTTPClient optionally replaces the transport (tests).
	HTTPClient *http.Client
}

// Client retrieves generated report text from the xAI API. It is stateless
// across calls and safe for concurrent use.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	realtimeURL string
	timeout     time.Duration
	maxAttempts int
	httpClient  *http.Client

	sleep func(context.Context, time.Duration) error // test seam
}

// New constructs a Client from cfg, applying defaults for unset values.
func New(cfg Config) *Client {
	c := &Client{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		realtimeURL: cfg.RealtimeURL,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		httpClient:  cfg.HTTPClient,
		sleep:       sleepCtx,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.httpClient == nil {
		// Per-call deadlines come from the request context.
		c.httpClient = &http.Client{}
	}
	return c
}

// Analyze obtains the report text for req. When a realtime service endpoint
// is configured it is tried first; otherwise the direct API is called. All
// failures are *APIError.
func (c *Client) Analyze(ctx context.Context, req domain.AnalysisRequest) (string, error) {
	if c.realtimeURL != "" {
		return c.analyzeRealtime(ctx, req)
	}
	return c.analyzeDirect(ctx, req)
}

// realtimeRequest is the JSON body for the realtime analysis service.
type realtimeRequest struct {
	Handle           string  `json:"handle"`
	AnalysisType     string  `json:"analysis_type"`
	CompetitorHandle *string `json:"competitor_handle"`
}

// realtimeResponse is the realtime service's reply envelope.
type realtimeResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	Error   string `json:"error"`
}

// analyzeRealtime posts the analysis parameters to the realtime service. A
// timeout surfaces directly as a user-facing failure; any other transport
// or decode fault falls back to the direct strategy. Errors the service
// reports itself (non-2xx, success=false) do not fall back.
func (c *Client) analyzeRealtime(ctx context.Context, req domain.AnalysisRequest) (string, error) {
	body := realtimeRequest{
		Handle:       req.Handle,
		AnalysisType: string(req.AnalysisType),
	}
	if req.CompetitorHandle != "" {
		body.CompetitorHandle = &req.CompetitorHandle
	}

	resp, raw, err := c.post(ctx, c.realtimeURL+"/analyze", "", body)
	if err != nil {
		if isTimeout(err) {
			return "", &APIError{Message: "Analysis timed out. Please try again."}
		}
		log.Warn().Err(err).Msg("realtime service unreachable, falling back to direct API")
		return c.analyzeDirect(ctx, req)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{
			Message:    fmt.Sprintf("Real-time service error (%d): %s", resp.StatusCode, truncate(string(raw), maxErrorBody)),
			StatusCode: resp.StatusCode,
			Details:    string(raw),
		}
	}

	var out realtimeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Warn().Err(err).Msg("realtime service returned malformed JSON, falling back to direct API")
		return c.analyzeDirect(ctx, req)
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "Analysis failed"
		}
		return "", &APIError{Message: msg}
	}
	return out.Content, nil
}

// Direct /v1/responses request body. The first turn sends the full
// two-message input; continuation turns reference the previous response so
// the model keeps its searching/reasoning context without a resend.
type responsesRequest struct {
	Model              string        `json:"model"`
	Input              []chatMessage `json:"input,omitempty"`
	Tools              []agentTool   `json:"tools"`
	ToolChoice         string        `json:"tool_choice"`
	PreviousResponseID string        `json:"previous_response_id,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type agentTool struct {
	Type string `json:"type"`
}

// analyzeDirect runs the bounded agent loop against the direct API. Each
// turn either yields final text (stop), a completed status with no text
// (stop as failure), or neither (pause and retry). The loop never runs more
// than maxAttempts turns.
func (c *Client) analyzeDirect(ctx context.Context, req domain.AnalysisRequest) (string, error) {
	if c.apiKey == "" {
		return "", &APIError{Message: "XAI_API_KEY is not configured. Please add it to your environment variables."}
	}

	userPrompt := prompts.BuildUserPrompt(req.Handle, req.AnalysisType, req.CompetitorHandle)
	previousID := ""

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		body := responsesRequest{
			Model:      c.model,
			Tools:      []agentTool{{Type: "x_search"}, {Type: "web_search"}},
			ToolChoice: "auto",
		}
		if previousID != "" {
			body.PreviousResponseID = previousID
		} else {
			body.Input = []chatMessage{
				{Role: "system", Content: prompts.SystemPrompt},
				{Role: "user", Content: userPrompt},
			}
		}

		resp, raw, err := c.post(ctx, c.baseURL+"/responses", c.apiKey, body)
		if err != nil {
			if isTimeout(err) {
				return "", &APIError{Message: "Analysis timed out. The request took too long to complete. Please try again."}
			}
			return "", &APIError{Message: fmt.Sprintf("Network error: %v", err)}
		}
		if resp.StatusCode != http.StatusOK {
			return "", statusError(resp.StatusCode, raw)
		}

		var parsed apiResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return "", &APIError{
				Message: fmt.Sprintf("Malformed API response: %v", err),
				Details: truncate(string(raw), maxDebugBody),
			}
		}
		if parsed.ID != "" {
			previousID = parsed.ID
		}

		if text := extractText(&parsed); text != "" {
			return text, nil
		}

		// A completed turn with no extractable text is a dead end; more
		// turns cannot recover it.
		if parsed.Status == "completed" {
			return "", &APIError{
				Message: "Agent completed without producing any text. Please try again.",
				Details: truncate(string(raw), maxDebugBody),
			}
		}

		if err := c.sleep(ctx, retryDelay); err != nil {
			return "", &APIError{Message: "Analysis timed out. The request took too long to complete. Please try again."}
		}
	}

	return "", &APIError{Message: fmt.Sprintf("No analysis generated after %d attempts. Please try again.", c.maxAttempts)}
}

// post issues one JSON POST under the per-call timeout and drains the body.
func (c *Client) post(ctx context.Context, url, bearer string, body any) (*http.Response, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, raw, nil
}

// statusError maps a non-2xx direct-API response to a human-readable cause.
func statusError(status int, raw []byte) *APIError {
	msg := fmt.Sprintf("API Error (%d): ", status)
	switch {
	case status == http.StatusUnauthorized:
		msg += "Invalid API key. Please check your XAI_API_KEY."
	case status == http.StatusTooManyRequests:
		msg += "Rate limit exceeded. Please wait a moment and try again."
	case status == http.StatusNotFound:
		msg += "Model or endpoint not found."
	case status >= 500:
		msg += "The API is temporarily unavailable. Please try again."
	default:
		msg += upstreamErrorMessage(raw)
	}
	return &APIError{Message: msg, StatusCode: status, Details: string(raw)}
}

// upstreamErrorMessage pulls a structured error message out of an error
// body when possible, otherwise returns the truncated raw text.
func upstreamErrorMessage(raw []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return truncate(string(raw), maxErrorBody)
}

// isTimeout reports whether err represents an expired per-call deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
