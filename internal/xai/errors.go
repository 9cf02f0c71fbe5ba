// Package xai implements the AI retrieval client for the xAI /v1/responses
// API: a direct agent-loop strategy plus an optional realtime-service
// strategy with fallback between them.
package xai

// APIError is the single tagged error the retrieval client surfaces for
// every failure class: missing configuration, timeouts, upstream HTTP
// errors, malformed responses, exhausted agent loops, and transport faults.
//
// Message is human-readable and safe to show to the user. StatusCode is set
// for non-2xx upstream responses, zero otherwise. Details optionally carries
// a truncated raw payload for diagnostics.
type APIError struct {
	Message    string
	StatusCode int
	Details    string
}

// Error implements the error interface.
func (e *APIError) Error() string { return e.Message }
