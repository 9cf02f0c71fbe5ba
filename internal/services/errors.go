// Package services implements the business logic composing the handle
// validator, usage limiter, AI retrieval client, and report cache. This file
// centralizes service-level error values so they can be consistently
// returned by service methods and checked by callers.
//
// The messages are deliberately user-facing: the analysis service folds them
// verbatim into failure results.
package services

import "errors"

var (
	// ErrUnknownAnalysisType is returned when the requested analysis type
	// is not one of the supported report templates.
	ErrUnknownAnalysisType = errors.New("unknown analysis type")

	// ErrCompetitorRequired is returned when a competitor-comparison
	// request arrives without a competitor handle.
	ErrCompetitorRequired = errors.New("please enter a competitor handle for comparison")
)
