package session

import "errors"

var (
	// ErrNoReport means analysis was requested before a latest report was set.
	ErrNoReport = errors.New("no report uploaded")
	// ErrAnalysisInFlight means an analysis is already running.
	ErrAnalysisInFlight = errors.New("analysis already in flight")
	// ErrNoResult means no analysis result is available.
	ErrNoResult = errors.New("no analysis result")
)
