// Package health reports whether the dictation service can do its job.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/prescription-dictation/interfaces"
)

// Counter reports how many workspaces are alive
type Counter interface {
	Count() int
}

// Options describes what the checker looks at
type Options struct {
	Workspaces           Counter
	Sweeper              interfaces.Sweeper // nil when no sweep runs
	ExtractionConfigured bool
	SpeechProvider       string
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	opts Options
	now  func() time.Time
}

// NewHealthChecker creates a new health checker with injected dependencies
func NewHealthChecker(opts Options) interfaces.HealthChecker {
	return &HealthCheckerImpl{opts: opts, now: time.Now}
}

// HealthCheck returns the status, its details and the HTTP code of /health.
// Without extraction credentials analysis cannot succeed, a stalled sweep
// lets idle workspaces pile up, and without speech capture only manual
// entry works.
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	data = map[string]any{
		"extraction_configured": h.opts.ExtractionConfigured,
		"speech_provider":       h.opts.SpeechProvider,
	}
	if h.opts.Workspaces != nil {
		data["workspaces"] = h.opts.Workspaces.Count()
	}

	sweepStalled := false
	if h.opts.Sweeper != nil {
		last := h.opts.Sweeper.LastSweep()
		if last.IsZero() {
			sweepStalled = true
			data["last_sweep"] = ""
		} else {
			age := h.now().Sub(last)
			sweepStalled = age > 3*h.opts.Sweeper.Interval()
			data["last_sweep"] = last.Format(time.RFC3339)
			data["sweep_age_minutes"] = math.Round(age.Minutes()*10) / 10
		}
	}

	switch {
	case !h.opts.ExtractionConfigured:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case sweepStalled:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case h.opts.SpeechProvider == "none":
		status = "degraded"
		httpStatus = http.StatusOK

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return status, data, httpStatus
}
