package health

import (
	"net/http"
	"testing"
	"time"
)

type mockCounter int

func (m mockCounter) Count() int { return int(m) }

type mockSweeper struct {
	last     time.Time
	interval time.Duration
}

func (m mockSweeper) LastSweep() time.Time    { return m.last }
func (m mockSweeper) Interval() time.Duration { return m.interval }

func TestHealthCheck(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		opts           Options
		expectedStatus string
		expectedCode   int
	}{
		{
			name: "healthy",
			opts: Options{
				Workspaces:           mockCounter(3),
				Sweeper:              mockSweeper{last: now.Add(-5 * time.Minute), interval: 5 * time.Minute},
				ExtractionConfigured: true,
				SpeechProvider:       "browser",
			},
			expectedStatus: "healthy",
			expectedCode:   http.StatusOK,
		},
		{
			name: "no extraction credentials",
			opts: Options{
				Workspaces:     mockCounter(0),
				SpeechProvider: "browser",
			},
			expectedStatus: "unhealthy",
			expectedCode:   http.StatusServiceUnavailable,
		},
		{
			name: "sweep never ran",
			opts: Options{
				Sweeper:              mockSweeper{interval: 5 * time.Minute},
				ExtractionConfigured: true,
				SpeechProvider:       "browser",
			},
			expectedStatus: "degraded",
			expectedCode:   http.StatusServiceUnavailable,
		},
		{
			name: "sweep stalled",
			opts: Options{
				Sweeper:              mockSweeper{last: now.Add(-time.Hour), interval: 5 * time.Minute},
				ExtractionConfigured: true,
				SpeechProvider:       "deepgram",
			},
			expectedStatus: "degraded",
			expectedCode:   http.StatusServiceUnavailable,
		},
		{
			name: "speech disabled",
			opts: Options{
				ExtractionConfigured: true,
				SpeechProvider:       "none",
			},
			expectedStatus: "degraded",
			expectedCode:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &HealthCheckerImpl{opts: tt.opts, now: func() time.Time { return now }}
			status, _, code := checker.HealthCheck()

			if status != tt.expectedStatus {
				t.Errorf("status = %q, want %q", status, tt.expectedStatus)
			}
			if code != tt.expectedCode {
				t.Errorf("code = %d, want %d", code, tt.expectedCode)
			}
		})
	}
}

func TestHealthCheckData(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	checker := &HealthCheckerImpl{
		opts: Options{
			Workspaces:           mockCounter(7),
			Sweeper:              mockSweeper{last: now.Add(-90 * time.Second), interval: time.Minute},
			ExtractionConfigured: true,
			SpeechProvider:       "browser",
		},
		now: func() time.Time { return now },
	}

	_, data, _ := checker.HealthCheck()

	if data["workspaces"] != 7 {
		t.Errorf("workspaces = %v", data["workspaces"])
	}
	if data["sweep_age_minutes"] != 1.5 {
		t.Errorf("sweep_age_minutes = %v", data["sweep_age_minutes"])
	}
	if data["last_sweep"] != "2026-03-02T09:58:30Z" {
		t.Errorf("last_sweep = %v", data["last_sweep"])
	}
}
