// Package interfaces defines the contracts between the dictation core and its
// collaborators, so each side can be replaced by a fake in tests.
package interfaces

import (
	"context"
	"time"

	"github.com/giygas/prescription-dictation/entities"
)

// SpeechCapture is the host speech-to-text capability.
// Start begins one capture and returns its event stream; the channel is closed
// when the capability signals end-of-input (silence timeout, error or Stop).
// Start and Stop are called in strict alternation.
type SpeechCapture interface {
	Start(ctx context.Context) (<-chan entities.CaptureEvent, error)
	Stop() error
}

// AudioSink is implemented by capabilities that recognise raw audio forwarded
// by the server.
type AudioSink interface {
	WriteAudio(frame []byte) error
}

// EventSink is implemented by capabilities whose recognition runs on the client,
// which pushes results and the end-of-input signal.
type EventSink interface {
	Push(ev entities.CaptureEvent) error
	End() error
}

// Extractor turns a transcript into a structured extraction result.
// It performs exactly one outbound call and never retries.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (entities.ExtractionResult, error)
}

// IDSource hands out medication entry identifiers. Identifiers are never reused.
type IDSource interface {
	NewID() string
}

// Reaper removes live state that has been idle for longer than a TTL.
type Reaper interface {
	ReapIdle(ttl time.Duration) int
	Count() int
}

// Scheduler defines the contract for background job scheduling.
type Scheduler interface {
	Start() error
	Stop()
}

// Sweeper reports the progress of the periodic idle sweep.
type Sweeper interface {
	LastSweep() time.Time
	Interval() time.Duration
}

// HealthChecker defines the contract for health checking functionality.
type HealthChecker interface {
	HealthCheck() (status string, data map[string]any, httpStatus int)
}
