// Package speech provides speech capture capabilities for dictation sessions.
package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/interfaces"
)

var (
	ErrAlreadyCapturing = errors.New("capture already started")
	ErrNotCapturing     = errors.New("no capture in progress")
	ErrBackpressure     = errors.New("capture event buffer is full")
)

// DefaultBuffer is the number of pending events a Remote holds per capture.
const DefaultBuffer = 64

var (
	_ interfaces.SpeechCapture = (*Remote)(nil)
	_ interfaces.EventSink     = (*Remote)(nil)
)

// Remote is a capability whose recognition runs elsewhere, typically the
// browser's speech recognition, with results pushed in through Push.
type Remote struct {
	mu     sync.Mutex
	events chan entities.CaptureEvent
	buffer int
}

// NewRemote returns an idle capability buffering up to buffer events.
func NewRemote(buffer int) *Remote {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Remote{buffer: buffer}
}

// Start opens a new event stream.
func (r *Remote) Start(ctx context.Context) (<-chan entities.CaptureEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.events != nil {
		return nil, ErrAlreadyCapturing
	}
	r.events = make(chan entities.CaptureEvent, r.buffer)
	return r.events, nil
}

// Stop closes the current stream. Stopping an idle capability is a no-op.
func (r *Remote) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeLocked()
	return nil
}

// Push queues a recognition result. It never blocks: a full buffer drops the
// event and reports ErrBackpressure.
func (r *Remote) Push(ev entities.CaptureEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.events == nil {
		return ErrNotCapturing
	}
	select {
	case r.events <- ev:
		return nil
	default:
		return ErrBackpressure
	}
}

// End signals end-of-input, as when the recogniser times out on silence.
func (r *Remote) End() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.events == nil {
		return ErrNotCapturing
	}
	r.closeLocked()
	return nil
}

// active reports whether a stream is open.
func (r *Remote) active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events != nil
}

func (r *Remote) closeLocked() {
	if r.events != nil {
		close(r.events)
		r.events = nil
	}
}
