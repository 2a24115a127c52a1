package dictation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/giygas/prescription-dictation/entities"
)

// fakeCapture hands out a buffered stream per Start and closes it on Stop.
// With holdOnStop the stream stays open after Stop until end is called, as a
// capability still flushing its last results would.
type fakeCapture struct {
	mu         sync.Mutex
	events     chan entities.CaptureEvent
	starts     int
	stops      int
	startErr   error
	holdOnStop bool
	gate       chan struct{} // when set, Start waits for it to be closed
}

func (f *fakeCapture) Start(ctx context.Context) (<-chan entities.CaptureEvent, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.starts++
	f.events = make(chan entities.CaptureEvent, 32)
	return f.events, nil
}

func (f *fakeCapture) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.events != nil && !f.holdOnStop {
		close(f.events)
		f.events = nil
	}
	return nil
}

// emit scripts events on the active stream.
func (f *fakeCapture) emit(events ...entities.CaptureEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range events {
		f.events <- ev
	}
}

// end signals end-of-input by closing the active stream.
func (f *fakeCapture) end() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.events)
	f.events = nil
}

func (f *fakeCapture) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops
}

// fakeExtractor returns a fixed result. When release is set, calls block
// until it is closed.
type fakeExtractor struct {
	mu      sync.Mutex
	calls   int
	result  entities.ExtractionResult
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeExtractor) Extract(ctx context.Context, transcript string) (entities.ExtractionResult, error) {
	f.mu.Lock()
	f.calls++
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return f.result, f.err
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
