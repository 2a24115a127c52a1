package dictation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/interfaces"
	"github.com/giygas/prescription-dictation/logging"
	"github.com/giygas/prescription-dictation/metrics"
)

// DefaultDrainTimeout bounds how long Stop waits for the capability to
// deliver the results it had already accepted.
const DefaultDrainTimeout = 5 * time.Second

type captureState int

const (
	captureIdle captureState = iota
	captureStarting
	captureRecording
	captureStopping
)

// Controller owns the recording state and the transcript buffer fed by a
// speech capture capability. Every recording gets a new epoch; events read
// from the stream of an older epoch are dropped.
type Controller struct {
	mu           sync.Mutex
	capture      interfaces.SpeechCapture
	state        captureState
	cancelStart  bool
	epoch        uint64
	done         chan struct{} // closed when the stream of the current epoch is drained
	transcript   string
	interim      string
	drainTimeout time.Duration
}

// NewController wraps capture. A nil capture yields a controller that
// refuses to record with ErrCaptureUnavailable.
func NewController(capture interfaces.SpeechCapture) *Controller {
	return &Controller{capture: capture, drainTimeout: DefaultDrainTimeout}
}

// Available reports whether a capture capability is present.
func (c *Controller) Available() bool {
	return c.capture != nil
}

// Start clears the transcript and starts capturing. It is a no-op while a
// recording is starting, running or stopping. The capability is started
// without holding the lock, so a slow connection does not block readers.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.capture == nil {
		c.mu.Unlock()
		return entities.ErrCaptureUnavailable
	}
	if c.state != captureIdle {
		c.mu.Unlock()
		return nil
	}
	c.state = captureStarting
	c.cancelStart = false
	c.epoch++
	c.transcript = ""
	c.interim = ""
	c.mu.Unlock()

	events, err := c.capture.Start(context.Background())

	c.mu.Lock()
	if err != nil {
		c.state = captureIdle
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", entities.ErrCaptureUnavailable, err)
	}

	done := make(chan struct{})
	c.done = done
	go c.pump(c.epoch, events, done)

	if !c.cancelStart {
		c.state = captureRecording
		c.mu.Unlock()
		return nil
	}

	// Stop was requested while the capability was starting
	c.state = captureStopping
	c.mu.Unlock()
	return c.drain(done)
}

// Stop ends the current recording and keeps the transcript. Results the
// capability accepted before the stop are still appended; Stop returns once
// its stream is drained or DefaultDrainTimeout elapsed. It is a no-op when idle.
func (c *Controller) Stop() error {
	c.mu.Lock()
	switch c.state {
	case captureStarting:
		c.cancelStart = true
		c.mu.Unlock()
		return nil
	case captureRecording:
		c.state = captureStopping
		c.interim = ""
		done := c.done
		c.mu.Unlock()
		return c.drain(done)
	default:
		c.mu.Unlock()
		return nil
	}
}

func (c *Controller) drain(done <-chan struct{}) error {
	err := c.capture.Stop()

	timer := time.NewTimer(c.drainTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		logging.Warn("Capture stream not drained before timeout", "timeout", c.drainTimeout.String())
	}

	c.mu.Lock()
	if c.state == captureStopping {
		c.state = captureIdle
		c.interim = ""
	}
	c.mu.Unlock()
	return err
}

// Recording reports whether a capture is starting, running or stopping.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != captureIdle
}

// Epoch identifies the current or last recording. Pushed events must carry it.
func (c *Controller) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Transcript returns the accumulated final text.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

// Interim returns the latest non-final fragment. It is display-only and
// never part of the transcript.
func (c *Controller) Interim() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interim
}

// SetTranscript overwrites the buffer with a manual edit. Results still
// draining from a stopped recording no longer reach it.
func (c *Controller) SetTranscript(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = text
	if c.state == captureStopping {
		c.epoch++
	}
}

// Push forwards a client-side recognition result tagged with the recording
// it belongs to. Results for any other recording, or arriving once stop has
// begun, are refused with ErrStaleRecording.
func (c *Controller) Push(epoch uint64, ev entities.CaptureEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sink, err := c.eventSinkLocked(epoch)
	if err != nil {
		return err
	}
	return sink.Push(ev)
}

// End signals end-of-input for the given recording.
func (c *Controller) End(epoch uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sink, err := c.eventSinkLocked(epoch)
	if err != nil {
		return err
	}
	return sink.End()
}

func (c *Controller) eventSinkLocked(epoch uint64) (interfaces.EventSink, error) {
	sink, ok := c.capture.(interfaces.EventSink)
	if !ok {
		return nil, ErrEventsUnsupported
	}
	if epoch != c.epoch || c.state != captureRecording {
		metrics.CaptureEvents.WithLabelValues("dropped").Inc()
		return nil, ErrStaleRecording
	}
	return sink, nil
}

func (c *Controller) pump(epoch uint64, events <-chan entities.CaptureEvent, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		c.apply(epoch, ev)
	}
	c.finish(epoch)
}

func (c *Controller) apply(epoch uint64, ev entities.CaptureEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch || (c.state != captureRecording && c.state != captureStopping) {
		metrics.CaptureEvents.WithLabelValues("dropped").Inc()
		return
	}

	if ev.IsFinal {
		c.transcript = appendFragment(c.transcript, ev.Text)
		c.interim = ""
		metrics.CaptureEvents.WithLabelValues("final").Inc()
		return
	}
	if c.state == captureRecording {
		c.interim = ev.Text
	}
	metrics.CaptureEvents.WithLabelValues("interim").Inc()
}

// finish handles end-of-input signalled by the capability closing its stream
// while recording. A stream closed by Stop is settled by Stop itself.
func (c *Controller) finish(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || c.state != captureRecording {
		c.mu.Unlock()
		return
	}
	c.state = captureStopping
	c.interim = ""
	c.mu.Unlock()

	if err := c.capture.Stop(); err != nil {
		logging.Debug("Capture stop after end of input failed", "error", err)
	}

	c.mu.Lock()
	if c.state == captureStopping {
		c.state = captureIdle
	}
	c.mu.Unlock()
}

// appendFragment joins a final fragment to the buffer, inserting a single
// space only when neither side already carries whitespace at the seam.
func appendFragment(buf, fragment string) string {
	if fragment == "" {
		return buf
	}
	if buf == "" {
		return strings.TrimLeftFunc(fragment, unicode.IsSpace)
	}

	last, _ := utf8.DecodeLastRuneInString(buf)
	first, _ := utf8.DecodeRuneInString(fragment)
	if unicode.IsSpace(last) || unicode.IsSpace(first) {
		return buf + fragment
	}
	return buf + " " + fragment
}
