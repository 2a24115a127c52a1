package dictation

import (
	"errors"
	"testing"
	"time"

	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/speech"
)

func final(text string) entities.CaptureEvent   { return entities.CaptureEvent{Text: text, IsFinal: true} }
func interim(text string) entities.CaptureEvent { return entities.CaptureEvent{Text: text} }

func TestControllerUnavailable(t *testing.T) {
	c := NewController(nil)
	if c.Available() {
		t.Fatal("expected controller without capture to be unavailable")
	}
	if err := c.Start(); !errors.Is(err, entities.ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
	if c.Recording() {
		t.Error("controller should stay idle")
	}
}

func TestControllerStartFailureKeepsTranscript(t *testing.T) {
	capture := &fakeCapture{startErr: errors.New("microphone busy")}
	c := NewController(capture)
	c.SetTranscript("brouillon")

	if err := c.Start(); !errors.Is(err, entities.ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
	if c.Transcript() != "brouillon" {
		t.Errorf("transcript changed on failed start: %q", c.Transcript())
	}
}

func TestControllerAppendsOnlyFinalEvents(t *testing.T) {
	capture := &fakeCapture{}
	c := NewController(capture)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	capture.emit(
		interim("Patient"),
		interim("Patient Jean"),
		final("Patient Jean Dupont,"),
		interim("médica"),
		final("médicament Doliprane"),
		interim("trois fois"),
	)
	eventually(t, func() bool { return c.Interim() == "trois fois" })

	if got, want := c.Transcript(), "Patient Jean Dupont, médicament Doliprane"; got != want {
		t.Errorf("transcript = %q, want %q", got, want)
	}

	capture.end()
	eventually(t, func() bool { return !c.Recording() })
	if c.Interim() != "" {
		t.Errorf("interim should be cleared at end of input, got %q", c.Interim())
	}
	if got := c.Transcript(); got != "Patient Jean Dupont, médicament Doliprane" {
		t.Errorf("end of input altered transcript: %q", got)
	}
}

func TestControllerStartClearsAndIsIdempotent(t *testing.T) {
	capture := &fakeCapture{}
	c := NewController(capture)
	c.SetTranscript("ancienne dictée")

	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Transcript() != "" {
		t.Errorf("start should clear the transcript, got %q", c.Transcript())
	}
	if err := c.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if starts, _ := capture.counts(); starts != 1 {
		t.Errorf("capability started %d times, want 1", starts)
	}
}

func TestControllerStopKeepsTranscript(t *testing.T) {
	capture := &fakeCapture{}
	c := NewController(capture)
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop while idle: %v", err)
	}
	if _, stops := capture.counts(); stops != 0 {
		t.Errorf("stop while idle reached the capability")
	}

	c.Start()
	capture.emit(final("Doliprane"))
	eventually(t, func() bool { return c.Transcript() == "Doliprane" })

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.Recording() || c.Transcript() != "Doliprane" {
		t.Errorf("unexpected state after stop: recording=%v transcript=%q", c.Recording(), c.Transcript())
	}
}

func TestControllerIgnoresEventsFromPreviousRecording(t *testing.T) {
	capture := &fakeCapture{}
	c := NewController(capture)

	c.Start()
	first := c.epoch
	c.Stop()
	c.Start()

	c.apply(first, final("ancien fragment"))
	c.finish(first)

	if !c.Recording() {
		t.Error("end of a previous stream stopped the current recording")
	}
	if c.Transcript() != "" {
		t.Errorf("stale event reached transcript: %q", c.Transcript())
	}
}

func TestControllerManualEditSurvivesLateEvent(t *testing.T) {
	capture := &fakeCapture{}
	c := NewController(capture)

	c.Start()
	epoch := c.epoch
	c.Stop()
	c.SetTranscript("saisie manuelle")
	c.apply(epoch, final("fragment tardif"))

	if c.Transcript() != "saisie manuelle" {
		t.Errorf("late event overrode manual edit: %q", c.Transcript())
	}
}

func TestControllerStopKeepsAcceptedEvents(t *testing.T) {
	for i := range 100 {
		remote := speech.NewRemote(8)
		c := NewController(remote)
		if err := c.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}

		if err := c.Push(c.Epoch(), final("Doliprane 1g")); err != nil {
			t.Fatalf("Push: %v", err)
		}
		if err := c.Push(c.Epoch(), final("matin et soir")); err != nil {
			t.Fatalf("Push: %v", err)
		}
		if err := c.Stop(); err != nil {
			t.Fatalf("Stop: %v", err)
		}

		if got := c.Transcript(); got != "Doliprane 1g matin et soir" {
			t.Fatalf("run %d: transcript after stop = %q", i, got)
		}
		if c.Recording() {
			t.Fatalf("run %d: still recording after stop", i)
		}
	}
}

func TestControllerRefusesEventsOfAnotherRecording(t *testing.T) {
	c := NewController(speech.NewRemote(8))

	c.Start()
	previous := c.Epoch()
	c.Stop()
	c.Start()
	current := c.Epoch()
	if current == previous {
		t.Fatalf("recording id not advanced: %d", current)
	}

	if err := c.Push(previous, final("ancien fragment")); !errors.Is(err, ErrStaleRecording) {
		t.Errorf("Push from previous recording error = %v, want ErrStaleRecording", err)
	}
	if err := c.End(previous); !errors.Is(err, ErrStaleRecording) {
		t.Errorf("End from previous recording error = %v, want ErrStaleRecording", err)
	}
	if err := c.Push(current, final("Spasfon")); err != nil {
		t.Fatalf("Push: %v", err)
	}
	c.Stop()

	if got := c.Transcript(); got != "Spasfon" {
		t.Errorf("transcript = %q, want %q", got, "Spasfon")
	}
	if err := c.Push(current, final("après arrêt")); !errors.Is(err, ErrStaleRecording) {
		t.Errorf("Push after stop error = %v, want ErrStaleRecording", err)
	}
}

func TestControllerPushNeedsEventSink(t *testing.T) {
	c := NewController(&fakeCapture{})
	c.Start()
	defer c.Stop()

	if err := c.Push(c.Epoch(), final("x")); !errors.Is(err, ErrEventsUnsupported) {
		t.Errorf("Push error = %v, want ErrEventsUnsupported", err)
	}
}

func TestControllerSlowStartDoesNotBlockReaders(t *testing.T) {
	gate := make(chan struct{})
	capture := &fakeCapture{gate: gate}
	c := NewController(capture)
	c.SetTranscript("brouillon")

	started := make(chan error, 1)
	go func() { started <- c.Start() }()
	eventually(t, c.Recording)

	readers := make(chan struct{})
	go func() {
		c.Transcript()
		c.Interim()
		c.Epoch()
		close(readers)
	}()
	select {
	case <-readers:
	case <-time.After(time.Second):
		t.Fatal("readers blocked while the capability was starting")
	}

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop while starting: %v", err)
	}
	close(gate)
	if err := <-started; err != nil {
		t.Fatalf("Start: %v", err)
	}

	if c.Recording() {
		t.Error("a stop requested while starting should leave the controller idle")
	}
	if starts, stops := capture.counts(); starts != 1 || stops != 1 {
		t.Errorf("capability starts=%d stops=%d, want 1 and 1", starts, stops)
	}
}

func TestControllerManualEditDuringDrain(t *testing.T) {
	capture := &fakeCapture{holdOnStop: true}
	c := NewController(capture)
	c.Start()

	stopped := make(chan error, 1)
	go func() { stopped <- c.Stop() }()
	eventually(t, func() bool {
		_, stops := capture.counts()
		return stops == 1
	})

	c.SetTranscript("saisie manuelle")
	capture.emit(final("fragment tardif"))
	capture.end()

	if err := <-stopped; err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := c.Transcript(); got != "saisie manuelle" {
		t.Errorf("late result overrode manual edit: %q", got)
	}
	if c.Recording() {
		t.Error("controller should be idle once drained")
	}
}

func TestControllerDrainTimeout(t *testing.T) {
	capture := &fakeCapture{holdOnStop: true}
	c := NewController(capture)
	c.drainTimeout = 20 * time.Millisecond
	c.Start()
	capture.emit(final("Doliprane"))
	eventually(t, func() bool { return c.Transcript() == "Doliprane" })

	if err := c.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if c.Recording() {
		t.Error("controller should be idle after the drain timeout")
	}
	if got := c.Transcript(); got != "Doliprane" {
		t.Errorf("transcript = %q", got)
	}
	capture.end()
}

func TestAppendFragment(t *testing.T) {
	tests := []struct {
		buf, fragment, want string
	}{
		{"", "Doliprane", "Doliprane"},
		{"", " Doliprane", "Doliprane"},
		{"Doliprane", "1g", "Doliprane 1g"},
		{"Doliprane ", "1g", "Doliprane 1g"},
		{"Doliprane", " 1g", "Doliprane 1g"},
		{"Doliprane", "", "Doliprane"},
	}

	for _, tt := range tests {
		if got := appendFragment(tt.buf, tt.fragment); got != tt.want {
			t.Errorf("appendFragment(%q, %q) = %q, want %q", tt.buf, tt.fragment, got, tt.want)
		}
	}
}
