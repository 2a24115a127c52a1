// Package dictation drives a dictation session: recording into a transcript,
// sending it for extraction and folding the result into the prescription.
package dictation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/interfaces"
	"github.com/giygas/prescription-dictation/logging"
	"github.com/giygas/prescription-dictation/metrics"
	"github.com/giygas/prescription-dictation/prescription"
)

// Phase is the externally observable state of a session.
type Phase string

const (
	PhaseClosed    Phase = "closed"
	PhaseIdle      Phase = "idle"
	PhaseRecording Phase = "recording"
	PhaseAnalyzing Phase = "analyzing"
)

// Outcome tells the caller what happened to an analysis.
type Outcome string

const (
	// OutcomeApplied means the result was merged and the session closed.
	OutcomeApplied Outcome = "applied"
	// OutcomeFailed means extraction failed; the session is open and idle with
	// the transcript kept.
	OutcomeFailed Outcome = "failed"
	// OutcomeDiscarded means the session was closed or reopened while the
	// call was in flight. It is not an error.
	OutcomeDiscarded Outcome = "discarded"
)

// Status is a snapshot of a session.
type Status struct {
	Phase            Phase  `json:"phase"`
	Generation       uint64 `json:"generation"`
	Recording        uint64 `json:"recording"`
	Transcript       string `json:"transcript"`
	Interim          string `json:"interim,omitempty"`
	CaptureAvailable bool   `json:"captureAvailable"`
	Error            string `json:"error,omitempty"`
}

// Session composes a capture controller, an extractor and a prescription
// document. The generation advances on every open and close; an extraction
// that completes under an older generation is dropped.
type Session struct {
	mu         sync.Mutex
	capture    *Controller
	extractor  interfaces.Extractor
	doc        *prescription.Document
	open       bool
	analyzing  bool
	generation uint64
	lastError  string
	logger     *slog.Logger
}

// NewSession returns a closed session. capture may be nil when no speech
// capability is available.
func NewSession(id string, capture interfaces.SpeechCapture, extractor interfaces.Extractor, doc *prescription.Document) *Session {
	return &Session{
		capture:   NewController(capture),
		extractor: extractor,
		doc:       doc,
		logger:    logging.Logger().With("workspace_id", id),
	}
}

// Document returns the prescription the session writes into.
func (s *Session) Document() *prescription.Document {
	return s.doc
}

// Open starts a new dictation, clearing the previous error and transcript.
// Opening an open session changes nothing.
func (s *Session) Open() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return s.statusLocked()
	}

	s.open = true
	s.analyzing = false
	s.generation++
	s.lastError = ""
	s.capture.SetTranscript("")
	if !s.capture.Available() {
		s.lastError = MsgCaptureUnavailable
	}

	s.logger.Info("Dictation opened", "generation", s.generation, "capture_available", s.capture.Available())
	return s.statusLocked()
}

// Close ends the dictation. An in-flight analysis keeps running but its
// result will be discarded.
func (s *Session) Close() Status {
	s.mu.Lock()
	if !s.open {
		defer s.mu.Unlock()
		return s.statusLocked()
	}

	interrupted := s.analyzing
	s.open = false
	s.analyzing = false
	s.generation++
	s.lastError = ""
	s.logger.Info("Dictation closed", "generation", s.generation, "interrupted_analysis", interrupted)
	s.mu.Unlock()

	if err := s.capture.Stop(); err != nil {
		s.logger.Warn("Stopping capture on close failed", "error", err)
	}
	return s.Status()
}

// StartRecording begins capture, clearing the transcript. The capability is
// started outside the session lock.
func (s *Session) StartRecording() error {
	s.mu.Lock()
	if err := s.recordableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	generation := s.generation
	s.mu.Unlock()

	err := s.capture.Start()

	s.mu.Lock()
	if err != nil {
		if errors.Is(err, entities.ErrCaptureUnavailable) {
			s.lastError = MsgCaptureUnavailable
		}
		s.logger.Warn("Recording could not start", "generation", s.generation, "error", err)
		s.mu.Unlock()
		return err
	}
	if generation != s.generation {
		// Closed or reopened while the capability was starting
		s.mu.Unlock()
		if err := s.capture.Stop(); err != nil {
			s.logger.Warn("Stopping capture of a closed session failed", "error", err)
		}
		return ErrSessionClosed
	}
	s.lastError = ""
	s.logger.Debug("Recording started", "generation", s.generation, "recording", s.capture.Epoch())
	s.mu.Unlock()
	return nil
}

// StopRecording ends capture and keeps the transcript. It returns once the
// results already accepted by the capability are in the transcript.
func (s *Session) StopRecording() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	generation := s.generation
	s.mu.Unlock()

	if err := s.capture.Stop(); err != nil {
		s.logger.Warn("Recording stop failed", "generation", generation, "error", err)
		return err
	}
	s.logger.Debug("Recording stopped", "generation", generation, "transcript_length", len(s.capture.Transcript()))
	return nil
}

// ToggleRecording starts capture when idle and stops it when recording.
func (s *Session) ToggleRecording() error {
	s.mu.Lock()
	if err := s.recordableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	recording := s.capture.Recording()
	s.mu.Unlock()

	if recording {
		return s.StopRecording()
	}
	return s.StartRecording()
}

func (s *Session) recordableLocked() error {
	if !s.open {
		return ErrSessionClosed
	}
	if s.analyzing {
		return ErrAnalysisInProgress
	}
	return nil
}

// PushEvent feeds a client-side recognition result for the given recording.
func (s *Session) PushEvent(recording uint64, ev entities.CaptureEvent) error {
	return s.capture.Push(recording, ev)
}

// EndCapture signals end-of-input for the given recording.
func (s *Session) EndCapture(recording uint64) error {
	return s.capture.End(recording)
}

// SetTranscript replaces the transcript with a manual edit.
func (s *Session) SetTranscript(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return ErrSessionClosed
	}
	s.capture.SetTranscript(text)
	return nil
}

// Analyze sends the transcript for extraction and applies the result. The
// call is never retried and is refused while another one is pending. The
// extraction is not cancelled when ctx is; only its own timeout applies.
func (s *Session) Analyze(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if err := s.admitLocked(); err != nil {
		s.mu.Unlock()
		metrics.DictationAnalyses.WithLabelValues("refused").Inc()
		return "", err
	}
	transcript := s.capture.Transcript()
	generation := s.generation
	s.analyzing = true
	s.lastError = ""
	s.mu.Unlock()

	s.logger.Info("Analysis started", "generation", generation, "transcript_length", len(transcript))
	result, err := s.extractor.Extract(context.WithoutCancel(ctx), transcript)

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		metrics.DictationStaleResults.Inc()
		metrics.DictationAnalyses.WithLabelValues("discarded").Inc()
		s.logger.Info("Stale analysis result discarded", "generation", generation, "current_generation", s.generation)
		return OutcomeDiscarded, nil
	}
	s.analyzing = false

	if err != nil {
		s.lastError = MsgAnalysisFailed
		metrics.DictationAnalyses.WithLabelValues("failed").Inc()
		s.logger.Warn("Analysis failed", "generation", generation, "error", err)
		return OutcomeFailed, err
	}

	state := s.doc.Reconcile(result)
	s.open = false
	s.generation++
	metrics.DictationAnalyses.WithLabelValues("applied").Inc()
	s.logger.Info("Analysis applied",
		"generation", generation,
		"action", result.Action,
		"medication_count", len(state.Medications),
	)
	return OutcomeApplied, nil
}

func (s *Session) admitLocked() error {
	switch {
	case !s.open:
		return ErrSessionClosed
	case s.analyzing:
		return ErrAnalysisInProgress
	case s.capture.Recording():
		return ErrRecordingActive
	case strings.TrimSpace(s.capture.Transcript()) == "":
		return entities.ErrInvalidInput
	}
	return nil
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() Status {
	st := Status{
		Phase:            PhaseClosed,
		Generation:       s.generation,
		Recording:        s.capture.Epoch(),
		Transcript:       s.capture.Transcript(),
		CaptureAvailable: s.capture.Available(),
		Error:            s.lastError,
	}
	if !s.open {
		return st
	}

	switch {
	case s.analyzing:
		st.Phase = PhaseAnalyzing
	case s.capture.Recording():
		st.Phase = PhaseRecording
		st.Interim = s.capture.Interim()
	default:
		st.Phase = PhaseIdle
	}
	return st
}
