package dictation

import "errors"

var (
	// ErrSessionClosed is returned by operations that need an open session.
	ErrSessionClosed = errors.New("dictation session is closed")
	// ErrAnalysisInProgress is returned while an extraction call is pending.
	ErrAnalysisInProgress = errors.New("an analysis is already in progress")
	// ErrRecordingActive is returned when analysis is requested before recording stopped.
	ErrRecordingActive = errors.New("recording must be stopped before analysis")
	// ErrStaleRecording is returned for a pushed event that does not belong to
	// the running recording.
	ErrStaleRecording = errors.New("event does not belong to the current recording")
	// ErrEventsUnsupported is returned when the capability does not accept pushed events.
	ErrEventsUnsupported = errors.New("speech capability does not accept pushed events")
)

// User-facing messages carried in Status.Error.
const (
	MsgCaptureUnavailable = "La reconnaissance vocale n'est pas supportée par votre navigateur."
	MsgAnalysisFailed     = "L'analyse a échoué. Veuillez vérifier votre dictée et réessayer."
)
