package entities

// CaptureEvent is one recognition result emitted by a speech capability.
// Only events with IsFinal set are kept in the transcript.
type CaptureEvent struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}
