package entities

import "errors"

var (
	// ErrCaptureUnavailable is returned when no speech capability is present.
	ErrCaptureUnavailable = errors.New("speech capture unavailable")

	// ErrInvalidInput is returned when analysis is requested on an empty transcript.
	ErrInvalidInput = errors.New("transcript is empty")

	// ErrExtractionFailed covers network errors, malformed JSON and schema violations.
	ErrExtractionFailed = errors.New("extraction failed")
)
