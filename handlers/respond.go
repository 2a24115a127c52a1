package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/giygas/prescription-dictation/dictation"
	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/logging"
	"github.com/giygas/prescription-dictation/prescription"
	"github.com/giygas/prescription-dictation/speech"
	"github.com/giygas/prescription-dictation/speech/deepgram"
	"github.com/giygas/prescription-dictation/validation"
	"github.com/giygas/prescription-dictation/workspace"
)

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	w.Write(data)
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	RespondWithJSON(w, code, errorResponse)
}

// respondWithDomainError maps a service error to its HTTP status
func respondWithDomainError(w http.ResponseWriter, err error) {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		RespondWithError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, workspace.ErrNotFound),
		errors.Is(err, prescription.ErrMedicationNotFound):
		RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrInvalidInput),
		errors.Is(err, prescription.ErrEmptyName):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, prescription.ErrDuplicateMedication),
		errors.Is(err, dictation.ErrSessionClosed),
		errors.Is(err, dictation.ErrAnalysisInProgress),
		errors.Is(err, dictation.ErrRecordingActive),
		errors.Is(err, dictation.ErrStaleRecording),
		errors.Is(err, dictation.ErrEventsUnsupported),
		errors.Is(err, speech.ErrNotCapturing),
		errors.Is(err, speech.ErrAlreadyCapturing),
		errors.Is(err, deepgram.ErrNotCapturing):
		RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, speech.ErrBackpressure):
		RespondWithError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, entities.ErrCaptureUnavailable):
		RespondWithError(w, http.StatusServiceUnavailable, dictation.MsgCaptureUnavailable)
	case errors.Is(err, entities.ErrExtractionFailed):
		RespondWithError(w, http.StatusBadGateway, dictation.MsgAnalysisFailed)
	default:
		logging.Error("Unhandled request error", "error", err)
		RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a single JSON object into dst and validates it
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RespondWithError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body too large. Maximum allowed size is %d bytes", maxErr.Limit))
			return false
		}
		RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
		return false
	}

	if err := validation.Struct(dst); err != nil {
		respondWithDomainError(w, err)
		return false
	}
	return true
}
