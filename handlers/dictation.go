package handlers

import (
	"net/http"
	"time"

	"github.com/giygas/prescription-dictation/dictation"
	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/logging"
	"github.com/giygas/prescription-dictation/prescription"
	"github.com/gorilla/websocket"
)

// maxAudioFrame bounds a single websocket audio message
const maxAudioFrame = 256 * 1024

// DictationStatus returns the session status
func (h *HTTPHandlerImpl) DictationStatus(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, ws.Session.Status())
}

// OpenDictation opens the session, clearing transcript and error
func (h *HTTPHandlerImpl) OpenDictation(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, ws.Session.Open())
}

// CloseDictation closes the session; an in-flight analysis will be discarded
func (h *HTTPHandlerImpl) CloseDictation(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, ws.Session.Close())
}

type recordRequest struct {
	Action string `json:"action" validate:"required,oneof=start stop toggle"`
}

// Record starts, stops or toggles recording
func (h *HTTPHandlerImpl) Record(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}

	var req recordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var err error
	switch req.Action {
	case "start":
		err = ws.Session.StartRecording()
	case "stop":
		err = ws.Session.StopRecording()
	default:
		err = ws.Session.ToggleRecording()
	}
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, ws.Session.Status())
}

type transcriptRequest struct {
	Transcript *string `json:"transcript" validate:"required,max=20000"`
}

// SetTranscript stores a manual edit of the transcript
func (h *HTTPHandlerImpl) SetTranscript(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}

	var req transcriptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := ws.Session.SetTranscript(*req.Transcript); err != nil {
		respondWithDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, ws.Session.Status())
}

type captureEventRequest struct {
	Recording uint64 `json:"recording" validate:"required"` // recording id from the dictation status
	Text      string `json:"text" validate:"max=2000"`
	IsFinal   bool   `json:"isFinal"`
	End       bool   `json:"end"`
}

// PushCaptureEvent feeds a browser recognition result, or end-of-input, to
// the workspace capability. Events of any recording other than the running
// one are refused with 409.
func (h *HTTPHandlerImpl) PushCaptureEvent(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}

	if _, ok := ws.EventSink(); !ok {
		RespondWithError(w, http.StatusConflict, "Speech provider does not accept pushed events")
		return
	}

	var req captureEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var err error
	if req.End {
		err = ws.Session.EndCapture(req.Recording)
	} else {
		err = ws.Session.PushEvent(req.Recording, entities.CaptureEvent{Text: req.Text, IsFinal: req.IsFinal})
	}
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// StreamAudio upgrades to a websocket and forwards binary frames to the
// workspace capability
func (h *HTTPHandlerImpl) StreamAudio(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}

	sink, ok := ws.AudioSink()
	if !ok {
		RespondWithError(w, http.StatusConflict, "Speech provider does not accept audio")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Audio websocket upgrade failed", "workspace_id", ws.ID, "error", err)
		return
	}
	defer conn.Close()

	// The server timeouts still apply to the hijacked connection
	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})
	conn.SetReadLimit(maxAudioFrame)

	var frames, dropped int
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debug("Audio websocket closed", "workspace_id", ws.ID, "error", err)
			}
			break
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if err := sink.WriteAudio(data); err != nil {
			dropped++
			continue
		}
		frames++
	}

	logging.Debug("Audio stream ended", "workspace_id", ws.ID, "frames", frames, "dropped", dropped)
}

// AnalysisResponse reports what an analysis did
type AnalysisResponse struct {
	Outcome      dictation.Outcome  `json:"outcome"`
	Prescription prescription.State `json:"prescription"`
	Dictation    dictation.Status   `json:"dictation"`
}

// Analyze sends the transcript for extraction and applies the result
func (h *HTTPHandlerImpl) Analyze(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}

	outcome, err := ws.Session.Analyze(r.Context())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}

	RespondWithJSON(w, http.StatusOK, AnalysisResponse{
		Outcome:      outcome,
		Prescription: ws.Document().Snapshot(),
		Dictation:    ws.Session.Status(),
	})
}
