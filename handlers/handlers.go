// Package handlers provides the HTTP handlers of the prescription service:
// workspaces, manual prescription edits, dictation control, medication
// suggestions and health.
package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/giygas/prescription-dictation/catalog"
	"github.com/giygas/prescription-dictation/dictation"
	"github.com/giygas/prescription-dictation/interfaces"
	"github.com/giygas/prescription-dictation/prescription"
	"github.com/giygas/prescription-dictation/workspace"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// WorkspaceStore is the part of the workspace store the handlers use
type WorkspaceStore interface {
	Create() *workspace.Workspace
	Get(id string) (*workspace.Workspace, error)
	Delete(id string) error
	Count() int
	StartTime() time.Time
}

// HTTPHandlerImpl serves every route of the service
type HTTPHandlerImpl struct {
	store    WorkspaceStore
	catalog  *catalog.Catalog
	health   interfaces.HealthChecker
	upgrader websocket.Upgrader
}

// NewHTTPHandler creates a handler over store and the suggestion catalog.
// A nil health checker reports the service as always healthy.
func NewHTTPHandler(store WorkspaceStore, cat *catalog.Catalog, hc interfaces.HealthChecker) *HTTPHandlerImpl {
	if cat == nil {
		cat = catalog.Default()
	}
	return &HTTPHandlerImpl{
		store:   store,
		catalog: cat,
		health:  hc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 1024,
		},
	}
}

// WorkspaceResponse is the full view of a workspace
type WorkspaceResponse struct {
	ID           string             `json:"id"`
	CreatedAt    time.Time          `json:"createdAt"`
	Prescription prescription.State `json:"prescription"`
	Dictation    dictation.Status   `json:"dictation"`
}

func newWorkspaceResponse(ws *workspace.Workspace) WorkspaceResponse {
	return WorkspaceResponse{
		ID:           ws.ID,
		CreatedAt:    ws.CreatedAt,
		Prescription: ws.Document().Snapshot(),
		Dictation:    ws.Session.Status(),
	}
}

// loadWorkspace resolves the {id} route parameter, answering 404 when unknown
func (h *HTTPHandlerImpl) loadWorkspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondWithDomainError(w, err)
		return nil, false
	}
	return ws, true
}

// CreateWorkspace starts a new empty prescription
func (h *HTTPHandlerImpl) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	ws := h.store.Create()
	w.Header().Set("Location", "/workspaces/"+ws.ID)
	RespondWithJSON(w, http.StatusCreated, newWorkspaceResponse(ws))
}

// GetWorkspace returns the prescription and dictation status
func (h *HTTPHandlerImpl) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, newWorkspaceResponse(ws))
}

// DeleteWorkspace discards a workspace
func (h *HTTPHandlerImpl) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(chi.URLParam(r, "id")); err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type patientRequest struct {
	Name *string `json:"name" validate:"required,max=200,safetext"`
}

// SetPatient edits the patient name
func (h *HTTPHandlerImpl) SetPatient(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}

	var req patientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ws.Document().SetPatientName(*req.Name)
	RespondWithJSON(w, http.StatusOK, ws.Document().Snapshot())
}

type dateRequest struct {
	Date *string `json:"date" validate:"required,max=32,safetext"`
}

// SetDate edits the prescription date
func (h *HTTPHandlerImpl) SetDate(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}

	var req dateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ws.Document().SetDate(*req.Date)
	RespondWithJSON(w, http.StatusOK, ws.Document().Snapshot())
}

type medicationRequest struct {
	Name   string `json:"name" validate:"max=200,safetext"`
	Dosage string `json:"dosage" validate:"max=500,safetext"`
}

// AddMedication adds a medication typed on the host surface
func (h *HTTPHandlerImpl) AddMedication(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}

	var req medicationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := ws.Document().AddMedication(req.Name, req.Dosage)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusCreated, entry)
}

type dosageRequest struct {
	Dosage *string `json:"dosage" validate:"required,max=500,safetext"`
}

// UpdateMedication edits the dosage of one medication
func (h *HTTPHandlerImpl) UpdateMedication(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}

	var req dosageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := ws.Document().SetDosage(chi.URLParam(r, "medID"), *req.Dosage)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, entry)
}

// DeleteMedication removes one medication
func (h *HTTPHandlerImpl) DeleteMedication(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.loadWorkspace(w, r)
	if !ok {
		return
	}

	if err := ws.Document().RemoveMedication(chi.URLParam(r, "medID")); err != nil {
		respondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SuggestMedications returns catalog names starting with ?q=
func (h *HTTPHandlerImpl) SuggestMedications(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) > 100 {
		RespondWithError(w, http.StatusBadRequest, "Query too long (max 100 characters)")
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"query":       query,
		"suggestions": h.catalog.Suggest(query),
	})
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	Uptime        string         `json:"uptime"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.store.StartTime())

	status, data, httpStatus := "healthy", map[string]any{}, http.StatusOK
	if h.health != nil {
		status, data, httpStatus = h.health.HealthCheck()
	}
	data["workspaces"] = h.store.Count()
	data["catalog_size"] = h.catalog.Len()

	response := HealthResponse{
		Status:        status,
		Uptime:        formatUptimeHuman(uptime),
		UptimeSeconds: uptime.Seconds(),
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb": int(m.Alloc / 1024 / 1024),
				"sys_mb":   int(m.Sys / 1024 / 1024),
				"num_gc":   m.NumGC,
			},
		},
	}

	RespondWithJSON(w, httpStatus, response)
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
