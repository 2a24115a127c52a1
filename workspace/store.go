// Package workspace keeps the live workspaces of the service in memory. A
// workspace pairs one prescription with the dictation session writing into it.
// Nothing is persisted: a workspace idle for too long is reaped.
package workspace

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/giygas/prescription-dictation/dictation"
	"github.com/giygas/prescription-dictation/interfaces"
	"github.com/giygas/prescription-dictation/logging"
	"github.com/giygas/prescription-dictation/metrics"
	"github.com/giygas/prescription-dictation/prescription"
	"github.com/google/uuid"
)

// Compile-time check to ensure Store implements Reaper
var _ interfaces.Reaper = (*Store)(nil)

var ErrNotFound = errors.New("workspace not found")

// Workspace is one prescription being written, with its dictation session.
type Workspace struct {
	ID        string
	CreatedAt time.Time
	Session   *dictation.Session

	capture  interfaces.SpeechCapture
	lastSeen atomic.Int64 // unix nanoseconds
}

// Document returns the workspace prescription.
func (w *Workspace) Document() *prescription.Document {
	return w.Session.Document()
}

// EventSink returns the capability accepting pushed recognition results,
// when the configured provider has one.
func (w *Workspace) EventSink() (interfaces.EventSink, bool) {
	sink, ok := w.capture.(interfaces.EventSink)
	return sink, ok
}

// AudioSink returns the capability accepting raw audio, when the configured
// provider has one.
func (w *Workspace) AudioSink() (interfaces.AudioSink, bool) {
	sink, ok := w.capture.(interfaces.AudioSink)
	return sink, ok
}

// LastSeen returns the time of the last lookup.
func (w *Workspace) LastSeen() time.Time {
	return time.Unix(0, w.lastSeen.Load())
}

func (w *Workspace) touch(now time.Time) {
	w.lastSeen.Store(now.UnixNano())
}

// Store holds workspaces by id.
type Store struct {
	mu         sync.RWMutex
	workspaces map[string]*Workspace

	extractor interfaces.Extractor
	captures  func() interfaces.SpeechCapture
	startTime time.Time
	now       func() time.Time
}

// NewStore returns an empty store. captures builds the speech capability of
// each new workspace and may be nil when capture is disabled.
func NewStore(extractor interfaces.Extractor, captures func() interfaces.SpeechCapture) *Store {
	return &Store{
		workspaces: make(map[string]*Workspace),
		extractor:  extractor,
		captures:   captures,
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// Create registers a new workspace with an empty prescription and a closed session.
func (s *Store) Create() *Workspace {
	id := uuid.NewString()

	var capture interfaces.SpeechCapture
	if s.captures != nil {
		capture = s.captures()
	}

	now := s.now()
	w := &Workspace{
		ID:        id,
		CreatedAt: now,
		Session:   dictation.NewSession(id, capture, s.extractor, prescription.NewDocument(nil)),
		capture:   capture,
	}
	w.touch(now)

	s.mu.Lock()
	s.workspaces[id] = w
	count := len(s.workspaces)
	s.mu.Unlock()

	metrics.WorkspacesActive.Set(float64(count))
	logging.Info("Workspace created", "workspace_id", id, "capture_available", capture != nil)
	return w
}

// Get returns the workspace and marks it as seen.
func (s *Store) Get(id string) (*Workspace, error) {
	s.mu.RLock()
	w, ok := s.workspaces[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	w.touch(s.now())
	return w, nil
}

// Delete closes the workspace session and forgets it.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	w, ok := s.workspaces[id]
	delete(s.workspaces, id)
	count := len(s.workspaces)
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	w.Session.Close()
	metrics.WorkspacesActive.Set(float64(count))
	logging.Info("Workspace deleted", "workspace_id", id)
	return nil
}

// ReapIdle deletes every workspace not seen for longer than ttl and returns
// how many were removed.
func (s *Store) ReapIdle(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	var idle []*Workspace
	for id, w := range s.workspaces {
		if w.LastSeen().Before(cutoff) {
			idle = append(idle, w)
			delete(s.workspaces, id)
		}
	}
	count := len(s.workspaces)
	s.mu.Unlock()

	for _, w := range idle {
		w.Session.Close()
		logging.Debug("Idle workspace reaped", "workspace_id", w.ID, "last_seen", w.LastSeen())
	}
	metrics.WorkspacesActive.Set(float64(count))
	return len(idle)
}

// Count returns the number of live workspaces.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workspaces)
}

// IDs returns the live workspace ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.workspaces))
}

// StartTime returns when the store was created.
func (s *Store) StartTime() time.Time {
	return s.startTime
}
