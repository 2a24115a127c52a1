package prescription

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/interfaces"
)

var (
	ErrEmptyName           = errors.New("medication name is empty")
	ErrDuplicateMedication = errors.New("medication already prescribed")
	ErrMedicationNotFound  = errors.New("medication not found")
)

// Document is the live prescription of one workspace. All mutations, manual or
// dictated, go through it and are serialised by its lock.
type Document struct {
	mu    sync.RWMutex
	state State
	ids   interfaces.IDSource
}

// DateLayout is the default prescription date format.
const DateLayout = "02/01/2006"

// NewDocument creates an empty prescription dated today. A nil ids falls back
// to UUIDSource.
func NewDocument(ids interfaces.IDSource) *Document {
	if ids == nil {
		ids = UUIDSource{}
	}
	return &Document{
		state: State{Date: time.Now().Format(DateLayout), Medications: []entities.MedicationEntry{}},
		ids:   ids,
	}
}

// Snapshot returns a copy of the current state.
func (d *Document) Snapshot() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.Clone()
}

// Reconcile applies an extraction result and returns the resulting state.
func (d *Document) Reconcile(result entities.ExtractionResult) State {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = Merge(d.state, result, d.ids)
	return d.state.Clone()
}

// SetPatientName replaces the patient name.
func (d *Document) SetPatientName(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.PatientName = strings.TrimSpace(name)
}

// SetDate replaces the prescription date. The value is free text.
func (d *Document) SetDate(date string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Date = strings.TrimSpace(date)
}

// AddMedication appends a manually typed medication. The name is stored in
// canonical form and must not match an existing entry, ignoring case.
func (d *Document) AddMedication(name, dosage string) (entities.MedicationEntry, error) {
	canonical := CanonicalName(name)
	if canonical == "" {
		return entities.MedicationEntry{}, ErrEmptyName
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, med := range d.state.Medications {
		if SameName(med.Name, canonical) {
			return entities.MedicationEntry{}, ErrDuplicateMedication
		}
	}

	entry := entities.MedicationEntry{
		ID:     d.ids.NewID(),
		Name:   canonical,
		Dosage: strings.TrimSpace(dosage),
	}
	d.state.Medications = append(d.state.Medications, entry)
	return entry, nil
}

// RemoveMedication deletes the entry with the given id.
func (d *Document) RemoveMedication(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, med := range d.state.Medications {
		if med.ID == id {
			d.state.Medications = slices.Delete(d.state.Medications, i, i+1)
			return nil
		}
	}
	return ErrMedicationNotFound
}

// SetDosage changes the dosage of the entry with the given id.
func (d *Document) SetDosage(id, dosage string) (entities.MedicationEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.state.Medications {
		if d.state.Medications[i].ID == id {
			d.state.Medications[i].Dosage = dosage
			return d.state.Medications[i], nil
		}
	}
	return entities.MedicationEntry{}, ErrMedicationNotFound
}
