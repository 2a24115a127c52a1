// Package entities holds the data shapes shared by every layer of the
// dictation service: prescription entries, extraction results and capture events.
package entities

// MedicationEntry is one line of a prescription.
// ID is assigned by the service and never leaves it towards the extraction service.
type MedicationEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}
