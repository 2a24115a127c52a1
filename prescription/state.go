// Package prescription owns the live prescription: its state, the manual edits
// made on the host surface and the reconciliation of dictated results into it.
package prescription

import "github.com/giygas/prescription-dictation/entities"

// State is a snapshot of a prescription. Medication order is display and print order.
// Date is the prescription date as printed, DD/MM/YYYY unless edited.
type State struct {
	PatientName string                     `json:"patientName"`
	Date        string                     `json:"date"`
	Medications []entities.MedicationEntry `json:"medications"`
}

// Clone returns a copy of s that shares no backing array with it.
func (s State) Clone() State {
	meds := make([]entities.MedicationEntry, len(s.Medications))
	copy(meds, s.Medications)
	return State{PatientName: s.PatientName, Date: s.Date, Medications: meds}
}
