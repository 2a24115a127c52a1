package entities

// Action tells the merger how an extraction result applies to the prescription.
type Action string

const (
	ActionReplaceAll    Action = "REPLACE_ALL"
	ActionAddMedication Action = "ADD_MEDICATION"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	return a == ActionReplaceAll || a == ActionAddMedication
}

// ExtractedMedication is a medication as returned by the extraction service.
type ExtractedMedication struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}

// ExtractionResult is the validated output of one analysis call.
// Medications always holds at least one item; PatientName is empty when the
// service did not return one.
type ExtractionResult struct {
	Action      Action                `json:"action"`
	PatientName string                `json:"patientName,omitempty"`
	Medications []ExtractedMedication `json:"medications"`
}
