package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/validation"
)

type wireMedication struct {
	Name   string  `json:"name" validate:"required,max=200,safetext"`
	Dosage *string `json:"dosage" validate:"required,max=500,safetext"`
}

type wireResult struct {
	Action      string           `json:"action" validate:"required,oneof=REPLACE_ALL ADD_MEDICATION"`
	PatientName *string          `json:"patientName" validate:"omitempty,max=200,safetext"`
	Medications []wireMedication `json:"medications" validate:"required,min=1,dive"`
}

// Parse decodes and validates a raw service response. Any missing required
// field, empty medication list or malformed JSON is an ErrExtractionFailed and
// no partial result is returned.
func Parse(content string) (entities.ExtractionResult, error) {
	var wire wireResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &wire); err != nil {
		return entities.ExtractionResult{}, fmt.Errorf("%w: malformed response: %w", entities.ErrExtractionFailed, err)
	}

	for i := range wire.Medications {
		wire.Medications[i].Name = strings.TrimSpace(wire.Medications[i].Name)
	}

	if err := validation.Struct(wire); err != nil {
		return entities.ExtractionResult{}, fmt.Errorf("%w: %w", entities.ErrExtractionFailed, err)
	}

	result := entities.ExtractionResult{
		Action:      entities.Action(wire.Action),
		Medications: make([]entities.ExtractedMedication, 0, len(wire.Medications)),
	}
	if wire.PatientName != nil {
		result.PatientName = strings.TrimSpace(*wire.PatientName)
	}
	for _, m := range wire.Medications {
		result.Medications = append(result.Medications, entities.ExtractedMedication{
			Name:   m.Name,
			Dosage: strings.TrimSpace(*m.Dosage),
		})
	}
	return result, nil
}
