package prescription

import (
	"github.com/giygas/prescription-dictation/entities"
	"github.com/giygas/prescription-dictation/interfaces"
)

// Merge folds an extraction result into current and returns the new state.
// current is never modified. Apart from drawing ids from ids, Merge has no side
// effects: merging the same result twice gives equal names, dosages and order.
//
// REPLACE_ALL discards every prior entry and overwrites the patient name, with
// the empty string when the result has none. The date is never dictated. ADD_MEDICATION appends only the
// first medication of the result and leaves everything else untouched; unlike
// manual entry it does not reject repeated names.
func Merge(current State, result entities.ExtractionResult, ids interfaces.IDSource) State {
	switch result.Action {
	case entities.ActionReplaceAll:
		meds := make([]entities.MedicationEntry, 0, len(result.Medications))
		for _, m := range result.Medications {
			meds = append(meds, newEntry(ids, m))
		}
		return State{PatientName: result.PatientName, Date: current.Date, Medications: meds}

	case entities.ActionAddMedication:
		next := current.Clone()
		if len(result.Medications) == 0 {
			return next
		}
		next.Medications = append(next.Medications, newEntry(ids, result.Medications[0]))
		return next

	default:
		return current.Clone()
	}
}

func newEntry(ids interfaces.IDSource, m entities.ExtractedMedication) entities.MedicationEntry {
	return entities.MedicationEntry{
		ID:     ids.NewID(),
		Name:   CanonicalName(m.Name),
		Dosage: m.Dosage,
	}
}
