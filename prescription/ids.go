package prescription

import (
	"github.com/giygas/prescription-dictation/interfaces"
	"github.com/google/uuid"
)

// Compile-time check to ensure UUIDSource implements IDSource
var _ interfaces.IDSource = UUIDSource{}

// UUIDSource issues UUIDv7 identifiers. Within one process they are
// time ordered and strictly increasing.
type UUIDSource struct{}

// NewID returns a fresh identifier.
func (UUIDSource) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
