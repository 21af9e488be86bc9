package issuance

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/titulaflow/titulaflow/internal/validations"
)

// Document is one issued certificate. Created exactly once per
// (kind, student, period) and immutable thereafter; the validation ledger
// references it, never owns it.
type Document struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	StudentID  int64     `json:"student_id"`
	PeriodID   int64     `json:"period_id"`
	IssuerID   int64     `json:"issuer_id"`
	StorageRef string    `json:"storage_ref"`
	CreatedAt  time.Time `json:"created_at"`
}

// KindFor maps a process tag onto its certificate kind.
func KindFor(process validations.Process) string {
	return fmt.Sprintf("clearance-%s", process)
}
