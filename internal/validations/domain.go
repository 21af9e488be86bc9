package validations

import (
	"time"

	"github.com/google/uuid"

	"github.com/titulaflow/titulaflow/internal/shared"
)

// Process tags the office-owned approval stage a record belongs to.
type Process string

const (
	ProcessFees       Process = "fees"
	ProcessGrades     Process = "grades"
	ProcessModality   Process = "modality"
	ProcessEnglish    Process = "english"
	ProcessInternship Process = "internship"
	ProcessOutreach   Process = "outreach"
)

// Processes lists every known process tag.
var Processes = []Process{
	ProcessFees,
	ProcessGrades,
	ProcessModality,
	ProcessEnglish,
	ProcessInternship,
	ProcessOutreach,
}

// Valid reports whether p is a known process tag.
func (p Process) Valid() bool {
	for _, known := range Processes {
		if p == known {
			return true
		}
	}
	return false
}

// OfficeRole returns the administrative office notified about decisions on
// this process, or "" when only the student is notified.
func (p Process) OfficeRole() string {
	switch p {
	case ProcessFees:
		return shared.RoleFinanceOffice
	case ProcessGrades:
		return shared.RoleRecordsOffice
	case ProcessModality:
		return shared.RoleTitulationOffice
	default:
		return ""
	}
}

// ValidationState enumerates ledger states.
type ValidationState string

const (
	StatePending  ValidationState = "PENDING"
	StateApproved ValidationState = "APPROVED"
	StateRejected ValidationState = "REJECTED"
)

// Record is the single approval row per (process, period, student). History is
// expressed by overwriting state; rows are never deleted.
type Record struct {
	ID          int64           `json:"id"`
	Process     Process         `json:"process"`
	PeriodID    int64           `json:"period_id"`
	StudentID   int64           `json:"student_id"`
	State       ValidationState `json:"state"`
	Observation *string         `json:"observation,omitempty"`
	DocumentID  *uuid.UUID      `json:"document_id,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DecisionRequest carries the optional observation attached to a rejection.
type DecisionRequest struct {
	Observation *string `json:"observation,omitempty" validate:"omitempty,max=1000"`
}
