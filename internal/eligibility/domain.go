package eligibility

import "github.com/titulaflow/titulaflow/internal/validations"

// prerequisites maps a downstream process to the upstream clearances that
// must be APPROVED before a student becomes a candidate for it.
var prerequisites = map[validations.Process][]validations.Process{
	validations.ProcessModality:   {validations.ProcessGrades, validations.ProcessFees},
	validations.ProcessEnglish:    {validations.ProcessFees},
	validations.ProcessInternship: {validations.ProcessFees},
	validations.ProcessOutreach:   {validations.ProcessFees},
}

// PrerequisitesFor returns the upstream processes gating the given process,
// or nil when the process has no upstream gate.
func PrerequisitesFor(process validations.Process) []validations.Process {
	return prerequisites[process]
}

// Candidate is an eligible student enriched, best effort, from the legacy
// enrollment source. Name and Program stay empty when the source is down.
type Candidate struct {
	StudentID int64  `json:"student_id"`
	Name      string `json:"name,omitempty"`
	CareerID  *int64 `json:"career_id,omitempty"`
	Program   string `json:"program,omitempty"`
}

// StandingValue reports how far a student is from clearing the prerequisites
// of a process.
type StandingValue string

const (
	// StandingMissing: at least one prerequisite has no ledger row at all.
	StandingMissing StandingValue = "missing"
	// StandingPending: no rejection, but some prerequisite is still pending.
	StandingPending StandingValue = "pending"
	// StandingRejected: at least one prerequisite was explicitly rejected.
	StandingRejected StandingValue = "rejected"
	// StandingApproved: every prerequisite is approved.
	StandingApproved StandingValue = "approved"
)

// Standing is the tri-state answer distinguishing "never submitted" from
// "rejected" for one student.
type Standing struct {
	StudentID int64         `json:"student_id"`
	Standing  StandingValue `json:"standing"`
}
