package assignments

import "time"

// Role names the two single-holder supervisory slots.
type Role string

const (
	RoleTutor  Role = "tutor"
	RoleReader Role = "reader"
)

// Assignment holds the supervisory role bindings for one (period, student).
// The panel seats are numbered for storage, not ranked. No staff identity may
// occupy more than one slot within the same assignment.
type Assignment struct {
	ID        int64     `json:"id"`
	PeriodID  int64     `json:"period_id"`
	StudentID int64     `json:"student_id"`
	TutorID   *int64    `json:"tutor_id,omitempty"`
	ReaderID  *int64    `json:"reader_id,omitempty"`
	Panel1ID  *int64    `json:"panel1_id,omitempty"`
	Panel2ID  *int64    `json:"panel2_id,omitempty"`
	Panel3ID  *int64    `json:"panel3_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PanelIDs returns the recorded panel seats, nil when no panel exists yet.
func (a Assignment) PanelIDs() []int64 {
	if a.Panel1ID == nil || a.Panel2ID == nil || a.Panel3ID == nil {
		return nil
	}
	return []int64{*a.Panel1ID, *a.Panel2ID, *a.Panel3ID}
}

// occupies reports whether staffID already holds a slot other than the one
// being written.
func (a Assignment) occupies(staffID int64, skip Role) bool {
	if skip != RoleTutor && a.TutorID != nil && *a.TutorID == staffID {
		return true
	}
	if skip != RoleReader && a.ReaderID != nil && *a.ReaderID == staffID {
		return true
	}
	for _, seat := range []*int64{a.Panel1ID, a.Panel2ID, a.Panel3ID} {
		if seat != nil && *seat == staffID {
			return true
		}
	}
	return false
}

// AssignRoleRequest is the payload for tutor/reader assignment.
type AssignRoleRequest struct {
	StaffID int64 `json:"staff_id" validate:"required,gt=0"`
}

// AssignPanelRequest carries the three distinct panel members.
type AssignPanelRequest struct {
	StaffIDs []int64 `json:"staff_ids" validate:"required,len=3,dive,gt=0"`
}

// MaxSubjectsPerCareer caps how many subjects an administrative unit may
// register per career per period.
const MaxSubjectsPerCareer = 4

// SubjectLoad is one catalog registration of a subject with its tutor load,
// scoped to (unit, career, period).
type SubjectLoad struct {
	ID        int64     `json:"id"`
	UnitID    int64     `json:"unit_id"`
	CareerID  int64     `json:"career_id"`
	PeriodID  int64     `json:"period_id"`
	SubjectID int64     `json:"subject_id"`
	TutorID   int64     `json:"tutor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterSubjectRequest is the payload for the catalog facet.
type RegisterSubjectRequest struct {
	UnitID    int64 `json:"unit_id" validate:"required,gt=0"`
	CareerID  int64 `json:"career_id" validate:"required,gt=0"`
	SubjectID int64 `json:"subject_id" validate:"required,gt=0"`
	TutorID   int64 `json:"tutor_id" validate:"required,gt=0"`
}
