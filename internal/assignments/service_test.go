package assignments

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/titulaflow/titulaflow/internal/shared"
	"github.com/titulaflow/titulaflow/internal/validations"
)

type assignmentKey struct {
	periodID  int64
	studentID int64
}

type memoryAssignmentRepo struct {
	assignments map[assignmentKey]Assignment
	subjects    []SubjectLoad
	nextID      int64
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{assignments: make(map[assignmentKey]Assignment)}
}

func (r *memoryAssignmentRepo) row(periodID, studentID int64) Assignment {
	key := assignmentKey{periodID, studentID}
	a, ok := r.assignments[key]
	if !ok {
		r.nextID++
		a = Assignment{ID: r.nextID, PeriodID: periodID, StudentID: studentID}
		r.assignments[key] = a
	}
	return a
}

func (r *memoryAssignmentRepo) AssignRole(_ context.Context, periodID, studentID int64, role Role, staffID int64) (Assignment, *int64, error) {
	a := r.row(periodID, studentID)
	if a.occupies(staffID, role) {
		return Assignment{}, nil, fmt.Errorf("%w: staff member already holds another role for this student", shared.ErrInvalidArgument)
	}
	var previous *int64
	switch role {
	case RoleTutor:
		if a.TutorID != nil && *a.TutorID != staffID {
			prev := *a.TutorID
			previous = &prev
		}
		a.TutorID = &staffID
	case RoleReader:
		if a.ReaderID != nil && *a.ReaderID != staffID {
			prev := *a.ReaderID
			previous = &prev
		}
		a.ReaderID = &staffID
	}
	r.assignments[assignmentKey{periodID, studentID}] = a
	return a, previous, nil
}

func (r *memoryAssignmentRepo) AssignPanel(_ context.Context, periodID, studentID int64, staffIDs []int64, replace bool) (Assignment, error) {
	a := r.row(periodID, studentID)
	hasPanel := a.PanelIDs() != nil
	if !replace && hasPanel {
		return Assignment{}, fmt.Errorf("%w: panel already recorded", shared.ErrConflict)
	}
	if replace && !hasPanel {
		return Assignment{}, fmt.Errorf("%w: no panel to replace", shared.ErrConflict)
	}
	for _, id := range staffIDs {
		if (a.TutorID != nil && *a.TutorID == id) || (a.ReaderID != nil && *a.ReaderID == id) {
			return Assignment{}, fmt.Errorf("%w: staff member already holds another role for this student", shared.ErrInvalidArgument)
		}
	}
	a.Panel1ID, a.Panel2ID, a.Panel3ID = &staffIDs[0], &staffIDs[1], &staffIDs[2]
	r.assignments[assignmentKey{periodID, studentID}] = a
	return a, nil
}

func (r *memoryAssignmentRepo) Get(_ context.Context, periodID, studentID int64) (Assignment, error) {
	a, ok := r.assignments[assignmentKey{periodID, studentID}]
	if !ok {
		return Assignment{}, shared.ErrNotFound
	}
	return a, nil
}

func (r *memoryAssignmentRepo) RegisterSubject(_ context.Context, load SubjectLoad) (SubjectLoad, error) {
	count := 0
	for _, s := range r.subjects {
		if s.UnitID == load.UnitID && s.CareerID == load.CareerID && s.PeriodID == load.PeriodID {
			count++
		}
	}
	if count >= MaxSubjectsPerCareer {
		return SubjectLoad{}, fmt.Errorf("%w: subject cap reached for this career", shared.ErrConflict)
	}
	r.nextID++
	load.ID = r.nextID
	r.subjects = append(r.subjects, load)
	return load, nil
}

func (r *memoryAssignmentRepo) ListSubjects(_ context.Context, unitID, careerID, periodID int64) ([]SubjectLoad, error) {
	var out []SubjectLoad
	for _, s := range r.subjects {
		if s.UnitID == unitID && s.CareerID == careerID && s.PeriodID == periodID {
			out = append(out, s)
		}
	}
	return out, nil
}

type stubClearanceLedger struct {
	records map[validations.Key]validations.Record
}

func (l *stubClearanceLedger) Get(_ context.Context, key validations.Key) (validations.Record, error) {
	rec, ok := l.records[key]
	if !ok {
		return validations.Record{}, shared.ErrNotFound
	}
	return rec, nil
}

type userNotifier struct {
	sent []sentTo
}

type sentTo struct {
	userID int64
	title  string
}

func (n *userNotifier) NotifyUser(_ context.Context, userID int64, title, _ string) {
	n.sent = append(n.sent, sentTo{userID: userID, title: title})
}

func approvedModality(periodID, studentID int64) *stubClearanceLedger {
	key := validations.Key{Process: validations.ProcessModality, PeriodID: periodID, StudentID: studentID}
	return &stubClearanceLedger{records: map[validations.Key]validations.Record{
		key: {Process: key.Process, PeriodID: periodID, StudentID: studentID, State: validations.StateApproved},
	}}
}

func TestAssignTutorRequiresModalityClearance(t *testing.T) {
	svc := NewService(newMemoryAssignmentRepo(), &stubClearanceLedger{records: map[validations.Key]validations.Record{}}, &userNotifier{})

	_, err := svc.AssignTutor(context.Background(), 1, 42, 7)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	require.ErrorContains(t, err, "modality")
}

func TestOverrideBypassesModalityPrecondition(t *testing.T) {
	svc := NewService(newMemoryAssignmentRepo(), &stubClearanceLedger{records: map[validations.Key]validations.Record{}}, &userNotifier{})

	ctx := shared.ContextWithCaller(context.Background(), shared.Caller{UserID: 1, Override: true})
	assignment, err := svc.AssignTutor(ctx, 1, 42, 7)
	require.NoError(t, err)
	require.NotNil(t, assignment.TutorID)
	require.Equal(t, int64(7), *assignment.TutorID)
}

func TestSameStaffCannotHoldTutorAndReader(t *testing.T) {
	svc := NewService(newMemoryAssignmentRepo(), approvedModality(1, 42), &userNotifier{})

	_, err := svc.AssignTutor(context.Background(), 1, 42, 7)
	require.NoError(t, err)

	_, err = svc.AssignReader(context.Background(), 1, 42, 7)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestReassignTutorNotifiesPreviousHolder(t *testing.T) {
	notifier := &userNotifier{}
	svc := NewService(newMemoryAssignmentRepo(), approvedModality(1, 42), notifier)

	_, err := svc.AssignTutor(context.Background(), 1, 42, 7)
	require.NoError(t, err)
	notifier.sent = nil

	assignment, err := svc.AssignTutor(context.Background(), 1, 42, 8)
	require.NoError(t, err)
	require.Equal(t, int64(8), *assignment.TutorID)

	require.Len(t, notifier.sent, 2)
	require.Equal(t, sentTo{userID: 7, title: "Asignación retirada"}, notifier.sent[0])
	require.Equal(t, sentTo{userID: 8, title: "Nueva asignación"}, notifier.sent[1])
}

func TestPanelValidatesShapeBeforeTouchingStorage(t *testing.T) {
	svc := NewService(newMemoryAssignmentRepo(), approvedModality(1, 42), &userNotifier{})

	_, err := svc.AssignPanel(context.Background(), 1, 42, []int64{1, 2})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = svc.AssignPanel(context.Background(), 1, 42, []int64{1, 2, 2})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = svc.AssignPanel(context.Background(), 1, 42, []int64{1, 2, 0})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestPanelAssignOnceThenReplace(t *testing.T) {
	notifier := &userNotifier{}
	svc := NewService(newMemoryAssignmentRepo(), approvedModality(1, 42), notifier)

	assignment, err := svc.AssignPanel(context.Background(), 1, 42, []int64{10, 11, 12})
	require.NoError(t, err)
	require.Equal(t, []int64{10, 11, 12}, assignment.PanelIDs())
	require.Len(t, notifier.sent, 3)

	_, err = svc.AssignPanel(context.Background(), 1, 42, []int64{13, 14, 15})
	require.ErrorIs(t, err, shared.ErrConflict)

	assignment, err = svc.ReplacePanel(context.Background(), 1, 42, []int64{13, 14, 15})
	require.NoError(t, err)
	require.Equal(t, []int64{13, 14, 15}, assignment.PanelIDs())
}

func TestReplacePanelRequiresExistingPanel(t *testing.T) {
	svc := NewService(newMemoryAssignmentRepo(), approvedModality(1, 42), &userNotifier{})

	_, err := svc.ReplacePanel(context.Background(), 1, 42, []int64{10, 11, 12})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestPanelMemberCannotAlreadyBeTutor(t *testing.T) {
	svc := NewService(newMemoryAssignmentRepo(), approvedModality(1, 42), &userNotifier{})

	_, err := svc.AssignTutor(context.Background(), 1, 42, 10)
	require.NoError(t, err)

	_, err = svc.AssignPanel(context.Background(), 1, 42, []int64{10, 11, 12})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestSubjectRegistrationCap(t *testing.T) {
	repo := newMemoryAssignmentRepo()
	svc := NewService(repo, approvedModality(1, 42), &userNotifier{})

	for i := int64(1); i <= MaxSubjectsPerCareer; i++ {
		_, err := svc.RegisterSubject(context.Background(), 1, RegisterSubjectRequest{
			UnitID: 3, CareerID: 5, SubjectID: 100 + i, TutorID: i,
		})
		require.NoError(t, err)
	}

	_, err := svc.RegisterSubject(context.Background(), 1, RegisterSubjectRequest{
		UnitID: 3, CareerID: 5, SubjectID: 200, TutorID: 9,
	})
	require.ErrorIs(t, err, shared.ErrConflict)

	// Another career in the same unit is unaffected.
	_, err = svc.RegisterSubject(context.Background(), 1, RegisterSubjectRequest{
		UnitID: 3, CareerID: 6, SubjectID: 200, TutorID: 9,
	})
	require.NoError(t, err)

	loads, err := svc.ListSubjects(context.Background(), 3, 5, 1)
	require.NoError(t, err)
	require.Len(t, loads, MaxSubjectsPerCareer)
}

func TestOccupiesSkipsSlotBeingWritten(t *testing.T) {
	seven := int64(7)
	a := Assignment{TutorID: &seven}
	// Re-assigning the same tutor is not a conflict.
	require.False(t, a.occupies(7, RoleTutor))
	require.True(t, a.occupies(7, RoleReader))
}
