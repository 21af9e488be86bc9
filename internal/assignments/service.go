package assignments

import (
	"context"
	"errors"
	"fmt"

	"github.com/titulaflow/titulaflow/internal/shared"
	"github.com/titulaflow/titulaflow/internal/validations"
)

type notifier interface {
	NotifyUser(ctx context.Context, userID int64, title, body string)
}

type ledger interface {
	Get(ctx context.Context, key validations.Key) (validations.Record, error)
}

// Service assigns supervisory roles, enforcing exclusivity, the modality
// precondition and panel atomicity.
type Service struct {
	repo     Repository
	ledger   ledger
	notifier notifier
}

// NewService constructs an assignment service.
func NewService(repo Repository, ledger ledger, n notifier) *Service {
	return &Service{repo: repo, ledger: ledger, notifier: n}
}

// requireModalityApproved enforces the upstream precondition: the student
// must hold an APPROVED modality clearance for the period. Callers carrying
// the administrative override capability skip the check.
func (s *Service) requireModalityApproved(ctx context.Context, periodID, studentID int64) error {
	if shared.CallerFromContext(ctx).Override {
		return nil
	}
	rec, err := s.ledger.Get(ctx, validations.Key{
		Process:   validations.ProcessModality,
		PeriodID:  periodID,
		StudentID: studentID,
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("%w: student has no approved modality clearance for this period", shared.ErrInvalidArgument)
		}
		return err
	}
	if rec.State != validations.StateApproved {
		return fmt.Errorf("%w: student has no approved modality clearance for this period", shared.ErrInvalidArgument)
	}
	return nil
}

// AssignTutor binds the tutor slot, overwriting a previous holder.
func (s *Service) AssignTutor(ctx context.Context, periodID, studentID, staffID int64) (Assignment, error) {
	return s.assignRole(ctx, periodID, studentID, RoleTutor, staffID)
}

// AssignReader binds the second-reader slot, overwriting a previous holder.
func (s *Service) AssignReader(ctx context.Context, periodID, studentID, staffID int64) (Assignment, error) {
	return s.assignRole(ctx, periodID, studentID, RoleReader, staffID)
}

func (s *Service) assignRole(ctx context.Context, periodID, studentID int64, role Role, staffID int64) (Assignment, error) {
	if staffID <= 0 {
		return Assignment{}, fmt.Errorf("%w: staff id is required", shared.ErrInvalidArgument)
	}
	if err := s.requireModalityApproved(ctx, periodID, studentID); err != nil {
		return Assignment{}, err
	}
	assignment, previous, err := s.repo.AssignRole(ctx, periodID, studentID, role, staffID)
	if err != nil {
		return Assignment{}, err
	}
	if previous != nil {
		s.notifier.NotifyUser(ctx, *previous, "Asignación retirada",
			fmt.Sprintf("Dejaste de ser %s del estudiante %d.", role, studentID))
	}
	s.notifier.NotifyUser(ctx, staffID, "Nueva asignación",
		fmt.Sprintf("Fuiste asignado como %s del estudiante %d.", role, studentID))
	return assignment, nil
}

// AssignPanel records the three-member panel. Assign-once: an existing panel
// can only change through ReplacePanel.
func (s *Service) AssignPanel(ctx context.Context, periodID, studentID int64, staffIDs []int64) (Assignment, error) {
	return s.writePanel(ctx, periodID, studentID, staffIDs, false)
}

// ReplacePanel swaps all three panel seats in one atomic write.
func (s *Service) ReplacePanel(ctx context.Context, periodID, studentID int64, staffIDs []int64) (Assignment, error) {
	return s.writePanel(ctx, periodID, studentID, staffIDs, true)
}

func (s *Service) writePanel(ctx context.Context, periodID, studentID int64, staffIDs []int64, replace bool) (Assignment, error) {
	if len(staffIDs) != 3 {
		return Assignment{}, fmt.Errorf("%w: a panel has exactly three members", shared.ErrInvalidArgument)
	}
	seen := make(map[int64]struct{}, 3)
	for _, id := range staffIDs {
		if id <= 0 {
			return Assignment{}, fmt.Errorf("%w: staff id is required", shared.ErrInvalidArgument)
		}
		if _, dup := seen[id]; dup {
			return Assignment{}, fmt.Errorf("%w: panel members must be distinct", shared.ErrInvalidArgument)
		}
		seen[id] = struct{}{}
	}
	if err := s.requireModalityApproved(ctx, periodID, studentID); err != nil {
		return Assignment{}, err
	}
	assignment, err := s.repo.AssignPanel(ctx, periodID, studentID, staffIDs, replace)
	if err != nil {
		return Assignment{}, err
	}
	for _, id := range staffIDs {
		s.notifier.NotifyUser(ctx, id, "Nueva asignación",
			fmt.Sprintf("Fuiste asignado al sínodo del estudiante %d.", studentID))
	}
	return assignment, nil
}

// Get returns the assignment row for (period, student).
func (s *Service) Get(ctx context.Context, periodID, studentID int64) (Assignment, error) {
	return s.repo.Get(ctx, periodID, studentID)
}

// RegisterSubject adds a catalog registration subject to the per-career cap.
func (s *Service) RegisterSubject(ctx context.Context, periodID int64, req RegisterSubjectRequest) (SubjectLoad, error) {
	return s.repo.RegisterSubject(ctx, SubjectLoad{
		UnitID:    req.UnitID,
		CareerID:  req.CareerID,
		PeriodID:  periodID,
		SubjectID: req.SubjectID,
		TutorID:   req.TutorID,
	})
}

// ListSubjects returns the catalog registrations for (unit, career, period).
func (s *Service) ListSubjects(ctx context.Context, unitID, careerID, periodID int64) ([]SubjectLoad, error) {
	return s.repo.ListSubjects(ctx, unitID, careerID, periodID)
}
