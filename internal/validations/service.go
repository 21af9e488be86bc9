package validations

import (
	"context"
	"fmt"

	"github.com/titulaflow/titulaflow/internal/shared"
)

type notifier interface {
	NotifyUser(ctx context.Context, userID int64, title, body string)
	NotifyRole(ctx context.Context, role, title, body string)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service applies ledger transitions and fans out the resulting notifications.
type Service struct {
	repo     Repository
	notifier notifier
	audit    AuditPort
}

// NewService constructs a validation service.
func NewService(repo Repository, n notifier, audit AuditPort) *Service {
	return &Service{repo: repo, notifier: n, audit: audit}
}

func (s *Service) recordAudit(ctx context.Context, action string, rec Record) {
	if s.audit == nil {
		return
	}
	caller := shared.CallerFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  caller.UserID,
		Action:   fmt.Sprintf("validations:%s", action),
		Entity:   "validation",
		EntityID: fmt.Sprintf("%s/%d/%d", rec.Process, rec.PeriodID, rec.StudentID),
		Meta:     map[string]any{"state": rec.State},
	})
}

func (s *Service) checkKey(key Key) error {
	if !key.Process.Valid() {
		return fmt.Errorf("%w: unknown process %q", shared.ErrInvalidArgument, key.Process)
	}
	if key.PeriodID <= 0 || key.StudentID <= 0 {
		return fmt.Errorf("%w: period and student are required", shared.ErrInvalidArgument)
	}
	return nil
}

// Approve records an office approval, creating the row on first decision.
func (s *Service) Approve(ctx context.Context, key Key) (Record, error) {
	if err := s.checkKey(key); err != nil {
		return Record{}, err
	}
	rec, prev, err := s.repo.Approve(ctx, key)
	if err != nil {
		return Record{}, err
	}
	if prev != rec.State {
		s.recordAudit(ctx, "approve", rec)
		s.fanOut(ctx, rec, "Trámite aprobado",
			fmt.Sprintf("Tu trámite de %s fue aprobado.", rec.Process))
	}
	return rec, nil
}

// Reject records an office rejection with an optional observation.
func (s *Service) Reject(ctx context.Context, key Key, observation *string) (Record, error) {
	if err := s.checkKey(key); err != nil {
		return Record{}, err
	}
	rec, prev, err := s.repo.Reject(ctx, key, observation)
	if err != nil {
		return Record{}, err
	}
	if prev != rec.State {
		s.recordAudit(ctx, "reject", rec)
		body := fmt.Sprintf("Tu trámite de %s fue rechazado.", rec.Process)
		if rec.Observation != nil && *rec.Observation != "" {
			body = fmt.Sprintf("%s Observación: %s", body, *rec.Observation)
		}
		s.fanOut(ctx, rec, "Trámite rechazado", body)
	}
	return rec, nil
}

// Reconsider moves a rejected record back to pending so the office can decide
// again. Refused once a certificate has been issued against the record.
func (s *Service) Reconsider(ctx context.Context, key Key) (Record, error) {
	if err := s.checkKey(key); err != nil {
		return Record{}, err
	}
	rec, err := s.repo.Reconsider(ctx, key)
	if err != nil {
		return Record{}, err
	}
	s.recordAudit(ctx, "reconsider", rec)
	s.fanOut(ctx, rec, "Trámite en revisión",
		fmt.Sprintf("Tu trámite de %s volvió a revisión.", rec.Process))
	return rec, nil
}

// Get returns the ledger row for one key.
func (s *Service) Get(ctx context.Context, key Key) (Record, error) {
	if err := s.checkKey(key); err != nil {
		return Record{}, err
	}
	return s.repo.Get(ctx, key)
}

// ListByProcess returns every row for a process within a period.
func (s *Service) ListByProcess(ctx context.Context, process Process, periodID int64) ([]Record, error) {
	if !process.Valid() {
		return nil, fmt.Errorf("%w: unknown process %q", shared.ErrInvalidArgument, process)
	}
	return s.repo.ListByProcess(ctx, process, periodID)
}

func (s *Service) fanOut(ctx context.Context, rec Record, title, body string) {
	s.notifier.NotifyUser(ctx, rec.StudentID, title, body)
	if role := rec.Process.OfficeRole(); role != "" {
		s.notifier.NotifyRole(ctx, role, title,
			fmt.Sprintf("Trámite %s del estudiante %d: %s", rec.Process, rec.StudentID, rec.State))
	}
}
