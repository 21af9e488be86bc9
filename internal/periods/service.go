package periods

import (
	"context"
	"fmt"
	"time"

	"github.com/titulaflow/titulaflow/internal/shared"
)

type notifier interface {
	NotifyRole(ctx context.Context, role, title, body string)
}

// Service owns the period lifecycle and the active-period selector.
type Service struct {
	repo     Repository
	notifier notifier
	now      func() time.Time
}

// NewService constructs a period service.
func NewService(repo Repository, n notifier) *Service {
	return &Service{repo: repo, notifier: n, now: time.Now}
}

// Create registers a new period in DRAFT status.
func (s *Service) Create(ctx context.Context, req CreatePeriodRequest) (Period, error) {
	if !req.EndDate.After(req.StartDate) {
		return Period{}, fmt.Errorf("%w: end date must follow start date", shared.ErrInvalidArgument)
	}
	return s.repo.Create(ctx, Period{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
}

// Get returns one period.
func (s *Service) Get(ctx context.Context, id int64) (Period, error) {
	return s.repo.Get(ctx, id)
}

// List returns all periods, newest first.
func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.List(ctx)
}

// Activate makes the target period the single active one. Every office role
// is notified of the new active period.
func (s *Service) Activate(ctx context.Context, id int64) (Period, error) {
	period, err := s.repo.Activate(ctx, id, s.now())
	if err != nil {
		return Period{}, err
	}
	for _, role := range shared.OfficeRoles {
		s.notifier.NotifyRole(ctx, role, "Periodo activo",
			fmt.Sprintf("El periodo %s está ahora activo.", period.Name))
	}
	return period, nil
}

// GetActive returns the current active period or nil, expiring it first when
// its end date has passed.
func (s *Service) GetActive(ctx context.Context) (*Period, error) {
	return s.repo.GetActive(ctx, s.now())
}

// Close sets the period to CLOSED and clears the active pointer if it held it.
func (s *Service) Close(ctx context.Context, id int64) (Period, error) {
	return s.repo.Close(ctx, id)
}

// CloseExpired closes every overdue active period. Invoked by the nightly
// sweep job.
func (s *Service) CloseExpired(ctx context.Context) (int64, error) {
	return s.repo.CloseExpired(ctx, s.now())
}
