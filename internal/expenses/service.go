package expenses

import (
	"context"
	"fmt"
	"time"

	"github.com/mygarage/mygarage/internal/garage"
	"github.com/mygarage/mygarage/internal/platform/httpx"
)

// Access answers garage membership questions for expense operations.
type Access interface {
	RequireVehicleRole(ctx context.Context, userID, vehicleID int64, min garage.Role) error
}

type Service struct {
	repo   Repository
	access Access
}

func NewService(repo Repository, access Access) *Service {
	return &Service{repo: repo, access: access}
}

func (s *Service) List(ctx context.Context, userID int64, filters ListFilters) ([]Expense, int, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, filters.VehicleID, garage.RoleViewer); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (Expense, error) {
	if id <= 0 {
		return Expense{}, fmt.Errorf("%w: invalid expense id", httpx.ErrValidation)
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, e.VehicleID, garage.RoleViewer); err != nil {
		return Expense{}, err
	}
	return e, nil
}

func (s *Service) Create(ctx context.Context, userID int64, req UpsertRequest) (Expense, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, req.VehicleID, garage.RoleEditor); err != nil {
		return Expense{}, err
	}
	e, err := fromRequest(req)
	if err != nil {
		return Expense{}, err
	}
	return s.repo.Create(ctx, e)
}

func (s *Service) Update(ctx context.Context, userID, id int64, req UpsertRequest) (Expense, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return Expense{}, err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, existing.VehicleID, garage.RoleEditor); err != nil {
		return Expense{}, err
	}
	e, err := fromRequest(req)
	if err != nil {
		return Expense{}, err
	}
	if err := s.repo.Update(ctx, id, e); err != nil {
		return Expense{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, existing.VehicleID, garage.RoleEditor); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// RenewingTaxes feeds the reminder scan. Not access-checked: callers are
// background jobs acting on behalf of the owning user.
func (s *Service) RenewingTaxes(ctx context.Context, from, to time.Time) ([]RenewingTax, error) {
	return s.repo.RenewingTaxes(ctx, from, to)
}

func fromRequest(req UpsertRequest) (Expense, error) {
	incurred, err := time.Parse("2006-01-02", req.IncurredOn)
	if err != nil {
		return Expense{}, fmt.Errorf("%w: incurred_on must be YYYY-MM-DD", httpx.ErrValidation)
	}
	e := Expense{
		VehicleID:   req.VehicleID,
		Kind:        req.Kind,
		Description: req.Description,
		Amount:      req.Amount,
		IncurredOn:  incurred,
	}
	if req.RenewsOn != "" {
		if req.Kind != KindTax {
			return Expense{}, fmt.Errorf("%w: only taxes carry a renewal date", httpx.ErrValidation)
		}
		renews, err := time.Parse("2006-01-02", req.RenewsOn)
		if err != nil {
			return Expense{}, fmt.Errorf("%w: renews_on must be YYYY-MM-DD", httpx.ErrValidation)
		}
		e.RenewsOn = &renews
	}
	return e, nil
}
