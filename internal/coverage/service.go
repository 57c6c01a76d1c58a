package coverage

import (
	"context"
	"fmt"
	"time"

	"github.com/mygarage/mygarage/internal/garage"
	"github.com/mygarage/mygarage/internal/platform/httpx"
)

// Access answers garage membership questions for coverage operations.
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

func (s *Service) Warranties(ctx context.Context, userID, vehicleID int64) ([]Warranty, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, vehicleID, garage.RoleViewer); err != nil {
		return nil, err
	}
	return s.repo.Warranties(ctx, vehicleID)
}

func (s *Service) CreateWarranty(ctx context.Context, userID int64, req WarrantyRequest) (Warranty, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, req.VehicleID, garage.RoleEditor); err != nil {
		return Warranty{}, err
	}
	w, err := warrantyFromRequest(req)
	if err != nil {
		return Warranty{}, err
	}
	return s.repo.CreateWarranty(ctx, w)
}

func (s *Service) UpdateWarranty(ctx context.Context, userID, id int64, req WarrantyRequest) (Warranty, error) {
	existing, err := s.repo.GetWarranty(ctx, id)
	if err != nil {
		return Warranty{}, err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, existing.VehicleID, garage.RoleEditor); err != nil {
		return Warranty{}, err
	}
	w, err := warrantyFromRequest(req)
	if err != nil {
		return Warranty{}, err
	}
	if err := s.repo.UpdateWarranty(ctx, id, w); err != nil {
		return Warranty{}, err
	}
	return s.repo.GetWarranty(ctx, id)
}

func (s *Service) DeleteWarranty(ctx context.Context, userID, id int64) error {
	existing, err := s.repo.GetWarranty(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, existing.VehicleID, garage.RoleEditor); err != nil {
		return err
	}
	return s.repo.DeleteWarranty(ctx, id)
}

// ExpiringWarranties feeds the reminder scan. Not access-checked: callers
// are background jobs acting on behalf of the owning user.
func (s *Service) ExpiringWarranties(ctx context.Context, from, to time.Time) ([]ExpiringWarranty, error) {
	return s.repo.ExpiringWarranties(ctx, from, to)
}

func (s *Service) Bulletins(ctx context.Context, userID, vehicleID int64, includeResolved bool) ([]TSB, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, vehicleID, garage.RoleViewer); err != nil {
		return nil, err
	}
	return s.repo.Bulletins(ctx, vehicleID, includeResolved)
}

func (s *Service) CreateBulletin(ctx context.Context, userID int64, req TSBRequest) (TSB, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, req.VehicleID, garage.RoleEditor); err != nil {
		return TSB{}, err
	}
	b, err := tsbFromRequest(req)
	if err != nil {
		return TSB{}, err
	}
	return s.repo.CreateBulletin(ctx, b)
}

func (s *Service) UpdateBulletin(ctx context.Context, userID, id int64, req TSBRequest) (TSB, error) {
	existing, err := s.repo.GetBulletin(ctx, id)
	if err != nil {
		return TSB{}, err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, existing.VehicleID, garage.RoleEditor); err != nil {
		return TSB{}, err
	}
	b, err := tsbFromRequest(req)
	if err != nil {
		return TSB{}, err
	}
	if err := s.repo.UpdateBulletin(ctx, id, b); err != nil {
		return TSB{}, err
	}
	return s.repo.GetBulletin(ctx, id)
}

func (s *Service) DeleteBulletin(ctx context.Context, userID, id int64) error {
	existing, err := s.repo.GetBulletin(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, existing.VehicleID, garage.RoleEditor); err != nil {
		return err
	}
	return s.repo.DeleteBulletin(ctx, id)
}

func warrantyFromRequest(req WarrantyRequest) (Warranty, error) {
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return Warranty{}, fmt.Errorf("%w: start_date must be YYYY-MM-DD", httpx.ErrValidation)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return Warranty{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", httpx.ErrValidation)
	}
	if end.Before(start) {
		return Warranty{}, fmt.Errorf("%w: end_date precedes start_date", httpx.ErrValidation)
	}
	return Warranty{
		VehicleID:    req.VehicleID,
		Name:         req.Name,
		Provider:     req.Provider,
		StartDate:    start,
		EndDate:      end,
		MileageLimit: req.MileageLimit,
		Notes:        req.Notes,
	}, nil
}

func tsbFromRequest(req TSBRequest) (TSB, error) {
	issued, err := time.Parse("2006-01-02", req.IssuedOn)
	if err != nil {
		return TSB{}, fmt.Errorf("%w: issued_on must be YYYY-MM-DD", httpx.ErrValidation)
	}
	return TSB{
		VehicleID: req.VehicleID,
		Reference: req.Reference,
		Title:     req.Title,
		Summary:   req.Summary,
		IssuedOn:  issued,
		URL:       req.URL,
		Resolved:  req.Resolved,
	}, nil
}
