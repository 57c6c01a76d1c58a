package vehicles

import (
	"context"
	"fmt"

	"github.com/mygarage/mygarage/internal/garage"
	"github.com/mygarage/mygarage/internal/platform/httpx"
)

// Access answers garage membership questions for vehicle operations.
type Access interface {
	CanAccessGarage(ctx context.Context, userID, garageID int64) error
	RequireRole(ctx context.Context, userID, garageID int64, min garage.Role) error
	RequireVehicleRole(ctx context.Context, userID, vehicleID int64, min garage.Role) error
}

type Service struct {
	repo   Repository
	access Access
}

func NewService(repo Repository, access Access) *Service {
	return &Service{repo: repo, access: access}
}

func (s *Service) List(ctx context.Context, userID int64, filters ListFilters) ([]Vehicle, int, error) {
	if err := s.access.CanAccessGarage(ctx, userID, filters.GarageID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (Vehicle, error) {
	if id <= 0 {
		return Vehicle{}, fmt.Errorf("%w: invalid vehicle id", httpx.ErrValidation)
	}
	if err := s.access.RequireVehicleRole(ctx, userID, id, garage.RoleViewer); err != nil {
		return Vehicle{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, userID int64, req UpsertRequest) (Vehicle, error) {
	if err := s.access.RequireRole(ctx, userID, req.GarageID, garage.RoleEditor); err != nil {
		return Vehicle{}, err
	}
	return s.repo.Create(ctx, fromRequest(req))
}

// Update rewrites a vehicle in place. Moving a vehicle between garages is
// not supported; the stored garage_id wins over the request body.
func (s *Service) Update(ctx context.Context, userID, id int64, req UpsertRequest) (Vehicle, error) {
	if id <= 0 {
		return Vehicle{}, fmt.Errorf("%w: invalid vehicle id", httpx.ErrValidation)
	}
	if err := s.access.RequireVehicleRole(ctx, userID, id, garage.RoleEditor); err != nil {
		return Vehicle{}, err
	}
	if err := s.repo.Update(ctx, id, fromRequest(req)); err != nil {
		return Vehicle{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid vehicle id", httpx.ErrValidation)
	}
	if err := s.access.RequireVehicleRole(ctx, userID, id, garage.RoleOwner); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func fromRequest(req UpsertRequest) Vehicle {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return Vehicle{
		GarageID:        req.GarageID,
		Name:            req.Name,
		Make:            req.Make,
		Model:           req.Model,
		Year:            req.Year,
		VIN:             req.VIN,
		LicensePlate:    req.LicensePlate,
		InitialOdometer: req.InitialOdometer,
		IsActive:        active,
	}
}
