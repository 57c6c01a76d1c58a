package fuel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mygarage/mygarage/internal/garage"
	"github.com/mygarage/mygarage/internal/platform/httpx"
)

// Access answers garage membership questions for fuel operations.
type Access interface {
	RequireVehicleRole(ctx context.Context, userID, vehicleID int64, min garage.Role) error
}

// Invalidator bumps derived analytics after cost data changes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	repo        Repository
	access      Access
	invalidator Invalidator
	logger      *slog.Logger
}

func NewService(repo Repository, access Access, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, access: access, invalidator: invalidator, logger: logger}
}

func (s *Service) List(ctx context.Context, userID int64, filters ListFilters) ([]Log, int, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, filters.VehicleID, garage.RoleViewer); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (Log, error) {
	if id <= 0 {
		return Log{}, fmt.Errorf("%w: invalid log id", httpx.ErrValidation)
	}
	log, err := s.repo.Get(ctx, id)
	if err != nil {
		return Log{}, err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, log.VehicleID, garage.RoleViewer); err != nil {
		return Log{}, err
	}
	return log, nil
}

func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (Log, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, req.VehicleID, garage.RoleEditor); err != nil {
		return Log{}, err
	}
	log, err := fromRequest(req)
	if err != nil {
		return Log{}, err
	}
	created, err := s.repo.Create(ctx, log)
	if err != nil {
		return Log{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, existing.VehicleID, garage.RoleEditor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) Stats(ctx context.Context, userID, vehicleID int64) (Stats, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, vehicleID, garage.RoleViewer); err != nil {
		return Stats{}, err
	}
	return s.repo.Stats(ctx, vehicleID)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("analytics invalidation failed", slog.Any("error", err))
	}
}

func fromRequest(req CreateRequest) (Log, error) {
	filledOn, err := time.Parse("2006-01-02", req.FilledOn)
	if err != nil {
		return Log{}, fmt.Errorf("%w: filled_on must be YYYY-MM-DD", httpx.ErrValidation)
	}
	return Log{
		VehicleID: req.VehicleID,
		FilledOn:  filledOn,
		Odometer:  req.Odometer,
		Gallons:   req.Gallons,
		PricePer:  req.PricePer,
		TotalCost: req.Gallons * req.PricePer,
		IsDEF:     req.IsDEF,
		IsPartial: req.IsPartial,
		Notes:     req.Notes,
	}, nil
}
