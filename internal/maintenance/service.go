package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mygarage/mygarage/internal/garage"
	"github.com/mygarage/mygarage/internal/platform/httpx"
)

// Access answers garage membership questions for record operations.
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

func (s *Service) List(ctx context.Context, userID int64, filters ListFilters) ([]Record, int, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, filters.VehicleID, garage.RoleViewer); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (Record, error) {
	if id <= 0 {
		return Record{}, fmt.Errorf("%w: invalid record id", httpx.ErrValidation)
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, rec.VehicleID, garage.RoleViewer); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) Create(ctx context.Context, userID int64, req UpsertRequest) (Record, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, req.VehicleID, garage.RoleEditor); err != nil {
		return Record{}, err
	}
	rec, err := fromRequest(req)
	if err != nil {
		return Record{}, err
	}
	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return Record{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

func (s *Service) Update(ctx context.Context, userID, id int64, req UpsertRequest) (Record, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return Record{}, err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, existing.VehicleID, garage.RoleEditor); err != nil {
		return Record{}, err
	}
	rec, err := fromRequest(req)
	if err != nil {
		return Record{}, err
	}
	if err := s.repo.Update(ctx, id, rec); err != nil {
		return Record{}, err
	}
	s.invalidate(ctx)
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
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) Categories(ctx context.Context, userID, vehicleID int64) ([]string, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, vehicleID, garage.RoleViewer); err != nil {
		return nil, err
	}
	return s.repo.Categories(ctx, vehicleID)
}

// invalidate is best-effort: a failed bump leaves stale analytics until the
// next write, which is preferable to failing the record mutation.
func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("analytics invalidation failed", slog.Any("error", err))
	}
}

func fromRequest(req UpsertRequest) (Record, error) {
	performedOn, err := time.Parse("2006-01-02", req.PerformedOn)
	if err != nil {
		return Record{}, fmt.Errorf("%w: performed_on must be YYYY-MM-DD", httpx.ErrValidation)
	}
	return Record{
		VehicleID:       req.VehicleID,
		Category:        req.Category,
		Description:     req.Description,
		Cost:            req.Cost,
		OdometerReading: req.OdometerReading,
		PerformedOn:     performedOn,
		Vendor:          req.Vendor,
		Notes:           req.Notes,
	}, nil
}
