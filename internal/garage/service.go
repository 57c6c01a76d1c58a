package garage

import (
	"context"
	"fmt"

	"github.com/mygarage/mygarage/internal/platform/httpx"
)

// Service enforces garage membership rules. It also answers access checks
// for other modules that operate on garages and vehicles.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]Garage, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, garageID int64) (Garage, error) {
	role, err := s.repo.RoleFor(ctx, userID, garageID)
	if err != nil {
		return Garage{}, err
	}
	g, err := s.repo.Get(ctx, garageID)
	if err != nil {
		return Garage{}, err
	}
	g.Role = role
	return g, nil
}

func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (Garage, error) {
	return s.repo.Create(ctx, req.Name, userID)
}

func (s *Service) Rename(ctx context.Context, userID, garageID int64, req UpdateRequest) error {
	if err := s.RequireRole(ctx, userID, garageID, RoleOwner); err != nil {
		return err
	}
	return s.repo.Rename(ctx, garageID, req.Name)
}

func (s *Service) Delete(ctx context.Context, userID, garageID int64) error {
	if err := s.RequireRole(ctx, userID, garageID, RoleOwner); err != nil {
		return err
	}
	return s.repo.Delete(ctx, garageID)
}

func (s *Service) Members(ctx context.Context, userID, garageID int64) ([]Member, error) {
	if err := s.CanAccessGarage(ctx, userID, garageID); err != nil {
		return nil, err
	}
	return s.repo.Members(ctx, garageID)
}

func (s *Service) AddMember(ctx context.Context, userID, garageID int64, req MemberRequest) (Member, error) {
	if err := s.RequireRole(ctx, userID, garageID, RoleOwner); err != nil {
		return Member{}, err
	}
	return s.repo.AddMemberByEmail(ctx, garageID, req.Email, req.Role)
}

func (s *Service) ChangeRole(ctx context.Context, userID, garageID, memberID int64, req RoleRequest) error {
	if err := s.RequireRole(ctx, userID, garageID, RoleOwner); err != nil {
		return err
	}
	if err := s.guardOwner(ctx, garageID, memberID); err != nil {
		return err
	}
	return s.repo.UpdateMemberRole(ctx, garageID, memberID, req.Role)
}

// RemoveMember drops a membership. Members may remove themselves; anyone
// else requires the owner role. The owner membership itself is immutable.
func (s *Service) RemoveMember(ctx context.Context, userID, garageID, memberID int64) error {
	if userID != memberID {
		if err := s.RequireRole(ctx, userID, garageID, RoleOwner); err != nil {
			return err
		}
	}
	if err := s.guardOwner(ctx, garageID, memberID); err != nil {
		return err
	}
	return s.repo.RemoveMember(ctx, garageID, memberID)
}

// CanAccessGarage reports whether the user holds any role in the garage.
func (s *Service) CanAccessGarage(ctx context.Context, userID, garageID int64) error {
	_, err := s.repo.RoleFor(ctx, userID, garageID)
	return err
}

// CanAccessVehicle reports whether the user may view the vehicle through
// its garage membership.
func (s *Service) CanAccessVehicle(ctx context.Context, userID, vehicleID int64) error {
	garageID, err := s.repo.VehicleGarage(ctx, vehicleID)
	if err != nil {
		return err
	}
	return s.CanAccessGarage(ctx, userID, garageID)
}

// RequireRole fails with ErrForbidden unless the user holds at least the
// given role in the garage.
func (s *Service) RequireRole(ctx context.Context, userID, garageID int64, min Role) error {
	role, err := s.repo.RoleFor(ctx, userID, garageID)
	if err != nil {
		return err
	}
	if !role.AtLeast(min) {
		return fmt.Errorf("%w: requires %s role", httpx.ErrForbidden, min)
	}
	return nil
}

// RequireVehicleRole resolves the vehicle's garage and checks the role there.
func (s *Service) RequireVehicleRole(ctx context.Context, userID, vehicleID int64, min Role) error {
	garageID, err := s.repo.VehicleGarage(ctx, vehicleID)
	if err != nil {
		return err
	}
	return s.RequireRole(ctx, userID, garageID, min)
}

func (s *Service) guardOwner(ctx context.Context, garageID, memberID int64) error {
	role, err := s.repo.RoleFor(ctx, memberID, garageID)
	if err != nil {
		return err
	}
	if role == RoleOwner {
		return fmt.Errorf("%w: owner membership cannot be changed", httpx.ErrValidation)
	}
	return nil
}
