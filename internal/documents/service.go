package documents

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mygarage/mygarage/internal/garage"
	"github.com/mygarage/mygarage/internal/platform/httpx"
	"github.com/mygarage/mygarage/internal/settings"
)

// Access answers garage membership questions for document operations.
type Access interface {
	RequireVehicleRole(ctx context.Context, userID, vehicleID int64, min garage.Role) error
}

// LimitSource supplies the uploader's configured per-file size limit.
type LimitSource interface {
	Get(ctx context.Context, userID int64) (settings.Settings, error)
}

type Service struct {
	repo   Repository
	access Access
	limits LimitSource
}

func NewService(repo Repository, access Access, limits LimitSource) *Service {
	return &Service{repo: repo, access: access, limits: limits}
}

func (s *Service) List(ctx context.Context, userID, vehicleID int64) ([]Document, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, vehicleID, garage.RoleViewer); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, vehicleID)
}

func (s *Service) Get(ctx context.Context, userID, id int64) (Document, error) {
	if id <= 0 {
		return Document{}, fmt.Errorf("%w: invalid document id", httpx.ErrValidation)
	}
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if err := s.access.RequireVehicleRole(ctx, userID, d.VehicleID, garage.RoleViewer); err != nil {
		return Document{}, err
	}
	return d, nil
}

// Register records an upload after checking the uploader's configured
// per-file size limit. The storage key is minted here so callers can place
// the blob before or after registration without coordinating key choice.
func (s *Service) Register(ctx context.Context, userID int64, req CreateRequest) (Document, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, req.VehicleID, garage.RoleEditor); err != nil {
		return Document{}, err
	}

	prefs, err := s.limits.Get(ctx, userID)
	if err != nil {
		return Document{}, err
	}
	limit := int64(prefs.MaxDocumentMB) << 20
	if limit > 0 && req.SizeBytes > limit {
		return Document{}, fmt.Errorf("%w: file exceeds the %d MB limit", httpx.ErrTooLarge, prefs.MaxDocumentMB)
	}

	return s.repo.Create(ctx, Document{
		VehicleID:   req.VehicleID,
		StorageKey:  uuid.NewString(),
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		UploadedBy:  userID,
	})
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

func (s *Service) Usage(ctx context.Context, userID, vehicleID int64) (Usage, error) {
	if err := s.access.RequireVehicleRole(ctx, userID, vehicleID, garage.RoleViewer); err != nil {
		return Usage{}, err
	}
	return s.repo.Usage(ctx, vehicleID)
}
