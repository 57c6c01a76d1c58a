package coverage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mygarage/mygarage/internal/garage"
	"github.com/mygarage/mygarage/internal/platform/httpx"
)

type stubAccess struct {
	err     error
	minSeen garage.Role
}

func (s *stubAccess) RequireVehicleRole(ctx context.Context, userID, vehicleID int64, min garage.Role) error {
	s.minSeen = min
	return s.err
}

type stubRepo struct {
	warranties map[int64]Warranty
	bulletins  map[int64]TSB
}

func newStubRepo() *stubRepo {
	return &stubRepo{warranties: map[int64]Warranty{}, bulletins: map[int64]TSB{}}
}

func (s *stubRepo) Warranties(ctx context.Context, vehicleID int64) ([]Warranty, error) {
	return nil, nil
}

func (s *stubRepo) GetWarranty(ctx context.Context, id int64) (Warranty, error) {
	w, ok := s.warranties[id]
	if !ok {
		return Warranty{}, httpx.ErrNotFound
	}
	return w, nil
}

func (s *stubRepo) CreateWarranty(ctx context.Context, w Warranty) (Warranty, error) {
	w.ID = int64(len(s.warranties) + 1)
	s.warranties[w.ID] = w
	return w, nil
}

func (s *stubRepo) UpdateWarranty(ctx context.Context, id int64, w Warranty) error {
	existing, ok := s.warranties[id]
	if !ok {
		return httpx.ErrNotFound
	}
	w.ID = id
	w.VehicleID = existing.VehicleID
	s.warranties[id] = w
	return nil
}

func (s *stubRepo) DeleteWarranty(ctx context.Context, id int64) error {
	delete(s.warranties, id)
	return nil
}

func (s *stubRepo) ExpiringWarranties(ctx context.Context, from, to time.Time) ([]ExpiringWarranty, error) {
	var out []ExpiringWarranty
	for _, w := range s.warranties {
		if !w.EndDate.Before(from) && !w.EndDate.After(to) {
			out = append(out, ExpiringWarranty{Warranty: w, OwnerID: 1})
		}
	}
	return out, nil
}

func (s *stubRepo) Bulletins(ctx context.Context, vehicleID int64, includeResolved bool) ([]TSB, error) {
	var out []TSB
	for _, b := range s.bulletins {
		if b.Resolved && !includeResolved {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *stubRepo) GetBulletin(ctx context.Context, id int64) (TSB, error) {
	b, ok := s.bulletins[id]
	if !ok {
		return TSB{}, httpx.ErrNotFound
	}
	return b, nil
}

func (s *stubRepo) CreateBulletin(ctx context.Context, b TSB) (TSB, error) {
	for _, existing := range s.bulletins {
		if existing.VehicleID == b.VehicleID && existing.Reference == b.Reference {
			return TSB{}, httpx.ErrDuplicate
		}
	}
	b.ID = int64(len(s.bulletins) + 1)
	s.bulletins[b.ID] = b
	return b, nil
}

func (s *stubRepo) UpdateBulletin(ctx context.Context, id int64, b TSB) error {
	if _, ok := s.bulletins[id]; !ok {
		return httpx.ErrNotFound
	}
	b.ID = id
	s.bulletins[id] = b
	return nil
}

func (s *stubRepo) DeleteBulletin(ctx context.Context, id int64) error {
	delete(s.bulletins, id)
	return nil
}

func validWarranty() WarrantyRequest {
	return WarrantyRequest{
		VehicleID: 3,
		Name:      "Powertrain",
		StartDate: "2024-01-01",
		EndDate:   "2029-01-01",
	}
}

func TestCreateWarrantyRequiresEditor(t *testing.T) {
	access := &stubAccess{}
	svc := NewService(newStubRepo(), access)

	w, err := svc.CreateWarranty(context.Background(), 1, validWarranty())
	require.NoError(t, err)
	assert.Equal(t, garage.RoleEditor, access.minSeen)
	assert.False(t, w.Expired(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Expired(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCreateWarrantyRejectsInvertedRange(t *testing.T) {
	svc := NewService(newStubRepo(), &stubAccess{})
	req := validWarranty()
	req.StartDate, req.EndDate = req.EndDate, req.StartDate
	_, err := svc.CreateWarranty(context.Background(), 1, req)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDuplicateBulletinReference(t *testing.T) {
	svc := NewService(newStubRepo(), &stubAccess{})
	req := TSBRequest{VehicleID: 3, Reference: "TSB-23-001", Title: "Transmission shudder", IssuedOn: "2023-06-01"}

	_, err := svc.CreateBulletin(context.Background(), 1, req)
	require.NoError(t, err)
	_, err = svc.CreateBulletin(context.Background(), 1, req)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestExpiringWarrantiesWindow(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo, &stubAccess{})
	ctx := context.Background()

	soon := validWarranty()
	soon.EndDate = "2026-09-15"
	_, err := svc.CreateWarranty(ctx, 1, soon)
	require.NoError(t, err)

	far := validWarranty()
	far.Name = "Corrosion"
	far.EndDate = "2028-01-01"
	_, err = svc.CreateWarranty(ctx, 1, far)
	require.NoError(t, err)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	expiring, err := svc.ExpiringWarranties(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "Powertrain", expiring[0].Name)
}

func TestForbiddenUserCannotEditCoverage(t *testing.T) {
	access := &stubAccess{err: httpx.ErrForbidden}
	svc := NewService(newStubRepo(), access)

	_, err := svc.CreateWarranty(context.Background(), 2, validWarranty())
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}
