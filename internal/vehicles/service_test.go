package vehicles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mygarage/mygarage/internal/garage"
	"github.com/mygarage/mygarage/internal/platform/httpx"
)

type stubAccess struct {
	garageErr  error
	vehicleErr error
	minSeen    garage.Role
}

func (s *stubAccess) CanAccessGarage(ctx context.Context, userID, garageID int64) error {
	return s.garageErr
}

func (s *stubAccess) RequireRole(ctx context.Context, userID, garageID int64, min garage.Role) error {
	s.minSeen = min
	return s.garageErr
}

func (s *stubAccess) RequireVehicleRole(ctx context.Context, userID, vehicleID int64, min garage.Role) error {
	s.minSeen = min
	return s.vehicleErr
}

type stubRepo struct {
	stored  map[int64]Vehicle
	created *Vehicle
	deleted []int64
}

func (s *stubRepo) List(ctx context.Context, filters ListFilters) ([]Vehicle, int, error) {
	var out []Vehicle
	for _, v := range s.stored {
		out = append(out, v)
	}
	return out, len(out), nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (Vehicle, error) {
	v, ok := s.stored[id]
	if !ok {
		return Vehicle{}, httpx.ErrNotFound
	}
	return v, nil
}

func (s *stubRepo) Create(ctx context.Context, v Vehicle) (Vehicle, error) {
	v.ID = 1
	s.created = &v
	return v, nil
}

func (s *stubRepo) Update(ctx context.Context, id int64, v Vehicle) error {
	if _, ok := s.stored[id]; !ok {
		return httpx.ErrNotFound
	}
	v.ID = id
	v.GarageID = s.stored[id].GarageID
	s.stored[id] = v
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func validRequest() UpsertRequest {
	return UpsertRequest{
		GarageID:        5,
		Name:            "Daily Driver",
		Make:            "Toyota",
		Model:           "Tacoma",
		Year:            2021,
		InitialOdometer: 12000,
	}
}

func TestCreateRequiresEditorRole(t *testing.T) {
	access := &stubAccess{}
	repo := &stubRepo{stored: map[int64]Vehicle{}}
	svc := NewService(repo, access)

	v, err := svc.Create(context.Background(), 1, validRequest())
	require.NoError(t, err)
	assert.Equal(t, garage.RoleEditor, access.minSeen)
	assert.True(t, v.IsActive, "vehicles default to active")
	assert.Equal(t, 12000.0, v.InitialOdometer)

	access.garageErr = httpx.ErrForbidden
	_, err = svc.Create(context.Background(), 1, validRequest())
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestDeleteRequiresOwnerRole(t *testing.T) {
	access := &stubAccess{}
	repo := &stubRepo{stored: map[int64]Vehicle{3: {ID: 3, GarageID: 5}}}
	svc := NewService(repo, access)

	require.NoError(t, svc.Delete(context.Background(), 1, 3))
	assert.Equal(t, garage.RoleOwner, access.minSeen)
	assert.Equal(t, []int64{3}, repo.deleted)
}

func TestUpdateKeepsGarageAssignment(t *testing.T) {
	access := &stubAccess{}
	repo := &stubRepo{stored: map[int64]Vehicle{3: {ID: 3, GarageID: 5, Name: "Old"}}}
	svc := NewService(repo, access)

	req := validRequest()
	req.GarageID = 99 // must not move the vehicle
	v, err := svc.Update(context.Background(), 1, 3, req)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.GarageID)
	assert.Equal(t, "Daily Driver", v.Name)
}

func TestGetRejectsBadID(t *testing.T) {
	svc := NewService(&stubRepo{stored: map[int64]Vehicle{}}, &stubAccess{})
	_, err := svc.Get(context.Background(), 1, 0)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestListChecksGarageMembership(t *testing.T) {
	access := &stubAccess{garageErr: httpx.ErrForbidden}
	svc := NewService(&stubRepo{stored: map[int64]Vehicle{}}, access)
	_, _, err := svc.List(context.Background(), 1, ListFilters{GarageID: 5})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}
