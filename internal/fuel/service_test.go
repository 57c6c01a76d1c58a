package fuel

import (
	"context"
	"testing"

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

type stubInvalidator struct {
	calls int
}

func (s *stubInvalidator) Invalidate(ctx context.Context) error {
	s.calls++
	return nil
}

type stubRepo struct {
	stored  map[int64]Log
	created *Log
	deleted []int64
}

func (s *stubRepo) List(ctx context.Context, filters ListFilters) ([]Log, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (Log, error) {
	l, ok := s.stored[id]
	if !ok {
		return Log{}, httpx.ErrNotFound
	}
	return l, nil
}

func (s *stubRepo) Create(ctx context.Context, log Log) (Log, error) {
	log.ID = 1
	s.created = &log
	s.stored[1] = log
	return log, nil
}

func (s *stubRepo) Delete(ctx context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	delete(s.stored, id)
	return nil
}

func (s *stubRepo) Stats(ctx context.Context, vehicleID int64) (Stats, error) {
	return Stats{Fills: 2}, nil
}

func validRequest() CreateRequest {
	return CreateRequest{
		VehicleID: 3,
		FilledOn:  "2026-03-14",
		Odometer:  45210,
		Gallons:   14.2,
		PricePer:  3.45,
	}
}

func TestCreateComputesTotalCost(t *testing.T) {
	repo := &stubRepo{stored: map[int64]Log{}}
	access := &stubAccess{}
	inv := &stubInvalidator{}
	svc := NewService(repo, access, inv, nil)

	log, err := svc.Create(context.Background(), 1, validRequest())
	require.NoError(t, err)
	assert.Equal(t, garage.RoleEditor, access.minSeen)
	assert.InDelta(t, 48.99, log.TotalCost, 0.001)
	assert.Equal(t, 1, inv.calls)
}

func TestCreateRejectsBadDate(t *testing.T) {
	svc := NewService(&stubRepo{stored: map[int64]Log{}}, &stubAccess{}, &stubInvalidator{}, nil)
	req := validRequest()
	req.FilledOn = "last tuesday"
	_, err := svc.Create(context.Background(), 1, req)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeleteChecksVehicleOfStoredLog(t *testing.T) {
	repo := &stubRepo{stored: map[int64]Log{7: {ID: 7, VehicleID: 3}}}
	access := &stubAccess{}
	inv := &stubInvalidator{}
	svc := NewService(repo, access, inv, nil)

	require.NoError(t, svc.Delete(context.Background(), 1, 7))
	assert.Equal(t, []int64{7}, repo.deleted)
	assert.Equal(t, 1, inv.calls)
}

func TestForbiddenUserCannotLogFuel(t *testing.T) {
	access := &stubAccess{err: httpx.ErrForbidden}
	inv := &stubInvalidator{}
	svc := NewService(&stubRepo{stored: map[int64]Log{}}, access, inv, nil)

	_, err := svc.Create(context.Background(), 2, validRequest())
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Zero(t, inv.calls)
}
