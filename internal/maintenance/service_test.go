package maintenance

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
	err   error
}

func (s *stubInvalidator) Invalidate(ctx context.Context) error {
	s.calls++
	return s.err
}

type stubRepo struct {
	stored  map[int64]Record
	created *Record
	deleted []int64
}

func (s *stubRepo) List(ctx context.Context, filters ListFilters) ([]Record, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (Record, error) {
	rec, ok := s.stored[id]
	if !ok {
		return Record{}, httpx.ErrNotFound
	}
	return rec, nil
}

func (s *stubRepo) Create(ctx context.Context, rec Record) (Record, error) {
	rec.ID = 1
	s.created = &rec
	s.stored[1] = rec
	return rec, nil
}

func (s *stubRepo) Update(ctx context.Context, id int64, rec Record) error {
	if _, ok := s.stored[id]; !ok {
		return httpx.ErrNotFound
	}
	rec.ID = id
	rec.VehicleID = s.stored[id].VehicleID
	s.stored[id] = rec
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	delete(s.stored, id)
	return nil
}

func (s *stubRepo) Categories(ctx context.Context, vehicleID int64) ([]string, error) {
	return []string{"Brakes", "Oil Change"}, nil
}

func validRequest() UpsertRequest {
	return UpsertRequest{
		VehicleID:   3,
		Category:    "Oil Change",
		Description: "5W-30 full synthetic",
		Cost:        89.50,
		PerformedOn: "2026-03-14",
	}
}

func newTestService(repo *stubRepo, access *stubAccess, inv *stubInvalidator) *Service {
	return NewService(repo, access, inv, nil)
}

func TestCreateInvalidatesAnalytics(t *testing.T) {
	repo := &stubRepo{stored: map[int64]Record{}}
	access := &stubAccess{}
	inv := &stubInvalidator{}
	svc := newTestService(repo, access, inv)

	rec, err := svc.Create(context.Background(), 1, validRequest())
	require.NoError(t, err)
	assert.Equal(t, garage.RoleEditor, access.minSeen)
	assert.Equal(t, 1, inv.calls)
	assert.Equal(t, "2026-03-14", rec.PerformedOn.Format("2006-01-02"))
}

func TestCreateRejectsBadDate(t *testing.T) {
	svc := newTestService(&stubRepo{stored: map[int64]Record{}}, &stubAccess{}, &stubInvalidator{})
	req := validRequest()
	req.PerformedOn = "14/03/2026"
	_, err := svc.Create(context.Background(), 1, req)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateSucceedsWhenInvalidationFails(t *testing.T) {
	repo := &stubRepo{stored: map[int64]Record{}}
	inv := &stubInvalidator{err: context.DeadlineExceeded}
	svc := newTestService(repo, &stubAccess{}, inv)

	_, err := svc.Create(context.Background(), 1, validRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls)
}

func TestUpdateKeepsVehicleAssignment(t *testing.T) {
	repo := &stubRepo{stored: map[int64]Record{5: {ID: 5, VehicleID: 3, Category: "Tires"}}}
	inv := &stubInvalidator{}
	svc := newTestService(repo, &stubAccess{}, inv)

	req := validRequest()
	req.VehicleID = 99
	rec, err := svc.Update(context.Background(), 1, 5, req)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.VehicleID)
	assert.Equal(t, 1, inv.calls)
}

func TestDeleteRequiresEditorAndInvalidates(t *testing.T) {
	repo := &stubRepo{stored: map[int64]Record{5: {ID: 5, VehicleID: 3}}}
	inv := &stubInvalidator{}
	access := &stubAccess{}
	svc := newTestService(repo, access, inv)

	require.NoError(t, svc.Delete(context.Background(), 1, 5))
	assert.Equal(t, garage.RoleEditor, access.minSeen)
	assert.Equal(t, []int64{5}, repo.deleted)
	assert.Equal(t, 1, inv.calls)
}

func TestForbiddenUserCannotWrite(t *testing.T) {
	access := &stubAccess{err: httpx.ErrForbidden}
	inv := &stubInvalidator{}
	svc := newTestService(&stubRepo{stored: map[int64]Record{}}, access, inv)

	_, err := svc.Create(context.Background(), 2, validRequest())
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Zero(t, inv.calls)
}
