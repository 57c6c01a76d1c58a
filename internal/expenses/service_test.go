package expenses

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
	err error
}

func (s *stubAccess) RequireVehicleRole(ctx context.Context, userID, vehicleID int64, min garage.Role) error {
	return s.err
}

type stubRepo struct {
	stored map[int64]Expense
}

func (s *stubRepo) List(ctx context.Context, filters ListFilters) ([]Expense, int, error) {
	return nil, 0, nil
}

func (s *stubRepo) Get(ctx context.Context, id int64) (Expense, error) {
	e, ok := s.stored[id]
	if !ok {
		return Expense{}, httpx.ErrNotFound
	}
	return e, nil
}

func (s *stubRepo) Create(ctx context.Context, e Expense) (Expense, error) {
	e.ID = int64(len(s.stored) + 1)
	s.stored[e.ID] = e
	return e, nil
}

func (s *stubRepo) Update(ctx context.Context, id int64, e Expense) error {
	if _, ok := s.stored[id]; !ok {
		return httpx.ErrNotFound
	}
	e.ID = id
	s.stored[id] = e
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, id int64) error {
	delete(s.stored, id)
	return nil
}

func (s *stubRepo) RenewingTaxes(ctx context.Context, from, to time.Time) ([]RenewingTax, error) {
	var out []RenewingTax
	for _, e := range s.stored {
		if e.Kind == KindTax && e.RenewsOn != nil && !e.RenewsOn.Before(from) && !e.RenewsOn.After(to) {
			out = append(out, RenewingTax{Expense: e, OwnerID: 1})
		}
	}
	return out, nil
}

func TestCreateTaxWithRenewal(t *testing.T) {
	repo := &stubRepo{stored: map[int64]Expense{}}
	svc := NewService(repo, &stubAccess{})

	e, err := svc.Create(context.Background(), 1, UpsertRequest{
		VehicleID:   3,
		Kind:        KindTax,
		Description: "Registration renewal",
		Amount:      185,
		IncurredOn:  "2026-01-10",
		RenewsOn:    "2027-01-10",
	})
	require.NoError(t, err)
	require.NotNil(t, e.RenewsOn)
	assert.Equal(t, "2027-01-10", e.RenewsOn.Format("2006-01-02"))
}

func TestTollCannotCarryRenewal(t *testing.T) {
	svc := NewService(&stubRepo{stored: map[int64]Expense{}}, &stubAccess{})

	_, err := svc.Create(context.Background(), 1, UpsertRequest{
		VehicleID:   3,
		Kind:        KindToll,
		Description: "Turnpike",
		Amount:      4.25,
		IncurredOn:  "2026-02-01",
		RenewsOn:    "2027-02-01",
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestRenewingTaxesWindow(t *testing.T) {
	repo := &stubRepo{stored: map[int64]Expense{}}
	svc := NewService(repo, &stubAccess{})
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, UpsertRequest{
		VehicleID: 3, Kind: KindTax, Description: "Registration", Amount: 185,
		IncurredOn: "2026-01-10", RenewsOn: "2026-09-10",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, UpsertRequest{
		VehicleID: 3, Kind: KindTax, Description: "Property tax", Amount: 320,
		IncurredOn: "2026-01-10", RenewsOn: "2027-04-01",
	})
	require.NoError(t, err)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
	renewing, err := svc.RenewingTaxes(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, renewing, 1)
	assert.Equal(t, "Registration", renewing[0].Description)
}

func TestForbiddenUserCannotCreateExpense(t *testing.T) {
	svc := NewService(&stubRepo{stored: map[int64]Expense{}}, &stubAccess{err: httpx.ErrForbidden})

	_, err := svc.Create(context.Background(), 2, UpsertRequest{
		VehicleID: 3, Kind: KindToll, Description: "Bridge", Amount: 6, IncurredOn: "2026-02-01",
	})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}
