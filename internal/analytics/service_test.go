package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockRepo struct {
	costs        []MonthlyCostPoint
	costErr      error
	costCalls    int
	fuel         []FuelEconomyPoint
	fuelCalls    int
	vehicleSum   map[string]PeriodSummary
	summaryCalls int
}

func (m *mockRepo) MonthlyVehicleCosts(ctx context.Context, vehicleID int64, from, to string) ([]MonthlyCostPoint, error) {
	m.costCalls++
	return m.costs, m.costErr
}

func (m *mockRepo) MonthlyGarageCosts(ctx context.Context, garageID int64, from, to string) ([]MonthlyCostPoint, error) {
	m.costCalls++
	return m.costs, m.costErr
}

func (m *mockRepo) MonthlyFleetCosts(ctx context.Context, ownerID int64, from, to string) ([]MonthlyCostPoint, error) {
	m.costCalls++
	return m.costs, m.costErr
}

func (m *mockRepo) MonthlyFuelEconomy(ctx context.Context, vehicleID int64, from, to string) ([]FuelEconomyPoint, error) {
	m.fuelCalls++
	return m.fuel, nil
}

func (m *mockRepo) VehiclePeriodSummary(ctx context.Context, vehicleID int64, label string, from, to time.Time) (PeriodSummary, error) {
	m.summaryCalls++
	return m.vehicleSum[label], nil
}

func (m *mockRepo) GaragePeriodSummary(ctx context.Context, garageID int64, label string, from, to time.Time) (PeriodSummary, error) {
	m.summaryCalls++
	return m.vehicleSum[label], nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	return NewService(repo, cache, Params{}), client
}

func sixMonths() []MonthlyCostPoint {
	return []MonthlyCostPoint{
		{Month: "2025-01", Maintenance: 100},
		{Month: "2025-02", Maintenance: 100},
		{Month: "2025-03", Maintenance: 100},
		{Month: "2025-04", Maintenance: 250},
		{Month: "2025-05", Maintenance: 300},
		{Month: "2025-06", Maintenance: 350},
	}
}

func TestVehicleReportComputesAndCaches(t *testing.T) {
	repo := &mockRepo{
		costs: sixMonths(),
		fuel: []FuelEconomyPoint{
			{Month: "2025-01", MPG: 20},
			{Month: "2025-02", MPG: 20},
			{Month: "2025-03", MPG: 20},
			{Month: "2025-04", MPG: 12},
			{Month: "2025-05", MPG: 12},
			{Month: "2025-06", MPG: 12},
		},
	}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	report, err := svc.VehicleReport(ctx, 1, "2025-01", "2025-06")
	if err != nil {
		t.Fatalf("vehicle report error: %v", err)
	}
	if report.Trend != TrendIncreasing {
		t.Fatalf("expected increasing trend, got %s", report.Trend)
	}
	if len(report.Months) != 6 {
		t.Fatalf("expected 6 months, got %d", len(report.Months))
	}
	if report.RollingShort[2].Value == nil || *report.RollingShort[2].Value != 100 {
		t.Fatalf("unexpected short rolling average: %v", report.RollingShort[2].Value)
	}
	if report.Fuel == nil || report.Fuel.Direction != TrendDecreasing {
		t.Fatalf("expected decreasing fuel economy, got %+v", report.Fuel)
	}
	if report.Stale {
		t.Fatal("fresh report marked stale")
	}

	if _, err := svc.VehicleReport(ctx, 1, "2025-01", "2025-06"); err != nil {
		t.Fatalf("cached vehicle report error: %v", err)
	}
	if repo.costCalls != 1 {
		t.Fatalf("expected cache hit on second call, repo hit %d times", repo.costCalls)
	}
}

func TestInvalidateBumpsVersion(t *testing.T) {
	repo := &mockRepo{costs: sixMonths()}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.GarageReport(ctx, 4, "2025-01", "2025-06"); err != nil {
		t.Fatalf("garage report error: %v", err)
	}
	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate error: %v", err)
	}
	if _, err := svc.GarageReport(ctx, 4, "2025-01", "2025-06"); err != nil {
		t.Fatalf("garage report after bump error: %v", err)
	}
	if repo.costCalls != 2 {
		t.Fatalf("expected reload after invalidation, repo hit %d times", repo.costCalls)
	}
}

func TestReportServesSnapshotWhenLoaderFails(t *testing.T) {
	repo := &mockRepo{costs: sixMonths()}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	if _, err := svc.GarageReport(ctx, 4, "2025-01", "2025-06"); err != nil {
		t.Fatalf("garage report error: %v", err)
	}

	// Invalidate so the versioned entry misses, then fail the reload.
	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate error: %v", err)
	}
	repo.costErr = errors.New("db down")

	report, err := svc.GarageReport(ctx, 4, "2025-01", "2025-06")
	if err != nil {
		t.Fatalf("expected snapshot fallback, got error: %v", err)
	}
	if !report.Stale {
		t.Fatal("expected stale flag on snapshot data")
	}
	if len(report.Months) != 6 {
		t.Fatalf("expected snapshot months, got %d", len(report.Months))
	}
}

func TestReportFailsWithoutSnapshot(t *testing.T) {
	repo := &mockRepo{costErr: errors.New("db down")}
	svc, _ := newTestService(t, repo)
	if _, err := svc.FleetReport(context.Background(), 9, "2025-01", "2025-06"); err == nil {
		t.Fatal("expected error when no snapshot exists")
	}
}

func TestReportRejectsInvalidRow(t *testing.T) {
	repo := &mockRepo{costs: []MonthlyCostPoint{{Month: "2025-01", Maintenance: -50}}}
	svc, _ := newTestService(t, repo)
	_, err := svc.GarageReport(context.Background(), 4, "2025-01", "2025-01")
	var invalid *InvalidDataPointError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidDataPointError, got %v", err)
	}
}

func TestCompareVehiclePeriods(t *testing.T) {
	repo := &mockRepo{vehicleSum: map[string]PeriodSummary{
		"baseline": {Label: "baseline", TotalCost: 400, ServiceCount: 2, ByCategory: map[string]float64{"Tires": 400}},
		"current":  {Label: "current", TotalCost: 600, ServiceCount: 3, ByCategory: map[string]float64{"Tires": 600}},
	}}
	svc, _ := newTestService(t, repo)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	curFrom := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	curTo := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	result, err := svc.CompareVehiclePeriods(context.Background(), 1, from, to, curFrom, curTo)
	if err != nil {
		t.Fatalf("compare error: %v", err)
	}
	if result.TotalDelta != 200 {
		t.Fatalf("unexpected delta %v", result.TotalDelta)
	}
	if repo.summaryCalls != 2 {
		t.Fatalf("expected both summaries loaded, got %d calls", repo.summaryCalls)
	}
}

func TestParamsNormalized(t *testing.T) {
	svc := NewService(&mockRepo{}, nil, Params{ShortWindow: 2, LongWindow: 4})
	params := svc.Params()
	if params.ShortWindow != 2 || params.LongWindow != 4 {
		t.Fatalf("explicit windows not kept: %+v", params)
	}
	if params.Epsilon != DefaultParams.Epsilon {
		t.Fatalf("expected default epsilon, got %v", params.Epsilon)
	}

	svc = NewService(&mockRepo{}, nil, Params{})
	if svc.Params() != DefaultParams {
		t.Fatalf("zero params should normalise to defaults, got %+v", svc.Params())
	}
}
