package analytics

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Repository exposes the aggregation queries the service relies on.
type Repository interface {
	MonthlyVehicleCosts(ctx context.Context, vehicleID int64, from, to string) ([]MonthlyCostPoint, error)
	MonthlyGarageCosts(ctx context.Context, garageID int64, from, to string) ([]MonthlyCostPoint, error)
	MonthlyFleetCosts(ctx context.Context, ownerID int64, from, to string) ([]MonthlyCostPoint, error)
	MonthlyFuelEconomy(ctx context.Context, vehicleID int64, from, to string) ([]FuelEconomyPoint, error)
	VehiclePeriodSummary(ctx context.Context, vehicleID int64, label string, from, to time.Time) (PeriodSummary, error)
	GaragePeriodSummary(ctx context.Context, garageID int64, label string, from, to time.Time) (PeriodSummary, error)
}

// Params tunes the shared analytics computation. One parameter set serves
// the vehicle, garage, and fleet pages so their labels agree.
type Params struct {
	ShortWindow int
	LongWindow  int
	Epsilon     float64
	AnomalyZ    float64
	RecentFuel  int
}

// DefaultParams mirror the dashboard defaults: 3 vs 6 month windows, a five
// dollar dead zone, and a 2.5 sigma anomaly threshold.
var DefaultParams = Params{
	ShortWindow: 3,
	LongWindow:  6,
	Epsilon:     5.0,
	AnomalyZ:    2.5,
	RecentFuel:  3,
}

func (p Params) normalized() Params {
	d := DefaultParams
	if p.ShortWindow > 0 {
		d.ShortWindow = p.ShortWindow
	}
	if p.LongWindow > d.ShortWindow {
		d.LongWindow = p.LongWindow
	}
	if p.Epsilon > 0 {
		d.Epsilon = p.Epsilon
	}
	if p.AnomalyZ > 0 {
		d.AnomalyZ = p.AnomalyZ
	}
	if p.RecentFuel > 0 {
		d.RecentFuel = p.RecentFuel
	}
	return d
}

// Report is the computed analytics payload for one scope and range.
type Report struct {
	Scope        string                `json:"scope"`
	ScopeID      int64                 `json:"scope_id"`
	From         string                `json:"from"`
	To           string                `json:"to"`
	Months       []MonthlyCostPoint    `json:"months"`
	RollingShort []RollingAveragePoint `json:"rolling_short"`
	RollingLong  []RollingAveragePoint `json:"rolling_long"`
	Trend        TrendDirection        `json:"trend"`
	Anomalies    []Anomaly             `json:"anomalies"`
	Fuel         *FuelTrend            `json:"fuel,omitempty"`
	Stale        bool                  `json:"stale"`
}

// Scope names used on reports and cache keys.
const (
	ScopeVehicle = "vehicle"
	ScopeGarage  = "garage"
	ScopeFleet   = "fleet"
)

// Service coordinates aggregation queries, the shared computation, and the
// snapshot cache.
type Service struct {
	repo   Repository
	cache  *Cache
	params Params
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, params Params) *Service {
	return &Service{repo: repo, cache: cache, params: params.normalized()}
}

// Params exposes the effective computation parameters.
func (s *Service) Params() Params {
	return s.params
}

// VehicleReport assembles the analytics payload for a single vehicle,
// including the fuel-economy trend.
func (s *Service) VehicleReport(ctx context.Context, vehicleID int64, from, to string) (Report, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		var (
			points []MonthlyCostPoint
			fuel   []FuelEconomyPoint
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rows, err := s.repo.MonthlyVehicleCosts(gctx, vehicleID, from, to)
			if err != nil {
				return err
			}
			points = rows
			return nil
		})
		g.Go(func() error {
			rows, err := s.repo.MonthlyFuelEconomy(gctx, vehicleID, from, to)
			if err != nil {
				return err
			}
			fuel = rows
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		report, err := s.buildReport(ScopeVehicle, vehicleID, from, to, points)
		if err != nil {
			return nil, err
		}
		trend := FuelEconomyTrend(fuel, s.params.RecentFuel, s.params.Epsilon)
		report.Fuel = &trend
		return report, nil
	}
	return s.load(ctx, keyVehicle(vehicleID, from, to), loader)
}

// FuelEconomySeries returns the monthly MPG series for a vehicle, used by
// the fuel-economy CSV export.
func (s *Service) FuelEconomySeries(ctx context.Context, vehicleID int64, from, to string) ([]FuelEconomyPoint, error) {
	return s.repo.MonthlyFuelEconomy(ctx, vehicleID, from, to)
}

// GarageReport assembles the analytics payload across one garage's vehicles.
func (s *Service) GarageReport(ctx context.Context, garageID int64, from, to string) (Report, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		points, err := s.repo.MonthlyGarageCosts(ctx, garageID, from, to)
		if err != nil {
			return nil, err
		}
		return s.buildReport(ScopeGarage, garageID, from, to, points)
	}
	return s.load(ctx, keyGarage(garageID, from, to), loader)
}

// FleetReport assembles the analytics payload across every vehicle the user
// can see.
func (s *Service) FleetReport(ctx context.Context, ownerID int64, from, to string) (Report, error) {
	loader := func(ctx context.Context) (interface{}, error) {
		points, err := s.repo.MonthlyFleetCosts(ctx, ownerID, from, to)
		if err != nil {
			return nil, err
		}
		return s.buildReport(ScopeFleet, ownerID, from, to, points)
	}
	return s.load(ctx, keyFleet(ownerID, from, to), loader)
}

// CompareVehiclePeriods loads two period summaries for a vehicle in parallel
// and computes their deltas.
func (s *Service) CompareVehiclePeriods(ctx context.Context, vehicleID int64, baseFrom, baseTo, curFrom, curTo time.Time) (PeriodComparison, error) {
	var baseline, current PeriodSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.repo.VehiclePeriodSummary(gctx, vehicleID, "baseline", baseFrom, baseTo)
		if err != nil {
			return err
		}
		baseline = summary
		return nil
	})
	g.Go(func() error {
		summary, err := s.repo.VehiclePeriodSummary(gctx, vehicleID, "current", curFrom, curTo)
		if err != nil {
			return err
		}
		current = summary
		return nil
	})
	if err := g.Wait(); err != nil {
		return PeriodComparison{}, err
	}
	return ComparePeriods(baseline, current), nil
}

// CompareGaragePeriods mirrors CompareVehiclePeriods at garage scope.
func (s *Service) CompareGaragePeriods(ctx context.Context, garageID int64, baseFrom, baseTo, curFrom, curTo time.Time) (PeriodComparison, error) {
	var baseline, current PeriodSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		summary, err := s.repo.GaragePeriodSummary(gctx, garageID, "baseline", baseFrom, baseTo)
		if err != nil {
			return err
		}
		baseline = summary
		return nil
	})
	g.Go(func() error {
		summary, err := s.repo.GaragePeriodSummary(gctx, garageID, "current", curFrom, curTo)
		if err != nil {
			return err
		}
		current = summary
		return nil
	})
	if err := g.Wait(); err != nil {
		return PeriodComparison{}, err
	}
	return ComparePeriods(baseline, current), nil
}

// Invalidate bumps the cache version after a write to any cost source.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Bump(ctx)
}

func (s *Service) buildReport(scope string, scopeID int64, from, to string, points []MonthlyCostPoint) (Report, error) {
	normalized, err := Normalize(points)
	if err != nil {
		return Report{}, fmt.Errorf("analytics: %s %d: %w", scope, scopeID, err)
	}
	short, err := RollingAverage(normalized, s.params.ShortWindow)
	if err != nil {
		return Report{}, err
	}
	long, err := RollingAverage(normalized, s.params.LongWindow)
	if err != nil {
		return Report{}, err
	}
	trend, err := ClassifyTrend(normalized, s.params.ShortWindow, s.params.LongWindow, s.params.Epsilon)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Scope:        scope,
		ScopeID:      scopeID,
		From:         from,
		To:           to,
		Months:       normalized,
		RollingShort: short,
		RollingLong:  long,
		Trend:        trend,
		Anomalies:    DetectAnomalies(normalized, s.params.AnomalyZ),
	}, nil
}

func (s *Service) load(ctx context.Context, keyBase string, loader func(context.Context) (interface{}, error)) (Report, error) {
	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return Report{}, err
		}
		return value.(Report), nil
	}
	key, err := s.cache.BuildKey(ctx, keyBase)
	if err != nil {
		return Report{}, err
	}
	var report Report
	stale, err := s.cache.FetchJSON(ctx, key, keyBase, &report, loader)
	if err != nil {
		return Report{}, err
	}
	report.Stale = stale
	return report, nil
}
