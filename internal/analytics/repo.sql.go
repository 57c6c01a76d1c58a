package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the pgx backed aggregation repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const vehicleMaintenanceSQL = `
SELECT to_char(performed_on, 'YYYY-MM') AS month, COALESCE(SUM(cost), 0)::double precision
FROM service_records
WHERE vehicle_id = $1 AND to_char(performed_on, 'YYYY-MM') BETWEEN $2 AND $3
GROUP BY 1
ORDER BY 1`

const vehicleFuelSQL = `
SELECT to_char(filled_on, 'YYYY-MM') AS month,
       COALESCE(SUM(total_cost) FILTER (WHERE NOT is_def), 0)::double precision AS fuel,
       COALESCE(SUM(total_cost) FILTER (WHERE is_def), 0)::double precision AS def
FROM fuel_logs
WHERE vehicle_id = $1 AND to_char(filled_on, 'YYYY-MM') BETWEEN $2 AND $3
GROUP BY 1
ORDER BY 1`

func (r *repository) MonthlyVehicleCosts(ctx context.Context, vehicleID int64, from, to string) ([]MonthlyCostPoint, error) {
	maintenance, err := r.monthlySums(ctx, vehicleMaintenanceSQL, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	fuel, def, err := r.monthlyFuelSums(ctx, vehicleFuelSQL, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	return mergeCostSeries(maintenance, fuel, def), nil
}

const garageMaintenanceSQL = `
SELECT to_char(sr.performed_on, 'YYYY-MM') AS month, COALESCE(SUM(sr.cost), 0)::double precision
FROM service_records sr
JOIN vehicles v ON v.id = sr.vehicle_id
WHERE v.garage_id = $1 AND to_char(sr.performed_on, 'YYYY-MM') BETWEEN $2 AND $3
GROUP BY 1
ORDER BY 1`

const garageFuelSQL = `
SELECT to_char(fl.filled_on, 'YYYY-MM') AS month,
       COALESCE(SUM(fl.total_cost) FILTER (WHERE NOT fl.is_def), 0)::double precision AS fuel,
       COALESCE(SUM(fl.total_cost) FILTER (WHERE fl.is_def), 0)::double precision AS def
FROM fuel_logs fl
JOIN vehicles v ON v.id = fl.vehicle_id
WHERE v.garage_id = $1 AND to_char(fl.filled_on, 'YYYY-MM') BETWEEN $2 AND $3
GROUP BY 1
ORDER BY 1`

func (r *repository) MonthlyGarageCosts(ctx context.Context, garageID int64, from, to string) ([]MonthlyCostPoint, error) {
	maintenance, err := r.monthlySums(ctx, garageMaintenanceSQL, garageID, from, to)
	if err != nil {
		return nil, err
	}
	fuel, def, err := r.monthlyFuelSums(ctx, garageFuelSQL, garageID, from, to)
	if err != nil {
		return nil, err
	}
	return mergeCostSeries(maintenance, fuel, def), nil
}

const fleetMaintenanceSQL = `
SELECT to_char(sr.performed_on, 'YYYY-MM') AS month, COALESCE(SUM(sr.cost), 0)::double precision
FROM service_records sr
JOIN vehicles v ON v.id = sr.vehicle_id
JOIN garage_members gm ON gm.garage_id = v.garage_id
WHERE gm.user_id = $1 AND to_char(sr.performed_on, 'YYYY-MM') BETWEEN $2 AND $3
GROUP BY 1
ORDER BY 1`

const fleetFuelSQL = `
SELECT to_char(fl.filled_on, 'YYYY-MM') AS month,
       COALESCE(SUM(fl.total_cost) FILTER (WHERE NOT fl.is_def), 0)::double precision AS fuel,
       COALESCE(SUM(fl.total_cost) FILTER (WHERE fl.is_def), 0)::double precision AS def
FROM fuel_logs fl
JOIN vehicles v ON v.id = fl.vehicle_id
JOIN garage_members gm ON gm.garage_id = v.garage_id
WHERE gm.user_id = $1 AND to_char(fl.filled_on, 'YYYY-MM') BETWEEN $2 AND $3
GROUP BY 1
ORDER BY 1`

func (r *repository) MonthlyFleetCosts(ctx context.Context, ownerID int64, from, to string) ([]MonthlyCostPoint, error) {
	maintenance, err := r.monthlySums(ctx, fleetMaintenanceSQL, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	fuel, def, err := r.monthlyFuelSums(ctx, fleetFuelSQL, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return mergeCostSeries(maintenance, fuel, def), nil
}

const fuelEconomySQL = `
SELECT to_char(filled_on, 'YYYY-MM') AS month,
       (COALESCE(SUM(trip_miles), 0) / NULLIF(SUM(gallons), 0))::double precision AS mpg
FROM fuel_logs
WHERE vehicle_id = $1 AND NOT is_def AND trip_miles IS NOT NULL
  AND to_char(filled_on, 'YYYY-MM') BETWEEN $2 AND $3
GROUP BY 1
HAVING SUM(gallons) > 0
ORDER BY 1`

func (r *repository) MonthlyFuelEconomy(ctx context.Context, vehicleID int64, from, to string) ([]FuelEconomyPoint, error) {
	rows, err := r.db.Query(ctx, fuelEconomySQL, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []FuelEconomyPoint
	for rows.Next() {
		var p FuelEconomyPoint
		if err := rows.Scan(&p.Month, &p.MPG); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *repository) VehiclePeriodSummary(ctx context.Context, vehicleID int64, label string, from, to time.Time) (PeriodSummary, error) {
	return r.periodSummary(ctx, label, from, to, "sr.vehicle_id = $1", "fl.vehicle_id = $1", vehicleID)
}

func (r *repository) GaragePeriodSummary(ctx context.Context, garageID int64, label string, from, to time.Time) (PeriodSummary, error) {
	return r.periodSummary(ctx, label, from, to, "v.garage_id = $1", "vf.garage_id = $1", garageID)
}

func (r *repository) periodSummary(ctx context.Context, label string, from, to time.Time, serviceScope, fuelScope string, scopeID int64) (PeriodSummary, error) {
	summary := PeriodSummary{
		Label:      label,
		From:       from,
		To:         to,
		ByCategory: make(map[string]float64),
	}

	categorySQL := `
SELECT sr.category, COALESCE(SUM(sr.cost), 0)::double precision, COUNT(*)
FROM service_records sr
JOIN vehicles v ON v.id = sr.vehicle_id
WHERE ` + serviceScope + ` AND sr.performed_on >= $2 AND sr.performed_on <= $3
GROUP BY sr.category`

	rows, err := r.db.Query(ctx, categorySQL, scopeID, from, to)
	if err != nil {
		return PeriodSummary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var cost float64
		var count int
		if err := rows.Scan(&category, &cost, &count); err != nil {
			return PeriodSummary{}, err
		}
		summary.ByCategory[category] = cost
		summary.TotalCost += cost
		summary.ServiceCount += count
	}
	if err := rows.Err(); err != nil {
		return PeriodSummary{}, err
	}

	fuelSQL := `
SELECT COALESCE(SUM(fl.total_cost), 0)::double precision
FROM fuel_logs fl
JOIN vehicles vf ON vf.id = fl.vehicle_id
WHERE ` + fuelScope + ` AND fl.filled_on >= $2 AND fl.filled_on <= $3`

	var fuelTotal float64
	if err := r.db.QueryRow(ctx, fuelSQL, scopeID, from, to).Scan(&fuelTotal); err != nil && err != pgx.ErrNoRows {
		return PeriodSummary{}, err
	}
	if fuelTotal > 0 {
		summary.ByCategory["Fuel"] = fuelTotal
		summary.TotalCost += fuelTotal
	}

	return summary, nil
}

func (r *repository) monthlySums(ctx context.Context, query string, scopeID int64, from, to string) (map[string]float64, error) {
	rows, err := r.db.Query(ctx, query, scopeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := make(map[string]float64)
	for rows.Next() {
		var month string
		var amount float64
		if err := rows.Scan(&month, &amount); err != nil {
			return nil, err
		}
		sums[month] = amount
	}
	return sums, rows.Err()
}

func (r *repository) monthlyFuelSums(ctx context.Context, query string, scopeID int64, from, to string) (map[string]float64, map[string]float64, error) {
	rows, err := r.db.Query(ctx, query, scopeID, from, to)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	fuel := make(map[string]float64)
	def := make(map[string]float64)
	for rows.Next() {
		var month string
		var fuelAmount, defAmount float64
		if err := rows.Scan(&month, &fuelAmount, &defAmount); err != nil {
			return nil, nil, err
		}
		fuel[month] = fuelAmount
		def[month] = defAmount
	}
	return fuel, def, rows.Err()
}

func mergeCostSeries(maintenance, fuel, def map[string]float64) []MonthlyCostPoint {
	months := make(map[string]struct{})
	for m := range maintenance {
		months[m] = struct{}{}
	}
	for m := range fuel {
		months[m] = struct{}{}
	}
	for m := range def {
		months[m] = struct{}{}
	}

	points := make([]MonthlyCostPoint, 0, len(months))
	for m := range months {
		p := MonthlyCostPoint{
			Month:       m,
			Maintenance: maintenance[m],
			Fuel:        fuel[m],
			DEF:         def[m],
		}
		p.Total = p.CombinedTotal()
		points = append(points, p)
	}
	SortSeries(points)
	return points
}
