package fuel

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mygarage/mygarage/internal/platform/db"
	"github.com/mygarage/mygarage/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Log, int, error)
	Get(ctx context.Context, id int64) (Log, error)
	Create(ctx context.Context, log Log) (Log, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, vehicleID int64) (Stats, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const logColumns = `id, vehicle_id, filled_on, odometer, gallons, price_per_gallon, total_cost, is_def, is_partial, COALESCE(trip_miles, 0), COALESCE(mpg, 0), COALESCE(notes, ''), created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Log, int, error) {
	where := ` WHERE vehicle_id = $1`
	args := []interface{}{filters.VehicleID}
	argCount := 1

	if filters.From != "" {
		argCount++
		where += ` AND filled_on >= $` + strconv.Itoa(argCount)
		args = append(args, filters.From)
	}
	if filters.To != "" {
		argCount++
		where += ` AND filled_on <= $` + strconv.Itoa(argCount)
		args = append(args, filters.To)
	}
	if filters.DEFOnly {
		where += ` AND is_def`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM fuel_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + logColumns + ` FROM fuel_logs` + where + ` ORDER BY filled_on DESC, odometer DESC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Log, error) {
	row := r.db.QueryRow(ctx, `SELECT `+logColumns+` FROM fuel_logs WHERE id = $1`, id)
	l, err := scanLog(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Log{}, httpx.ErrNotFound
	}
	return l, err
}

// Create derives trip miles and MPG from the previous fuel fill-up below
// this odometer reading, then advances the vehicle's stored odometer. DEF
// and partial fills never carry an MPG figure.
func (r *repository) Create(ctx context.Context, log Log) (Log, error) {
	now := time.Now()
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if !log.IsDEF {
			var prevOdometer float64
			err := tx.QueryRow(ctx, `
				SELECT odometer FROM fuel_logs
				WHERE vehicle_id = $1 AND NOT is_def AND odometer < $2
				ORDER BY odometer DESC LIMIT 1`, log.VehicleID, log.Odometer).
				Scan(&prevOdometer)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				// First fill-up has no trip to measure.
			case err != nil:
				return err
			default:
				log.TripMiles = log.Odometer - prevOdometer
				if !log.IsPartial && log.Gallons > 0 {
					log.MPG = log.TripMiles / log.Gallons
				}
			}
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO fuel_logs (vehicle_id, filled_on, odometer, gallons, price_per_gallon, total_cost, is_def, is_partial, trip_miles, mpg, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, 0::numeric), NULLIF($10, 0::numeric), NULLIF($11, ''), $12, $12)
			RETURNING id`,
			log.VehicleID, log.FilledOn, log.Odometer, log.Gallons, log.PricePer, log.TotalCost,
			log.IsDEF, log.IsPartial, log.TripMiles, log.MPG, log.Notes, now).
			Scan(&log.ID)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE vehicles SET current_odometer = GREATEST(current_odometer, $1), updated_at = now()
			WHERE id = $2`, log.Odometer, log.VehicleID)
		return err
	})
	if err != nil {
		return Log{}, err
	}
	log.CreatedAt = now
	log.UpdatedAt = now
	return log, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM fuel_logs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Stats(ctx context.Context, vehicleID int64) (Stats, error) {
	var s Stats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(gallons), 0),
		       COALESCE(SUM(total_cost), 0),
		       COALESCE(SUM(trip_miles), 0),
		       COALESCE(AVG(mpg), 0),
		       COALESCE(MAX(mpg), 0),
		       COALESCE(MIN(mpg), 0)
		FROM fuel_logs WHERE vehicle_id = $1 AND NOT is_def`, vehicleID).
		Scan(&s.Fills, &s.TotalGallons, &s.TotalCost, &s.TotalMiles, &s.AverageMPG, &s.BestMPG, &s.WorstMPG)
	return s, err
}

func scanLog(row pgx.Row) (Log, error) {
	var l Log
	err := row.Scan(&l.ID, &l.VehicleID, &l.FilledOn, &l.Odometer, &l.Gallons, &l.PricePer,
		&l.TotalCost, &l.IsDEF, &l.IsPartial, &l.TripMiles, &l.MPG, &l.Notes, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}
