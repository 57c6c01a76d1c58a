package maintenance

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
	List(ctx context.Context, filters ListFilters) ([]Record, int, error)
	Get(ctx context.Context, id int64) (Record, error)
	Create(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, id int64, rec Record) error
	Delete(ctx context.Context, id int64) error
	Categories(ctx context.Context, vehicleID int64) ([]string, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const recordColumns = `id, vehicle_id, category, description, cost, COALESCE(odometer_reading, 0), performed_on, COALESCE(vendor, ''), COALESCE(notes, ''), created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Record, int, error) {
	where := ` WHERE vehicle_id = $1`
	args := []interface{}{filters.VehicleID}
	argCount := 1

	if filters.Category != "" {
		argCount++
		where += ` AND category = $` + strconv.Itoa(argCount)
		args = append(args, filters.Category)
	}
	if filters.From != "" {
		argCount++
		where += ` AND performed_on >= $` + strconv.Itoa(argCount)
		args = append(args, filters.From)
	}
	if filters.To != "" {
		argCount++
		where += ` AND performed_on <= $` + strconv.Itoa(argCount)
		args = append(args, filters.To)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM service_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + recordColumns + ` FROM service_records` + where + ` ORDER BY performed_on DESC, id DESC`
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

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM service_records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, httpx.ErrNotFound
	}
	return rec, err
}

// Create inserts the record and advances the vehicle odometer when the
// reading is ahead of the stored value.
func (r *repository) Create(ctx context.Context, rec Record) (Record, error) {
	now := time.Now()
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO service_records (vehicle_id, category, description, cost, odometer_reading, performed_on, vendor, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NULLIF($5, 0::numeric), $6, NULLIF($7, ''), NULLIF($8, ''), $9, $9)
			RETURNING id`,
			rec.VehicleID, rec.Category, rec.Description, rec.Cost, rec.OdometerReading,
			rec.PerformedOn, rec.Vendor, rec.Notes, now).
			Scan(&rec.ID)
		if err != nil {
			return err
		}

		if rec.OdometerReading > 0 {
			_, err = tx.Exec(ctx, `
				UPDATE vehicles SET current_odometer = GREATEST(current_odometer, $1), updated_at = now()
				WHERE id = $2`, rec.OdometerReading, rec.VehicleID)
		}
		return err
	})
	if err != nil {
		return Record{}, err
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return rec, nil
}

func (r *repository) Update(ctx context.Context, id int64, rec Record) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE service_records SET category = $1, description = $2, cost = $3,
			odometer_reading = NULLIF($4, 0::numeric), performed_on = $5,
			vendor = NULLIF($6, ''), notes = NULLIF($7, ''), updated_at = $8
		WHERE id = $9`,
		rec.Category, rec.Description, rec.Cost, rec.OdometerReading, rec.PerformedOn,
		rec.Vendor, rec.Notes, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM service_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Categories returns the distinct categories already used for a vehicle,
// feeding the entry form's autocomplete.
func (r *repository) Categories(ctx context.Context, vehicleID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT category FROM service_records WHERE vehicle_id = $1 ORDER BY category ASC`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.VehicleID, &rec.Category, &rec.Description, &rec.Cost,
		&rec.OdometerReading, &rec.PerformedOn, &rec.Vendor, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}
