package vehicles

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mygarage/mygarage/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Vehicle, int, error)
	Get(ctx context.Context, id int64) (Vehicle, error)
	Create(ctx context.Context, v Vehicle) (Vehicle, error)
	Update(ctx context.Context, id int64, v Vehicle) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const vehicleColumns = `id, garage_id, name, make, model, year, COALESCE(vin, ''), COALESCE(license_plate, ''), initial_odometer, current_odometer, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Vehicle, int, error) {
	where := ` WHERE garage_id = $1`
	args := []interface{}{filters.GarageID}
	argCount := 1

	if filters.Search != "" {
		argCount++
		n := strconv.Itoa(argCount)
		where += ` AND (name ILIKE $` + n + ` OR make ILIKE $` + n + ` OR model ILIKE $` + n + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vehicles`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + vehicleColumns + ` FROM vehicles` + where +
		` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)

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

	var list []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, v)
	}
	return list, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Vehicle, error) {
	row := r.db.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Vehicle{}, httpx.ErrNotFound
	}
	return v, err
}

// Create inserts a vehicle. Duplicate VINs map to ErrDuplicate.
func (r *repository) Create(ctx context.Context, v Vehicle) (Vehicle, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `
		INSERT INTO vehicles (garage_id, name, make, model, year, vin, license_plate, initial_odometer, current_odometer, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $8, $9, $10, $10)
		RETURNING id`,
		v.GarageID, v.Name, v.Make, v.Model, v.Year, v.VIN, v.LicensePlate, v.InitialOdometer, v.IsActive, now).
		Scan(&v.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Vehicle{}, httpx.ErrDuplicate
		}
		return Vehicle{}, err
	}
	v.CurrentOdometer = v.InitialOdometer
	v.CreatedAt = now
	v.UpdatedAt = now
	return v, nil
}

func (r *repository) Update(ctx context.Context, id int64, v Vehicle) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE vehicles SET name = $1, make = $2, model = $3, year = $4,
			vin = NULLIF($5, ''), license_plate = NULLIF($6, ''),
			initial_odometer = $7, is_active = $8, updated_at = $9
		WHERE id = $10`,
		v.Name, v.Make, v.Model, v.Year, v.VIN, v.LicensePlate, v.InitialOdometer, v.IsActive, time.Now(), id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return httpx.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanVehicle(row pgx.Row) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.GarageID, &v.Name, &v.Make, &v.Model, &v.Year, &v.VIN,
		&v.LicensePlate, &v.InitialOdometer, &v.CurrentOdometer, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "name":
		return "name " + dir
	case "year":
		return "year " + dir
	case "make":
		return "make " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
