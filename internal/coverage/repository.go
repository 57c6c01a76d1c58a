package coverage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mygarage/mygarage/internal/platform/httpx"
)

type Repository interface {
	Warranties(ctx context.Context, vehicleID int64) ([]Warranty, error)
	GetWarranty(ctx context.Context, id int64) (Warranty, error)
	CreateWarranty(ctx context.Context, w Warranty) (Warranty, error)
	UpdateWarranty(ctx context.Context, id int64, w Warranty) error
	DeleteWarranty(ctx context.Context, id int64) error
	// ExpiringWarranties lists warranties ending inside the window, joined
	// with the garage owner who should be notified.
	ExpiringWarranties(ctx context.Context, from, to time.Time) ([]ExpiringWarranty, error)

	Bulletins(ctx context.Context, vehicleID int64, includeResolved bool) ([]TSB, error)
	GetBulletin(ctx context.Context, id int64) (TSB, error)
	CreateBulletin(ctx context.Context, b TSB) (TSB, error)
	UpdateBulletin(ctx context.Context, id int64, b TSB) error
	DeleteBulletin(ctx context.Context, id int64) error
}

// ExpiringWarranty pairs a warranty with notification routing data.
type ExpiringWarranty struct {
	Warranty
	VehicleName string
	OwnerID     int64
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const warrantyColumns = `id, vehicle_id, name, COALESCE(provider, ''), start_date, end_date, COALESCE(mileage_limit, 0), COALESCE(notes, ''), created_at, updated_at`

func (r *repository) Warranties(ctx context.Context, vehicleID int64) ([]Warranty, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+warrantyColumns+` FROM warranties WHERE vehicle_id = $1 ORDER BY end_date DESC`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warranties []Warranty
	for rows.Next() {
		w, err := scanWarranty(rows)
		if err != nil {
			return nil, err
		}
		warranties = append(warranties, w)
	}
	return warranties, rows.Err()
}

func (r *repository) GetWarranty(ctx context.Context, id int64) (Warranty, error) {
	row := r.db.QueryRow(ctx, `SELECT `+warrantyColumns+` FROM warranties WHERE id = $1`, id)
	w, err := scanWarranty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Warranty{}, httpx.ErrNotFound
	}
	return w, err
}

func (r *repository) CreateWarranty(ctx context.Context, w Warranty) (Warranty, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `
		INSERT INTO warranties (vehicle_id, name, provider, start_date, end_date, mileage_limit, notes, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, 0::numeric), NULLIF($7, ''), $8, $8)
		RETURNING id`,
		w.VehicleID, w.Name, w.Provider, w.StartDate, w.EndDate, w.MileageLimit, w.Notes, now).
		Scan(&w.ID)
	if err != nil {
		return Warranty{}, err
	}
	w.CreatedAt = now
	w.UpdatedAt = now
	return w, nil
}

func (r *repository) UpdateWarranty(ctx context.Context, id int64, w Warranty) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE warranties SET name = $1, provider = NULLIF($2, ''), start_date = $3, end_date = $4,
			mileage_limit = NULLIF($5, 0::numeric), notes = NULLIF($6, ''), updated_at = $7
		WHERE id = $8`,
		w.Name, w.Provider, w.StartDate, w.EndDate, w.MileageLimit, w.Notes, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteWarranty(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM warranties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) ExpiringWarranties(ctx context.Context, from, to time.Time) ([]ExpiringWarranty, error) {
	rows, err := r.db.Query(ctx, `
		SELECT w.id, w.vehicle_id, w.name, COALESCE(w.provider, ''), w.start_date, w.end_date,
		       COALESCE(w.mileage_limit, 0), COALESCE(w.notes, ''), w.created_at, w.updated_at,
		       v.name, g.owner_id
		FROM warranties w
		JOIN vehicles v ON v.id = w.vehicle_id
		JOIN garages g ON g.id = v.garage_id
		WHERE w.end_date >= $1 AND w.end_date <= $2
		ORDER BY w.end_date ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expiring []ExpiringWarranty
	for rows.Next() {
		var e ExpiringWarranty
		err := rows.Scan(&e.ID, &e.VehicleID, &e.Name, &e.Provider, &e.StartDate, &e.EndDate,
			&e.MileageLimit, &e.Notes, &e.CreatedAt, &e.UpdatedAt, &e.VehicleName, &e.OwnerID)
		if err != nil {
			return nil, err
		}
		expiring = append(expiring, e)
	}
	return expiring, rows.Err()
}

const tsbColumns = `id, vehicle_id, reference, title, COALESCE(summary, ''), issued_on, COALESCE(url, ''), resolved, created_at, updated_at`

func (r *repository) Bulletins(ctx context.Context, vehicleID int64, includeResolved bool) ([]TSB, error) {
	query := `SELECT ` + tsbColumns + ` FROM tsbs WHERE vehicle_id = $1`
	if !includeResolved {
		query += ` AND NOT resolved`
	}
	query += ` ORDER BY issued_on DESC`

	rows, err := r.db.Query(ctx, query, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bulletins []TSB
	for rows.Next() {
		b, err := scanTSB(rows)
		if err != nil {
			return nil, err
		}
		bulletins = append(bulletins, b)
	}
	return bulletins, rows.Err()
}

func (r *repository) GetBulletin(ctx context.Context, id int64) (TSB, error) {
	row := r.db.QueryRow(ctx, `SELECT `+tsbColumns+` FROM tsbs WHERE id = $1`, id)
	b, err := scanTSB(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return TSB{}, httpx.ErrNotFound
	}
	return b, err
}

// CreateBulletin inserts a TSB. The (vehicle_id, reference) pair is unique.
func (r *repository) CreateBulletin(ctx context.Context, b TSB) (TSB, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `
		INSERT INTO tsbs (vehicle_id, reference, title, summary, issued_on, url, resolved, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7, $8, $8)
		RETURNING id`,
		b.VehicleID, b.Reference, b.Title, b.Summary, b.IssuedOn, b.URL, b.Resolved, now).
		Scan(&b.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return TSB{}, httpx.ErrDuplicate
		}
		return TSB{}, err
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	return b, nil
}

func (r *repository) UpdateBulletin(ctx context.Context, id int64, b TSB) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE tsbs SET reference = $1, title = $2, summary = NULLIF($3, ''), issued_on = $4,
			url = NULLIF($5, ''), resolved = $6, updated_at = $7
		WHERE id = $8`,
		b.Reference, b.Title, b.Summary, b.IssuedOn, b.URL, b.Resolved, time.Now(), id)
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

func (r *repository) DeleteBulletin(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tsbs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanWarranty(row pgx.Row) (Warranty, error) {
	var w Warranty
	err := row.Scan(&w.ID, &w.VehicleID, &w.Name, &w.Provider, &w.StartDate, &w.EndDate,
		&w.MileageLimit, &w.Notes, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func scanTSB(row pgx.Row) (TSB, error) {
	var b TSB
	err := row.Scan(&b.ID, &b.VehicleID, &b.Reference, &b.Title, &b.Summary, &b.IssuedOn,
		&b.URL, &b.Resolved, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
