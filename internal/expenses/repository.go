package expenses

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mygarage/mygarage/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Expense, int, error)
	Get(ctx context.Context, id int64) (Expense, error)
	Create(ctx context.Context, e Expense) (Expense, error)
	Update(ctx context.Context, id int64, e Expense) error
	Delete(ctx context.Context, id int64) error
	// RenewingTaxes lists tax entries renewing inside the window, joined
	// with the garage owner who should be notified.
	RenewingTaxes(ctx context.Context, from, to time.Time) ([]RenewingTax, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const expenseColumns = `id, vehicle_id, kind, description, amount, incurred_on, renews_on, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Expense, int, error) {
	where := ` WHERE vehicle_id = $1`
	args := []interface{}{filters.VehicleID}
	argCount := 1

	if filters.Kind != "" {
		argCount++
		where += ` AND kind = $` + strconv.Itoa(argCount)
		args = append(args, filters.Kind)
	}
	if filters.From != "" {
		argCount++
		where += ` AND incurred_on >= $` + strconv.Itoa(argCount)
		args = append(args, filters.From)
	}
	if filters.To != "" {
		argCount++
		where += ` AND incurred_on <= $` + strconv.Itoa(argCount)
		args = append(args, filters.To)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM expenses`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses` + where + ` ORDER BY incurred_on DESC, id DESC`
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

	var expensesList []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		expensesList = append(expensesList, e)
	}
	return expensesList, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Expense, error) {
	row := r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, httpx.ErrNotFound
	}
	return e, err
}

func (r *repository) Create(ctx context.Context, e Expense) (Expense, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (vehicle_id, kind, description, amount, incurred_on, renews_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`,
		e.VehicleID, e.Kind, e.Description, e.Amount, e.IncurredOn, e.RenewsOn, now).
		Scan(&e.ID)
	if err != nil {
		return Expense{}, err
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	return e, nil
}

func (r *repository) Update(ctx context.Context, id int64, e Expense) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE expenses SET kind = $1, description = $2, amount = $3, incurred_on = $4, renews_on = $5, updated_at = $6
		WHERE id = $7`,
		e.Kind, e.Description, e.Amount, e.IncurredOn, e.RenewsOn, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) RenewingTaxes(ctx context.Context, from, to time.Time) ([]RenewingTax, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.vehicle_id, e.kind, e.description, e.amount, e.incurred_on, e.renews_on,
		       e.created_at, e.updated_at, v.name, g.owner_id
		FROM expenses e
		JOIN vehicles v ON v.id = e.vehicle_id
		JOIN garages g ON g.id = v.garage_id
		WHERE e.kind = 'tax' AND e.renews_on >= $1 AND e.renews_on <= $2
		ORDER BY e.renews_on ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var renewing []RenewingTax
	for rows.Next() {
		var t RenewingTax
		err := rows.Scan(&t.ID, &t.VehicleID, &t.Kind, &t.Description, &t.Amount, &t.IncurredOn,
			&t.RenewsOn, &t.CreatedAt, &t.UpdatedAt, &t.VehicleName, &t.OwnerID)
		if err != nil {
			return nil, err
		}
		renewing = append(renewing, t)
	}
	return renewing, rows.Err()
}

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.VehicleID, &e.Kind, &e.Description, &e.Amount, &e.IncurredOn,
		&e.RenewsOn, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}
