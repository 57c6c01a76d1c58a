package garage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mygarage/mygarage/internal/platform/db"
	"github.com/mygarage/mygarage/internal/platform/httpx"
)

type Repository interface {
	ListForUser(ctx context.Context, userID int64) ([]Garage, error)
	Get(ctx context.Context, id int64) (Garage, error)
	Create(ctx context.Context, name string, ownerID int64) (Garage, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error

	Members(ctx context.Context, garageID int64) ([]Member, error)
	AddMemberByEmail(ctx context.Context, garageID int64, email string, role Role) (Member, error)
	UpdateMemberRole(ctx context.Context, garageID, userID int64, role Role) error
	RemoveMember(ctx context.Context, garageID, userID int64) error

	RoleFor(ctx context.Context, userID, garageID int64) (Role, error)
	VehicleGarage(ctx context.Context, vehicleID int64) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListForUser(ctx context.Context, userID int64) ([]Garage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT g.id, g.name, g.owner_id, gm.role, g.created_at, g.updated_at,
		       (SELECT COUNT(*) FROM vehicles v WHERE v.garage_id = g.id) AS vehicle_count
		FROM garages g
		JOIN garage_members gm ON gm.garage_id = g.id
		WHERE gm.user_id = $1
		ORDER BY g.name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var garages []Garage
	for rows.Next() {
		var g Garage
		if err := rows.Scan(&g.ID, &g.Name, &g.OwnerID, &g.Role, &g.CreatedAt, &g.UpdatedAt, &g.VehicleCount); err != nil {
			return nil, err
		}
		garages = append(garages, g)
	}
	return garages, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Garage, error) {
	var g Garage
	err := r.db.QueryRow(ctx, `
		SELECT g.id, g.name, g.owner_id, g.created_at, g.updated_at,
		       (SELECT COUNT(*) FROM vehicles v WHERE v.garage_id = g.id) AS vehicle_count
		FROM garages g WHERE g.id = $1`, id).
		Scan(&g.ID, &g.Name, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt, &g.VehicleCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Garage{}, httpx.ErrNotFound
	}
	return g, err
}

// Create inserts the garage and its owner membership in one transaction.
func (r *repository) Create(ctx context.Context, name string, ownerID int64) (Garage, error) {
	now := time.Now()
	var g Garage
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO garages (name, owner_id, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			RETURNING id, name, owner_id, created_at, updated_at`, name, ownerID, now).
			Scan(&g.ID, &g.Name, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO garage_members (garage_id, user_id, role, added_at)
			VALUES ($1, $2, $3, $4)`, g.ID, ownerID, RoleOwner, now)
		return err
	})
	if err != nil {
		return Garage{}, err
	}
	g.Role = RoleOwner
	return g, nil
}

func (r *repository) Rename(ctx context.Context, id int64, name string) error {
	tag, err := r.db.Exec(ctx, `UPDATE garages SET name = $1, updated_at = now() WHERE id = $2`, name, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM garages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Members(ctx context.Context, garageID int64) ([]Member, error) {
	rows, err := r.db.Query(ctx, `
		SELECT gm.garage_id, gm.user_id, u.email, u.name, gm.role, gm.added_at
		FROM garage_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.garage_id = $1
		ORDER BY gm.added_at ASC`, garageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.GarageID, &m.UserID, &m.Email, &m.Name, &m.Role, &m.AddedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMemberByEmail resolves the invitee by email and inserts the membership.
// An unknown email maps to ErrNotFound, an existing membership to ErrDuplicate.
func (r *repository) AddMemberByEmail(ctx context.Context, garageID int64, email string, role Role) (Member, error) {
	var m Member
	err := r.db.QueryRow(ctx, `
		INSERT INTO garage_members (garage_id, user_id, role, added_at)
		SELECT $1, u.id, $2, now() FROM users u WHERE lower(u.email) = lower($3)
		RETURNING garage_id, user_id, role, added_at`, garageID, role, email).
		Scan(&m.GarageID, &m.UserID, &m.Role, &m.AddedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, httpx.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Member{}, httpx.ErrDuplicate
	}
	if err != nil {
		return Member{}, err
	}
	m.Email = email
	return m, nil
}

func (r *repository) UpdateMemberRole(ctx context.Context, garageID, userID int64, role Role) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE garage_members SET role = $1 WHERE garage_id = $2 AND user_id = $3`,
		role, garageID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) RemoveMember(ctx context.Context, garageID, userID int64) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM garage_members WHERE garage_id = $1 AND user_id = $2`, garageID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) RoleFor(ctx context.Context, userID, garageID int64) (Role, error) {
	var role Role
	err := r.db.QueryRow(ctx, `
		SELECT role FROM garage_members WHERE user_id = $1 AND garage_id = $2`,
		userID, garageID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", httpx.ErrForbidden
	}
	return role, err
}

func (r *repository) VehicleGarage(ctx context.Context, vehicleID int64) (int64, error) {
	var garageID int64
	err := r.db.QueryRow(ctx, `SELECT garage_id FROM vehicles WHERE id = $1`, vehicleID).Scan(&garageID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, httpx.ErrNotFound
	}
	return garageID, err
}
