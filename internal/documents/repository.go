package documents

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
	List(ctx context.Context, vehicleID int64) ([]Document, error)
	Get(ctx context.Context, id int64) (Document, error)
	Create(ctx context.Context, d Document) (Document, error)
	Delete(ctx context.Context, id int64) error
	Usage(ctx context.Context, vehicleID int64) (Usage, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const documentColumns = `id, vehicle_id, storage_key, file_name, content_type, size_bytes, uploaded_by, created_at`

func (r *repository) List(ctx context.Context, vehicleID int64) ([]Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE vehicle_id = $1 ORDER BY created_at DESC`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, httpx.ErrNotFound
	}
	return d, err
}

// Create inserts document metadata. The (vehicle_id, file_name) pair is
// unique so re-uploads surface as conflicts.
func (r *repository) Create(ctx context.Context, d Document) (Document, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `
		INSERT INTO documents (vehicle_id, storage_key, file_name, content_type, size_bytes, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		d.VehicleID, d.StorageKey, d.FileName, d.ContentType, d.SizeBytes, d.UploadedBy, now).
		Scan(&d.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Document{}, httpx.ErrDuplicate
		}
		return Document{}, err
	}
	d.CreatedAt = now
	return d, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Usage(ctx context.Context, vehicleID int64) (Usage, error) {
	var u Usage
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(size_bytes), 0) FROM documents WHERE vehicle_id = $1`, vehicleID).
		Scan(&u.Count, &u.TotalBytes)
	return u, err
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.VehicleID, &d.StorageKey, &d.FileName, &d.ContentType,
		&d.SizeBytes, &d.UploadedBy, &d.CreatedAt)
	return d, err
}
