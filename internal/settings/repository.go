package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for user settings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const getSQL = `
SELECT user_id, distance_unit, volume_unit, currency, default_garage_id,
       email_reminders, reminder_days, max_document_mb, updated_at
FROM user_settings
WHERE user_id = $1`

const upsertSQL = `
INSERT INTO user_settings (
    user_id, distance_unit, volume_unit, currency, default_garage_id,
    email_reminders, reminder_days, max_document_mb, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (user_id) DO UPDATE SET
    distance_unit = EXCLUDED.distance_unit,
    volume_unit = EXCLUDED.volume_unit,
    currency = EXCLUDED.currency,
    default_garage_id = EXCLUDED.default_garage_id,
    email_reminders = EXCLUDED.email_reminders,
    reminder_days = EXCLUDED.reminder_days,
    max_document_mb = EXCLUDED.max_document_mb,
    updated_at = now()
RETURNING updated_at`

// Get loads stored settings; Defaults when the user never saved.
func (r *Repository) Get(ctx context.Context, userID int64) (Settings, error) {
	var s Settings
	err := r.pool.QueryRow(ctx, getSQL, userID).Scan(
		&s.UserID, &s.DistanceUnit, &s.VolumeUnit, &s.Currency, &s.DefaultGarageID,
		&s.EmailReminders, &s.ReminderDays, &s.MaxDocumentMB, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Defaults(userID), nil
	}
	if err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save upserts the settings row and returns the persisted document.
func (r *Repository) Save(ctx context.Context, s Settings) (Settings, error) {
	err := r.pool.QueryRow(ctx, upsertSQL,
		s.UserID, s.DistanceUnit, s.VolumeUnit, s.Currency, s.DefaultGarageID,
		s.EmailReminders, s.ReminderDays, s.MaxDocumentMB,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return Settings{}, err
	}
	return s, nil
}
