package settings

import "time"

// Settings is one user's preference document. A row exists per user; reads
// fall back to Defaults when no row was saved yet.
type Settings struct {
	UserID          int64     `json:"user_id" db:"user_id"`
	DistanceUnit    string    `json:"distance_unit" db:"distance_unit"`
	VolumeUnit      string    `json:"volume_unit" db:"volume_unit"`
	Currency        string    `json:"currency" db:"currency"`
	DefaultGarageID *int64    `json:"default_garage_id,omitempty" db:"default_garage_id"`
	EmailReminders  bool      `json:"email_reminders" db:"email_reminders"`
	ReminderDays    int       `json:"reminder_days" db:"reminder_days"`
	MaxDocumentMB   int       `json:"max_document_mb" db:"max_document_mb"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateRequest carries a settings edit. Every field is optional; omitted
// fields keep their stored value.
type UpdateRequest struct {
	DistanceUnit    *string `json:"distance_unit,omitempty" validate:"omitempty,oneof=miles kilometers"`
	VolumeUnit      *string `json:"volume_unit,omitempty" validate:"omitempty,oneof=gallons liters"`
	Currency        *string `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	DefaultGarageID *int64  `json:"default_garage_id,omitempty" validate:"omitempty,gt=0"`
	EmailReminders  *bool   `json:"email_reminders,omitempty"`
	ReminderDays    *int    `json:"reminder_days,omitempty" validate:"omitempty,gte=1,lte=90"`
	MaxDocumentMB   *int    `json:"max_document_mb,omitempty" validate:"omitempty,gte=1,lte=100"`
}

// Defaults returns the settings a user has before their first save.
func Defaults(userID int64) Settings {
	return Settings{
		UserID:        userID,
		DistanceUnit:  "miles",
		VolumeUnit:    "gallons",
		Currency:      "USD",
		ReminderDays:  30,
		MaxDocumentMB: 10,
	}
}

func (s Settings) applied(req UpdateRequest) Settings {
	if req.DistanceUnit != nil {
		s.DistanceUnit = *req.DistanceUnit
	}
	if req.VolumeUnit != nil {
		s.VolumeUnit = *req.VolumeUnit
	}
	if req.Currency != nil {
		s.Currency = *req.Currency
	}
	if req.DefaultGarageID != nil {
		s.DefaultGarageID = req.DefaultGarageID
	}
	if req.EmailReminders != nil {
		s.EmailReminders = *req.EmailReminders
	}
	if req.ReminderDays != nil {
		s.ReminderDays = *req.ReminderDays
	}
	if req.MaxDocumentMB != nil {
		s.MaxDocumentMB = *req.MaxDocumentMB
	}
	return s
}
