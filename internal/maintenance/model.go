package maintenance

import "time"

// Record is a single maintenance or repair entry for a vehicle.
type Record struct {
	ID              int64     `json:"id"`
	VehicleID       int64     `json:"vehicle_id"`
	Category        string    `json:"category"`
	Description     string    `json:"description"`
	Cost            float64   `json:"cost"`
	OdometerReading float64   `json:"odometer_reading,omitempty"`
	PerformedOn     time.Time `json:"performed_on"`
	Vendor          string    `json:"vendor,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UpsertRequest carries record create/update submissions. PerformedOn uses
// the YYYY-MM-DD form.
type UpsertRequest struct {
	VehicleID       int64   `json:"vehicle_id" validate:"required,gt=0"`
	Category        string  `json:"category" validate:"required,max=60"`
	Description     string  `json:"description" validate:"required,max=300"`
	Cost            float64 `json:"cost" validate:"gte=0"`
	OdometerReading float64 `json:"odometer_reading" validate:"gte=0"`
	PerformedOn     string  `json:"performed_on" validate:"required,datetime=2006-01-02"`
	Vendor          string  `json:"vendor" validate:"max=120"`
	Notes           string  `json:"notes" validate:"max=1000"`
}

// ListFilters narrows record listings.
type ListFilters struct {
	VehicleID int64
	Category  string
	From      string // YYYY-MM-DD inclusive
	To        string // YYYY-MM-DD inclusive
	Page      int
	Limit     int
}
