package vehicles

import "time"

// Vehicle is a tracked car, truck, or equipment unit within a garage.
type Vehicle struct {
	ID              int64     `json:"id"`
	GarageID        int64     `json:"garage_id"`
	Name            string    `json:"name"`
	Make            string    `json:"make"`
	Model           string    `json:"model"`
	Year            int       `json:"year"`
	VIN             string    `json:"vin,omitempty"`
	LicensePlate    string    `json:"license_plate,omitempty"`
	InitialOdometer float64   `json:"initial_odometer"`
	CurrentOdometer float64   `json:"current_odometer"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// UpsertRequest carries vehicle create/update submissions.
type UpsertRequest struct {
	GarageID        int64   `json:"garage_id" validate:"required,gt=0"`
	Name            string  `json:"name" validate:"required,max=120"`
	Make            string  `json:"make" validate:"required,max=60"`
	Model           string  `json:"model" validate:"required,max=60"`
	Year            int     `json:"year" validate:"required,gte=1900,lte=2100"`
	VIN             string  `json:"vin" validate:"omitempty,len=17,alphanum"`
	LicensePlate    string  `json:"license_plate" validate:"omitempty,max=16"`
	InitialOdometer float64 `json:"initial_odometer" validate:"gte=0"`
	IsActive        *bool   `json:"is_active"`
}

// ListFilters narrows vehicle listings.
type ListFilters struct {
	GarageID int64
	Search   string
	IsActive *bool
	SortBy   string
	SortDir  string
	Page     int
	Limit    int
}
