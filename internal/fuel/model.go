package fuel

import "time"

// Log is a single fuel or DEF fill-up. TripMiles and MPG are derived from
// the odometer delta against the previous fill-up at insert time and stored
// so history survives later edits to neighboring rows.
type Log struct {
	ID        int64     `json:"id"`
	VehicleID int64     `json:"vehicle_id"`
	FilledOn  time.Time `json:"filled_on"`
	Odometer  float64   `json:"odometer"`
	Gallons   float64   `json:"gallons"`
	PricePer  float64   `json:"price_per_gallon"`
	TotalCost float64   `json:"total_cost"`
	IsDEF     bool      `json:"is_def"`
	IsPartial bool      `json:"is_partial"`
	TripMiles float64   `json:"trip_miles,omitempty"`
	MPG       float64   `json:"mpg,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest carries a fill-up submission. FilledOn uses YYYY-MM-DD.
type CreateRequest struct {
	VehicleID int64   `json:"vehicle_id" validate:"required,gt=0"`
	FilledOn  string  `json:"filled_on" validate:"required,datetime=2006-01-02"`
	Odometer  float64 `json:"odometer" validate:"required,gt=0"`
	Gallons   float64 `json:"gallons" validate:"required,gt=0"`
	PricePer  float64 `json:"price_per_gallon" validate:"gte=0"`
	IsDEF     bool    `json:"is_def"`
	IsPartial bool    `json:"is_partial"`
	Notes     string  `json:"notes" validate:"max=500"`
}

// ListFilters narrows fill-up listings.
type ListFilters struct {
	VehicleID int64
	From      string
	To        string
	DEFOnly   bool
	Page      int
	Limit     int
}

// Stats aggregates a vehicle's fill-up history.
type Stats struct {
	Fills        int     `json:"fills"`
	TotalGallons float64 `json:"total_gallons"`
	TotalCost    float64 `json:"total_cost"`
	TotalMiles   float64 `json:"total_miles"`
	AverageMPG   float64 `json:"average_mpg"`
	BestMPG      float64 `json:"best_mpg"`
	WorstMPG     float64 `json:"worst_mpg"`
}
