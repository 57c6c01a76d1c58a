package coverage

import "time"

// Warranty covers a vehicle for a date range and optional mileage cap.
type Warranty struct {
	ID           int64     `json:"id"`
	VehicleID    int64     `json:"vehicle_id"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider,omitempty"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	MileageLimit float64   `json:"mileage_limit,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Expired reports whether the warranty has lapsed as of the given time.
func (w Warranty) Expired(now time.Time) bool {
	return w.EndDate.Before(now)
}

// TSB is a manufacturer technical service bulletin tracked against a vehicle.
type TSB struct {
	ID        int64     `json:"id"`
	VehicleID int64     `json:"vehicle_id"`
	Reference string    `json:"reference"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	IssuedOn  time.Time `json:"issued_on"`
	URL       string    `json:"url,omitempty"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WarrantyRequest carries warranty create/update submissions. Dates use
// YYYY-MM-DD.
type WarrantyRequest struct {
	VehicleID    int64   `json:"vehicle_id" validate:"required,gt=0"`
	Name         string  `json:"name" validate:"required,max=120"`
	Provider     string  `json:"provider" validate:"max=120"`
	StartDate    string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate      string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	MileageLimit float64 `json:"mileage_limit" validate:"gte=0"`
	Notes        string  `json:"notes" validate:"max=1000"`
}

// TSBRequest carries bulletin create/update submissions.
type TSBRequest struct {
	VehicleID int64  `json:"vehicle_id" validate:"required,gt=0"`
	Reference string `json:"reference" validate:"required,max=60"`
	Title     string `json:"title" validate:"required,max=200"`
	Summary   string `json:"summary" validate:"max=2000"`
	IssuedOn  string `json:"issued_on" validate:"required,datetime=2006-01-02"`
	URL       string `json:"url" validate:"omitempty,url,max=500"`
	Resolved  bool   `json:"resolved"`
}
