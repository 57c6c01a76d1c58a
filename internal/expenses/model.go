package expenses

import "time"

// Kind distinguishes toll charges from recurring tax payments.
type Kind string

const (
	KindToll Kind = "toll"
	KindTax  Kind = "tax"
)

// Expense is a toll or tax entry for a vehicle. Taxes may carry a renewal
// date that drives reminder notifications.
type Expense struct {
	ID          int64      `json:"id"`
	VehicleID   int64      `json:"vehicle_id"`
	Kind        Kind       `json:"kind"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	IncurredOn  time.Time  `json:"incurred_on"`
	RenewsOn    *time.Time `json:"renews_on,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UpsertRequest carries expense create/update submissions. Dates use
// YYYY-MM-DD.
type UpsertRequest struct {
	VehicleID   int64   `json:"vehicle_id" validate:"required,gt=0"`
	Kind        Kind    `json:"kind" validate:"required,oneof=toll tax"`
	Description string  `json:"description" validate:"required,max=200"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	IncurredOn  string  `json:"incurred_on" validate:"required,datetime=2006-01-02"`
	RenewsOn    string  `json:"renews_on" validate:"omitempty,datetime=2006-01-02"`
}

// ListFilters narrows expense listings.
type ListFilters struct {
	VehicleID int64
	Kind      Kind
	From      string
	To        string
	Page      int
	Limit     int
}

// RenewingTax pairs an upcoming tax renewal with notification routing data.
type RenewingTax struct {
	Expense
	VehicleName string
	OwnerID     int64
}
