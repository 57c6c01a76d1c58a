package garage

import "time"

// Role is a member's permission level within a garage.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleOwner:  3,
}

// Valid reports whether the role is one of the known levels.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether the role grants at least the given level.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// Garage groups vehicles shared between household members.
type Garage struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	OwnerID      int64     `json:"owner_id"`
	VehicleCount int       `json:"vehicle_count"`
	Role         Role      `json:"role,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Member is a user's membership record within a garage.
type Member struct {
	GarageID int64     `json:"garage_id"`
	UserID   int64     `json:"user_id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	AddedAt  time.Time `json:"added_at"`
}

// CreateRequest carries a new garage submission.
type CreateRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// UpdateRequest carries a garage rename.
type UpdateRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// MemberRequest invites a user to a garage by email.
type MemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  Role   `json:"role" validate:"required,oneof=editor viewer"`
}

// RoleRequest changes an existing member's role.
type RoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=editor viewer"`
}
