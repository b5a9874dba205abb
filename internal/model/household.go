package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is a household member's permission level.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Roles lists every role in display order.
var Roles = []Role{RoleOwner, RoleEditor, RoleViewer}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Label returns the human-readable role name.
func (r Role) Label() string {
	switch r {
	case RoleOwner:
		return "Owner"
	case RoleEditor:
		return "Editor"
	case RoleViewer:
		return "Viewer"
	}
	return string(r)
}

// Rank orders roles for display: owner < editor < viewer.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 0
	case RoleEditor:
		return 1
	default:
		return 2
	}
}

// CanEditContent reports whether the role may change items, drawers,
// categories, mappings and settings.
func (r Role) CanEditContent() bool {
	return r == RoleOwner || r == RoleEditor
}

// CanManageMembers reports whether the role may change the member list.
func (r Role) CanManageMembers() bool {
	return r == RoleOwner
}

// ParseRole converts a string to a Role, case-insensitively.
func ParseRole(s string) (Role, bool) {
	r := Role(Normalize(s))
	return r, r.Valid()
}

type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}

type HouseholdMember struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type Household struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"created_at"`
	Members   []HouseholdMember `json:"members"`
}
