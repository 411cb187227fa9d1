package models

import "time"

type UserRole string

const (
	UserRoleTPO   UserRole = "tpo"
	UserRoleAdmin UserRole = "admin"
)

// Valid reports whether the role is one of the known roles. Unknown roles
// remain representable (old rows, future migrations) but carry no
// permissions.
func (r UserRole) Valid() bool {
	return r == UserRoleTPO || r == UserRoleAdmin
}

type User struct {
	ID           string
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
