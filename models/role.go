package models

import "time"

// Operator role names.
const (
	RoleAdministrator = "administrator"
	RoleOperator      = "operator"
)

// Role is an operator role. Administrators can see every scan, operators
// only their own.
type Role struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"size:32;uniqueIndex;not null"`
	Description string `gorm:"size:255"`
}

// DefaultRoles are seeded on startup.
var DefaultRoles = []Role{
	{Name: RoleAdministrator, Description: "full access to scan history"},
	{Name: RoleOperator, Description: "runs analyses, sees own history"},
}
