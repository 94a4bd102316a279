package models

import (
	"time"
)

// User is an operator account.
type User struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time `gorm:"index"`
	Username       string     `gorm:"size:255;not null;unique"`
	HashedPassword []byte     `gorm:"not null"`
	RoleID         *uint      `gorm:"index"`
	Role           Role       `gorm:"foreignKey:RoleID;references:ID"`
	Scans          []Scan     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

// IsAdmin reports whether the user carries the administrator role. Role
// must be preloaded.
func (u *User) IsAdmin() bool {
	return u.Role.Name == RoleAdministrator
}
