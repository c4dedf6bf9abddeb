package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles, from broadest to most restricted. Operators are field accounts that
// may only record data on their assigned farm.
const (
	RoleOwner      = "owner"
	RoleTechnician = "technician"
	RoleOperator   = "operator"
)

// User is an account that can authenticate against the API.
// Technicians and operators are pinned to a single farm via FarmID;
// owners are scoped through Farm.OwnerID instead.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	FullName     string    `gorm:"not null"`
	Email        string
	PasswordHash string     `gorm:"not null"`
	Role         string     `gorm:"not null;default:'operator'"`
	FarmID       *uuid.UUID `gorm:"type:uuid;index"`
	Active       bool       `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
