package domain

import (
	"context"
	"time"
)

// Role tags a user account. Role-specific data lives in variant records keyed
// by the user id (tenant payload in Tenant, owner payload in building
// ownership) rather than in a type hierarchy.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
	RoleAdmin  Role = "admin"
)

// User represents a system account (owner, tenant, or admin)
type User struct {
	ID           string // UUID
	Email        string // Unique email address
	FirstName    string
	LastName     string
	Phone        string
	PasswordHash string // Bcrypt hashed password (not returned in API)
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Caller is the verified identity handed to the core by the authentication
// layer.
type Caller struct {
	ID    string
	Email string
	Role  Role
}

// UserRepository defines data access for user accounts
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, user *User) error
}
