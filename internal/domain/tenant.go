package domain

import (
	"context"
	"time"
)

// BackgroundCheckStatus tracks tenant screening progress
type BackgroundCheckStatus string

const (
	CheckPending     BackgroundCheckStatus = "pending"
	CheckInProgress  BackgroundCheckStatus = "in_progress"
	CheckApproved    BackgroundCheckStatus = "approved"
	CheckRejected    BackgroundCheckStatus = "rejected"
	CheckExpired     BackgroundCheckStatus = "expired"
	CheckNotRequired BackgroundCheckStatus = "not_required"
)

// Tenant is the tenant-role payload for a user account: lease profile bound
// to at most one unit. Created exactly once, by the onboarding workflow.
type Tenant struct {
	ID     string // UUID
	UserID string // users.id with role tenant
	UnitID string // empty until onboarded; at most one active tenant per unit

	LeaseStartDate *time.Time
	LeaseEndDate   *time.Time
	MoveInDate     *time.Time
	MoveOutDate    *time.Time

	DateOfBirth           *time.Time
	Employer              string
	JobTitle              string
	MonthlyIncome         Cents
	EmergencyContactName  string
	EmergencyContactPhone string

	NumberOfOccupants int
	HasPets           bool
	PetDescription    string
	Smoker            bool

	BackgroundCheckStatus BackgroundCheckStatus
	StripeCustomerID      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantRepository defines data access for tenant profiles
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByUserID(ctx context.Context, userID string) (*Tenant, error)
	GetByEmail(ctx context.Context, email string) (*Tenant, error)
	GetByUnitID(ctx context.Context, unitID string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
}
