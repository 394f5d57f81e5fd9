package domain

import (
	"context"
	"time"
)

// UnitType classifies a rentable space
type UnitType string

const (
	UnitStudio       UnitType = "studio"
	UnitApartment    UnitType = "apartment"
	UnitTownhouse    UnitType = "townhouse"
	UnitCondo        UnitType = "condo"
	UnitLoft         UnitType = "loft"
	UnitPenthouse    UnitType = "penthouse"
	UnitDuplex       UnitType = "duplex"
	UnitSingleFamily UnitType = "single_family"
)

// RoomCodeLength is the fixed length of unit access codes.
const RoomCodeLength = 8

// RoomCodeCharset is the alphabet room codes are drawn from.
const RoomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Unit represents one rentable space inside a building
type Unit struct {
	ID              string // UUID
	BuildingID      string
	UnitNumber      string
	Floor           int
	Bedrooms        int
	BathroomsTenths int // 15 = 1.5 bathrooms; avoids fractional columns
	SquareFeet      int
	MonthlyRent     Cents
	SecurityDeposit Cents
	Description     string
	UnitType        UnitType

	HasBalcony         bool
	HasDishwasher      bool
	HasWashingMachine  bool
	HasAirConditioning bool
	Furnished          bool
	PetsAllowed        bool
	SmokingAllowed     bool

	IsAvailable bool
	RoomCode    string // 8 chars [A-Z0-9], unique system-wide

	LeaseStartDate *time.Time
	LeaseEndDate   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LeaseDates carries the optional lease window stamped during onboarding.
type LeaseDates struct {
	Start *time.Time
	End   *time.Time
}

// UnitRepository defines data access for units
type UnitRepository interface {
	Create(ctx context.Context, unit *Unit) error
	GetByID(ctx context.Context, id string) (*Unit, error)
	GetByRoomCode(ctx context.Context, code string) (*Unit, error)
	ExistsByRoomCode(ctx context.Context, code string) (bool, error)
	// UpdateRoomCode replaces a unit's access code. The database unique
	// constraint is the final arbiter; implementations return KindConflict
	// on collision so callers can retry with a fresh code.
	UpdateRoomCode(ctx context.Context, unitID, code string) error
	// ClaimForLease atomically flips is_available from true to false and
	// stamps lease dates. Returns false when the unit was already claimed,
	// which is how concurrent onboarding losers are detected.
	ClaimForLease(ctx context.Context, unitID string, dates LeaseDates) (bool, error)
	// ReleaseLease flips the unit back to available (owner/admin vacate).
	ReleaseLease(ctx context.Context, unitID string) error
	ListByBuilding(ctx context.Context, buildingID string) ([]*Unit, error)
}
