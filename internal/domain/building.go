package domain

import (
	"context"
	"time"
)

// Building is the ownership context for units. Only the fields the ownership
// chain needs are modeled here.
type Building struct {
	ID        string // UUID
	Name      string
	Address   string
	OwnerID   string // users.id with role owner
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BuildingRepository defines data access for buildings
type BuildingRepository interface {
	Create(ctx context.Context, building *Building) error
	GetByID(ctx context.Context, id string) (*Building, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Building, error)
	// OwnerOfUnit resolves the unit -> building -> owner chain in one query.
	// Returns KindNotFound if the unit does not exist.
	OwnerOfUnit(ctx context.Context, unitID string) (*User, error)
}
