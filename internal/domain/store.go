package domain

import "context"

// Store bundles the repositories behind one transactional boundary. InTx runs
// fn against a store whose repositories share a single database transaction;
// the onboarding workflow and payment mutations depend on this to commit or
// fail as a whole.
type Store interface {
	Users() UserRepository
	Tenants() TenantRepository
	Units() UnitRepository
	Buildings() BuildingRepository
	Payments() PaymentRepository

	InTx(ctx context.Context, fn func(tx Store) error) error
}
