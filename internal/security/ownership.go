package security

import (
	"context"
	"log/slog"

	"github.com/yourorg/propertylease/internal/domain"
)

// OwnershipResolver answers record-level access questions by walking the
// ownership chain: payment -> tenant, or unit -> building -> owner. It is
// deliberately separate from AuthorizationService: roles gate operations,
// ownership gates records.
type OwnershipResolver struct {
	store  domain.Store
	logger *slog.Logger
}

// NewOwnershipResolver creates a new ownership resolver
func NewOwnershipResolver(store domain.Store, logger *slog.Logger) *OwnershipResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &OwnershipResolver{store: store, logger: logger}
}

// TenantForCaller resolves the tenant profile behind a caller's user account.
func (r *OwnershipResolver) TenantForCaller(ctx context.Context, caller domain.Caller) (*domain.Tenant, error) {
	if caller.Role != domain.RoleTenant {
		return nil, domain.E(domain.KindForbidden, "caller is not a tenant")
	}
	tenant, err := r.store.Tenants().GetByUserID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// CanAccessPayment reports whether the caller may view or act on a payment.
// Tenants reach only their own rows; owners reach rows on units in their
// buildings; admins reach everything. A payment that exists but belongs to
// someone else is Forbidden, not NotFound.
func (r *OwnershipResolver) CanAccessPayment(ctx context.Context, caller domain.Caller, payment *domain.Payment) error {
	switch caller.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleTenant:
		tenant, err := r.store.Tenants().GetByUserID(ctx, caller.ID)
		if err != nil {
			return err
		}
		if tenant.ID != payment.TenantID {
			r.logger.Warn("payment access denied",
				slog.String("caller_id", caller.ID),
				slog.String("payment_id", payment.ID),
			)
			return domain.E(domain.KindForbidden, "payment belongs to another tenant")
		}
		return nil
	case domain.RoleOwner:
		return r.CanManageUnit(ctx, caller, payment.UnitID)
	default:
		return domain.E(domain.KindForbidden, "unknown role")
	}
}

// CanManageUnit reports whether the caller owns the building holding the unit.
func (r *OwnershipResolver) CanManageUnit(ctx context.Context, caller domain.Caller, unitID string) error {
	if caller.Role == domain.RoleAdmin {
		return nil
	}
	if caller.Role != domain.RoleOwner {
		return domain.E(domain.KindForbidden, "caller is not an owner")
	}
	owner, err := r.store.Buildings().OwnerOfUnit(ctx, unitID)
	if err != nil {
		return err
	}
	if owner.ID != caller.ID {
		r.logger.Warn("unit access denied",
			slog.String("caller_id", caller.ID),
			slog.String("unit_id", unitID),
		)
		return domain.E(domain.KindForbidden, "unit belongs to another owner")
	}
	return nil
}
