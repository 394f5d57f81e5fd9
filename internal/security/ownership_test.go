package security

import (
	"context"
	"testing"

	"github.com/yourorg/propertylease/internal/domain"
)

// stubStore satisfies domain.Store through embedding; only the repositories
// the resolver walks are implemented.
type stubStore struct {
	domain.Store
	tenants   stubTenants
	buildings stubBuildings
}

func (s *stubStore) Tenants() domain.TenantRepository     { return s.tenants }
func (s *stubStore) Buildings() domain.BuildingRepository { return s.buildings }

type stubTenants struct {
	domain.TenantRepository
	byUserID map[string]*domain.Tenant
}

func (r stubTenants) GetByUserID(ctx context.Context, userID string) (*domain.Tenant, error) {
	t, ok := r.byUserID[userID]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "tenant not found")
	}
	return t, nil
}

type stubBuildings struct {
	domain.BuildingRepository
	ownerByUnit map[string]*domain.User
}

func (r stubBuildings) OwnerOfUnit(ctx context.Context, unitID string) (*domain.User, error) {
	u, ok := r.ownerByUnit[unitID]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "unit not found")
	}
	return u, nil
}

func newStubStore() *stubStore {
	return &stubStore{
		tenants: stubTenants{byUserID: map[string]*domain.Tenant{
			"user-t1": {ID: "ten-1", UserID: "user-t1", UnitID: "unit-1"},
			"user-t2": {ID: "ten-2", UserID: "user-t2"},
		}},
		buildings: stubBuildings{ownerByUnit: map[string]*domain.User{
			"unit-1": {ID: "owner-1", Role: domain.RoleOwner},
		}},
	}
}

func TestTenantForCaller(t *testing.T) {
	r := NewOwnershipResolver(newStubStore(), nil)
	ctx := context.Background()

	tenant, err := r.TenantForCaller(ctx, domain.Caller{ID: "user-t1", Role: domain.RoleTenant})
	if err != nil {
		t.Fatalf("TenantForCaller failed: %v", err)
	}
	if tenant.ID != "ten-1" {
		t.Fatalf("tenant = %q, want ten-1", tenant.ID)
	}

	if _, err := r.TenantForCaller(ctx, domain.Caller{ID: "owner-1", Role: domain.RoleOwner}); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("owner caller: %v, want forbidden", err)
	}
	if _, err := r.TenantForCaller(ctx, domain.Caller{ID: "ghost", Role: domain.RoleTenant}); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("unknown tenant: %v, want not_found", err)
	}
}

func TestCanAccessPayment(t *testing.T) {
	r := NewOwnershipResolver(newStubStore(), nil)
	ctx := context.Background()
	payment := &domain.Payment{ID: "pay-1", TenantID: "ten-1", UnitID: "unit-1"}

	if err := r.CanAccessPayment(ctx, domain.Caller{ID: "user-t1", Role: domain.RoleTenant}, payment); err != nil {
		t.Fatalf("tenant should access own payment: %v", err)
	}
	if err := r.CanAccessPayment(ctx, domain.Caller{ID: "owner-1", Role: domain.RoleOwner}, payment); err != nil {
		t.Fatalf("owner should access payment on own unit: %v", err)
	}
	if err := r.CanAccessPayment(ctx, domain.Caller{ID: "admin-1", Role: domain.RoleAdmin}, payment); err != nil {
		t.Fatalf("admin should access any payment: %v", err)
	}

	if err := r.CanAccessPayment(ctx, domain.Caller{ID: "user-t2", Role: domain.RoleTenant}, payment); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("foreign tenant: %v, want forbidden", err)
	}
	if err := r.CanAccessPayment(ctx, domain.Caller{ID: "owner-2", Role: domain.RoleOwner}, payment); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("foreign owner: %v, want forbidden", err)
	}
	if err := r.CanAccessPayment(ctx, domain.Caller{ID: "x", Role: "mystery"}, payment); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("unknown role: %v, want forbidden", err)
	}
}

func TestCanManageUnit(t *testing.T) {
	r := NewOwnershipResolver(newStubStore(), nil)
	ctx := context.Background()

	if err := r.CanManageUnit(ctx, domain.Caller{ID: "owner-1", Role: domain.RoleOwner}, "unit-1"); err != nil {
		t.Fatalf("owner should manage own unit: %v", err)
	}
	if err := r.CanManageUnit(ctx, domain.Caller{ID: "admin-1", Role: domain.RoleAdmin}, "unit-1"); err != nil {
		t.Fatalf("admin should manage any unit: %v", err)
	}
	if err := r.CanManageUnit(ctx, domain.Caller{ID: "owner-2", Role: domain.RoleOwner}, "unit-1"); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("foreign owner: %v, want forbidden", err)
	}
	if err := r.CanManageUnit(ctx, domain.Caller{ID: "user-t1", Role: domain.RoleTenant}, "unit-1"); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("tenant: %v, want forbidden", err)
	}
	if err := r.CanManageUnit(ctx, domain.Caller{ID: "owner-1", Role: domain.RoleOwner}, "unit-ghost"); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("missing unit: %v, want not_found", err)
	}
}
