package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/security"
)

// memStore is a map-backed domain.Store for tests. InTx runs against the
// store itself; repository methods return copies so mutations only stick
// through Update, same as the real store.
type memStore struct {
	users     map[string]*domain.User
	tenants   map[string]*domain.Tenant
	units     map[string]*domain.Unit
	buildings map[string]*domain.Building
	payments  map[string]*domain.Payment

	// denyClaim forces ClaimForLease to lose, simulating a concurrent
	// winner that got the conditional update in first.
	denyClaim bool
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[string]*domain.User{},
		tenants:   map[string]*domain.Tenant{},
		units:     map[string]*domain.Unit{},
		buildings: map[string]*domain.Building{},
		payments:  map[string]*domain.Payment{},
	}
}

func (s *memStore) Users() domain.UserRepository         { return &memUsers{s} }
func (s *memStore) Tenants() domain.TenantRepository     { return &memTenants{s} }
func (s *memStore) Units() domain.UnitRepository         { return &memUnits{s} }
func (s *memStore) Buildings() domain.BuildingRepository { return &memBuildings{s} }
func (s *memStore) Payments() domain.PaymentRepository   { return &memPayments{s} }

func (s *memStore) InTx(ctx context.Context, fn func(tx domain.Store) error) error {
	return fn(s)
}

type memUsers struct{ s *memStore }

func (r *memUsers) Create(ctx context.Context, user *domain.User) error {
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.E(domain.KindNotFound, "user not found")
}

func (r *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUsers) Update(ctx context.Context, user *domain.User) error {
	if _, ok := r.s.users[user.ID]; !ok {
		return domain.E(domain.KindNotFound, "user not found")
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

type memTenants struct{ s *memStore }

func (r *memTenants) Create(ctx context.Context, tenant *domain.Tenant) error {
	cp := *tenant
	r.s.tenants[tenant.ID] = &cp
	return nil
}

func (r *memTenants) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	t, ok := r.s.tenants[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "tenant not found")
	}
	cp := *t
	return &cp, nil
}

func (r *memTenants) GetByUserID(ctx context.Context, userID string) (*domain.Tenant, error) {
	for _, t := range r.s.tenants {
		if t.UserID == userID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.E(domain.KindNotFound, "tenant not found")
}

func (r *memTenants) GetByEmail(ctx context.Context, email string) (*domain.Tenant, error) {
	for _, t := range r.s.tenants {
		if u, ok := r.s.users[t.UserID]; ok && u.Email == email {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.E(domain.KindNotFound, "tenant not found")
}

func (r *memTenants) GetByUnitID(ctx context.Context, unitID string) (*domain.Tenant, error) {
	for _, t := range r.s.tenants {
		if t.UnitID == unitID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.E(domain.KindNotFound, "tenant not found")
}

func (r *memTenants) Update(ctx context.Context, tenant *domain.Tenant) error {
	if _, ok := r.s.tenants[tenant.ID]; !ok {
		return domain.E(domain.KindNotFound, "tenant not found")
	}
	cp := *tenant
	r.s.tenants[tenant.ID] = &cp
	return nil
}

type memUnits struct{ s *memStore }

func (r *memUnits) Create(ctx context.Context, unit *domain.Unit) error {
	for _, u := range r.s.units {
		if u.RoomCode == unit.RoomCode {
			return domain.E(domain.KindConflict, "room code already exists")
		}
	}
	cp := *unit
	r.s.units[unit.ID] = &cp
	return nil
}

func (r *memUnits) GetByID(ctx context.Context, id string) (*domain.Unit, error) {
	u, ok := r.s.units[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "unit not found")
	}
	cp := *u
	return &cp, nil
}

func (r *memUnits) GetByRoomCode(ctx context.Context, code string) (*domain.Unit, error) {
	for _, u := range r.s.units {
		if u.RoomCode == code {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.E(domain.KindNotFound, "unit not found")
}

func (r *memUnits) ExistsByRoomCode(ctx context.Context, code string) (bool, error) {
	for _, u := range r.s.units {
		if u.RoomCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUnits) UpdateRoomCode(ctx context.Context, unitID, code string) error {
	for id, u := range r.s.units {
		if u.RoomCode == code && id != unitID {
			return domain.E(domain.KindConflict, "room code already exists")
		}
	}
	u, ok := r.s.units[unitID]
	if !ok {
		return domain.E(domain.KindNotFound, "unit not found")
	}
	u.RoomCode = code
	return nil
}

func (r *memUnits) ClaimForLease(ctx context.Context, unitID string, dates domain.LeaseDates) (bool, error) {
	if r.s.denyClaim {
		return false, nil
	}
	u, ok := r.s.units[unitID]
	if !ok {
		return false, domain.E(domain.KindNotFound, "unit not found")
	}
	if !u.IsAvailable {
		return false, nil
	}
	u.IsAvailable = false
	u.LeaseStartDate = dates.Start
	u.LeaseEndDate = dates.End
	return true, nil
}

func (r *memUnits) ReleaseLease(ctx context.Context, unitID string) error {
	u, ok := r.s.units[unitID]
	if !ok {
		return domain.E(domain.KindNotFound, "unit not found")
	}
	u.IsAvailable = true
	u.LeaseStartDate = nil
	u.LeaseEndDate = nil
	return nil
}

func (r *memUnits) ListByBuilding(ctx context.Context, buildingID string) ([]*domain.Unit, error) {
	var out []*domain.Unit
	for _, u := range r.s.units {
		if u.BuildingID == buildingID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memBuildings struct{ s *memStore }

func (r *memBuildings) Create(ctx context.Context, building *domain.Building) error {
	cp := *building
	r.s.buildings[building.ID] = &cp
	return nil
}

func (r *memBuildings) GetByID(ctx context.Context, id string) (*domain.Building, error) {
	b, ok := r.s.buildings[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "building not found")
	}
	cp := *b
	return &cp, nil
}

func (r *memBuildings) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Building, error) {
	var out []*domain.Building
	for _, b := range r.s.buildings {
		if b.OwnerID == ownerID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memBuildings) OwnerOfUnit(ctx context.Context, unitID string) (*domain.User, error) {
	u, ok := r.s.units[unitID]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "unit not found")
	}
	b, ok := r.s.buildings[u.BuildingID]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "building not found")
	}
	owner, ok := r.s.users[b.OwnerID]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "owner not found")
	}
	cp := *owner
	return &cp, nil
}

type memPayments struct{ s *memStore }

func (r *memPayments) Create(ctx context.Context, payment *domain.Payment) error {
	cp := *payment
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.s.payments[payment.ID] = &cp
	return nil
}

func (r *memPayments) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	p, ok := r.s.payments[id]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "payment not found")
	}
	cp := *p
	return &cp, nil
}

func (r *memPayments) GetByIDForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *memPayments) GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	for _, p := range r.s.payments {
		if p.GatewayIntentID == intentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.E(domain.KindNotFound, "payment not found")
}

func (r *memPayments) GetByReferenceNumber(ctx context.Context, ref string) (*domain.Payment, error) {
	for _, p := range r.s.payments {
		if p.ReferenceNumber == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.E(domain.KindNotFound, "payment not found")
}

func (r *memPayments) ExistsByReferenceNumber(ctx context.Context, ref string) (bool, error) {
	for _, p := range r.s.payments {
		if p.ReferenceNumber == ref {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPayments) Update(ctx context.Context, payment *domain.Payment) error {
	if _, ok := r.s.payments[payment.ID]; !ok {
		return domain.E(domain.KindNotFound, "payment not found")
	}
	cp := *payment
	r.s.payments[payment.ID] = &cp
	return nil
}

func (r *memPayments) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Payment, error) {
	var out []*domain.Payment
	for _, p := range r.s.payments {
		if p.TenantID == tenantID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPayments) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Payment, error) {
	var out []*domain.Payment
	for _, p := range r.s.payments {
		u, ok := r.s.units[p.UnitID]
		if !ok {
			continue
		}
		b, ok := r.s.buildings[u.BuildingID]
		if !ok || b.OwnerID != ownerID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memPayments) ListUnresolved(ctx context.Context, olderThan time.Time) ([]*domain.Payment, error) {
	var out []*domain.Payment
	for _, p := range r.s.payments {
		if p.Status == domain.StatusPending && p.GatewayIntentID != "" && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPayments) ListOverdueRent(ctx context.Context, asOf time.Time) ([]*domain.Payment, error) {
	var out []*domain.Payment
	for _, p := range r.s.payments {
		if p.Status == domain.StatusPending && p.Type == domain.PaymentRent &&
			p.LateFee == 0 && p.DueDate != nil && asOf.After(*p.DueDate) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeGateway scripts charge/retrieve/refund outcomes.
type fakeGateway struct {
	chargeResult *domain.ChargeResult
	chargeErr    error
	chargeCalls  int
	lastCharge   domain.ChargeRequest

	retrieveResult *domain.ChargeResult
	retrieveErr    error
	retrieveCalls  int

	refundErr      error
	refundCalls    int
	lastRefundAmt  domain.Cents
	lastRefundedID string
}

func (g *fakeGateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	g.chargeCalls++
	g.lastCharge = req
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return g.chargeResult, nil
}

func (g *fakeGateway) RetrieveIntent(ctx context.Context, intentID string) (*domain.ChargeResult, error) {
	g.retrieveCalls++
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	return g.retrieveResult, nil
}

func (g *fakeGateway) ConfirmIntent(ctx context.Context, intentID string) (*domain.ChargeResult, error) {
	return g.retrieveResult, g.retrieveErr
}

func (g *fakeGateway) Refund(ctx context.Context, chargeID string, amount domain.Cents, reason string) error {
	g.refundCalls++
	g.lastRefundedID = chargeID
	g.lastRefundAmt = amount
	return g.refundErr
}

// fakeClaimer is a map-backed KeyClaimer.
type fakeClaimer struct{ vals map[string]string }

func newFakeClaimer() *fakeClaimer {
	return &fakeClaimer{vals: map[string]string{}}
}

func (c *fakeClaimer) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if _, ok := c.vals[key]; ok {
		return false, nil
	}
	c.vals[key] = fmt.Sprint(value)
	return true, nil
}

func (c *fakeClaimer) Get(ctx context.Context, key string) (string, error) {
	v, ok := c.vals[key]
	if !ok {
		return "", domain.E(domain.KindNotFound, "key not found")
	}
	return v, nil
}

// fixture seeds one owner, one building, one claimed unit and one leased
// tenant, the shape most payment tests start from.
type fixture struct {
	store        *memStore
	ownerCaller  domain.Caller
	tenantCaller domain.Caller
	adminCaller  domain.Caller
	tenant       *domain.Tenant
	unit         *domain.Unit
	building     *domain.Building
}

func newFixture() *fixture {
	s := newMemStore()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	owner := &domain.User{ID: "owner-1", Email: "owner@example.com", PasswordHash: string(hash), Role: domain.RoleOwner, IsActive: true}
	tenantUser := &domain.User{ID: "user-t1", Email: "tenant@example.com", PasswordHash: string(hash), Role: domain.RoleTenant, IsActive: true}
	s.users[owner.ID] = owner
	s.users[tenantUser.ID] = tenantUser

	building := &domain.Building{ID: "bld-1", Name: "Maple Court", OwnerID: owner.ID}
	s.buildings[building.ID] = building

	unit := &domain.Unit{
		ID:          "unit-1",
		BuildingID:  building.ID,
		UnitNumber:  "4B",
		MonthlyRent: 120000,
		RoomCode:    "AAAA1111",
		IsAvailable: false,
	}
	s.units[unit.ID] = unit

	tenant := &domain.Tenant{ID: "ten-1", UserID: tenantUser.ID, UnitID: unit.ID}
	s.tenants[tenant.ID] = tenant

	return &fixture{
		store:        s,
		ownerCaller:  domain.Caller{ID: owner.ID, Email: owner.Email, Role: domain.RoleOwner},
		tenantCaller: domain.Caller{ID: tenantUser.ID, Email: tenantUser.Email, Role: domain.RoleTenant},
		adminCaller:  domain.Caller{ID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin},
		tenant:       tenant,
		unit:         unit,
		building:     building,
	}
}

func (f *fixture) paymentService(gw domain.PaymentGateway, claims KeyClaimer) *PaymentService {
	resolver := security.NewOwnershipResolver(f.store, nil)
	authz := security.NewAuthorizationService(nil)
	return NewPaymentService(f.store, gw, resolver, authz, claims, nil, nil)
}

func (f *fixture) unitService() *UnitService {
	resolver := security.NewOwnershipResolver(f.store, nil)
	return NewUnitService(f.store, resolver, nil, nil, nil)
}
