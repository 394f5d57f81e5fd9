package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/security"
	"github.com/yourorg/propertylease/pkg/cache"
)

// seqReader yields deterministic bytes so room code generation is repeatable.
type seqReader struct{ next byte }

func (r *seqReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.next
		r.next++
	}
	return len(p), nil
}

func TestCreateBuilding(t *testing.T) {
	f := newFixture()
	svc := f.unitService()
	ctx := context.Background()

	b, err := svc.CreateBuilding(ctx, f.ownerCaller, CreateBuildingInput{Name: "Oak Row", Address: "12 Oak St"})
	if err != nil {
		t.Fatalf("CreateBuilding failed: %v", err)
	}
	if b.OwnerID != f.ownerCaller.ID {
		t.Fatalf("owner id = %q, want %q", b.OwnerID, f.ownerCaller.ID)
	}

	if _, err := svc.CreateBuilding(ctx, f.tenantCaller, CreateBuildingInput{Name: "Nope"}); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("tenant create building: %v, want forbidden", err)
	}
	if _, err := svc.CreateBuilding(ctx, f.ownerCaller, CreateBuildingInput{}); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("empty name: %v, want validation", err)
	}
}

func TestCreateUnit(t *testing.T) {
	f := newFixture()
	resolver := security.NewOwnershipResolver(f.store, nil)
	svc := NewUnitService(f.store, resolver, nil, &seqReader{}, nil)
	ctx := context.Background()

	unit, err := svc.CreateUnit(ctx, f.ownerCaller, CreateUnitInput{
		BuildingID:      f.building.ID,
		UnitNumber:      "5A",
		MonthlyRent:     "1450.00",
		SecurityDeposit: "1450.00",
		UnitType:        "apartment",
	})
	if err != nil {
		t.Fatalf("CreateUnit failed: %v", err)
	}
	if !unit.IsAvailable {
		t.Fatalf("new unit must be available")
	}
	if unit.MonthlyRent != 145000 {
		t.Fatalf("rent = %d, want 145000", unit.MonthlyRent)
	}
	if len(unit.RoomCode) != domain.RoomCodeLength {
		t.Fatalf("room code %q has wrong length", unit.RoomCode)
	}
	for _, c := range unit.RoomCode {
		if !strings.ContainsRune(domain.RoomCodeCharset, c) {
			t.Fatalf("room code %q contains %q outside the charset", unit.RoomCode, c)
		}
	}

	other := domain.Caller{ID: "owner-2", Role: domain.RoleOwner}
	_, err = svc.CreateUnit(ctx, other, CreateUnitInput{
		BuildingID: f.building.ID, UnitNumber: "6A", MonthlyRent: "1000.00", SecurityDeposit: "1000.00",
	})
	if !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("foreign owner: %v, want forbidden", err)
	}

	_, err = svc.CreateUnit(ctx, f.ownerCaller, CreateUnitInput{
		BuildingID: f.building.ID, UnitNumber: "7A", MonthlyRent: "lots", SecurityDeposit: "0",
	})
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("bad rent: %v, want validation", err)
	}
}

func TestGenerateRoomCodeIsWellFormed(t *testing.T) {
	f := newFixture()
	resolver := security.NewOwnershipResolver(f.store, nil)
	svc := NewUnitService(f.store, resolver, nil, &seqReader{}, nil)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		code, err := svc.GenerateRoomCode(context.Background())
		if err != nil {
			t.Fatalf("GenerateRoomCode failed: %v", err)
		}
		if len(code) != domain.RoomCodeLength {
			t.Fatalf("code %q has wrong length", code)
		}
		for _, c := range code {
			if !strings.ContainsRune(domain.RoomCodeCharset, c) {
				t.Fatalf("code %q contains %q outside the charset", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatalf("generator produced the same code every time")
	}
}

func TestRegenerateRoomCode(t *testing.T) {
	f := newFixture()
	resolver := security.NewOwnershipResolver(f.store, nil)
	codes := cache.New()
	svc := NewUnitService(f.store, resolver, codes, &seqReader{}, nil)
	ctx := context.Background()

	oldCode := f.unit.RoomCode
	codes.Set("roomcode:"+oldCode, true, time.Minute)

	newCode, err := svc.RegenerateRoomCode(ctx, f.ownerCaller, f.unit.ID)
	if err != nil {
		t.Fatalf("RegenerateRoomCode failed: %v", err)
	}
	if newCode == oldCode {
		t.Fatalf("room code did not change")
	}

	got, _ := f.store.Units().GetByID(ctx, f.unit.ID)
	if got.RoomCode != newCode {
		t.Fatalf("stored code = %q, want %q", got.RoomCode, newCode)
	}
	if _, ok := codes.Get("roomcode:" + oldCode); ok {
		t.Fatalf("stale cache entry for the old code survived")
	}

	if _, err := svc.RegenerateRoomCode(ctx, f.tenantCaller, f.unit.ID); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("tenant regenerate: %v, want forbidden", err)
	}
}

func TestValidateRoomCode(t *testing.T) {
	f := newFixture()
	svc := f.unitService()
	ctx := context.Background()

	// The fixture unit is claimed, so its code validates false.
	valid, err := svc.ValidateRoomCode(ctx, f.unit.RoomCode)
	if err != nil {
		t.Fatalf("ValidateRoomCode failed: %v", err)
	}
	if valid {
		t.Fatalf("claimed unit's code must not validate")
	}

	f.store.units["unit-2"] = &domain.Unit{
		ID: "unit-2", BuildingID: f.building.ID, RoomCode: "BBBB2222", IsAvailable: true,
	}
	valid, err = svc.ValidateRoomCode(ctx, "BBBB2222")
	if err != nil {
		t.Fatalf("ValidateRoomCode failed: %v", err)
	}
	if !valid {
		t.Fatalf("available unit's code must validate")
	}

	if valid, _ := svc.ValidateRoomCode(ctx, "short"); valid {
		t.Fatalf("wrong-length code must not validate")
	}
	if valid, _ := svc.ValidateRoomCode(ctx, "ZZZZ9999"); valid {
		t.Fatalf("unknown code must not validate")
	}
}

func TestValidateRoomCodeCaches(t *testing.T) {
	f := newFixture()
	resolver := security.NewOwnershipResolver(f.store, nil)
	codes := cache.New()
	svc := NewUnitService(f.store, resolver, codes, nil, nil)
	ctx := context.Background()

	f.store.units["unit-2"] = &domain.Unit{
		ID: "unit-2", BuildingID: f.building.ID, RoomCode: "BBBB2222", IsAvailable: true,
	}
	if valid, _ := svc.ValidateRoomCode(ctx, "BBBB2222"); !valid {
		t.Fatalf("expected code to validate")
	}

	// Within the TTL the cached answer is served even if the store changed.
	f.store.units["unit-2"].IsAvailable = false
	if valid, _ := svc.ValidateRoomCode(ctx, "BBBB2222"); !valid {
		t.Fatalf("expected cached answer inside the TTL")
	}
}

func TestReleaseLease(t *testing.T) {
	f := newFixture()
	svc := f.unitService()
	ctx := context.Background()

	if err := svc.ReleaseLease(ctx, f.ownerCaller, f.unit.ID); err != nil {
		t.Fatalf("ReleaseLease failed: %v", err)
	}
	got, _ := f.store.Units().GetByID(ctx, f.unit.ID)
	if !got.IsAvailable {
		t.Fatalf("unit must be available after release")
	}

	other := domain.Caller{ID: "owner-2", Role: domain.RoleOwner}
	if err := svc.ReleaseLease(ctx, other, f.unit.ID); !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("foreign owner release: %v, want forbidden", err)
	}
}
