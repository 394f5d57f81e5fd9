package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/observability/metrics"
	"github.com/yourorg/propertylease/internal/security"
	"github.com/yourorg/propertylease/pkg/cache"
)

// roomCodeCacheTTL bounds how long a validate-room-code hit can serve stale
// data. Onboarding always re-reads the store inside its transaction.
const roomCodeCacheTTL = 30 * time.Second

const maxCodeAttempts = 5

// UnitService manages buildings, units and their access codes.
type UnitService struct {
	store    domain.Store
	resolver *security.OwnershipResolver
	codes    *cache.Cache
	randSrc  io.Reader
	logger   *slog.Logger
}

// NewUnitService creates a new unit service. randSrc defaults to crypto/rand
// and is injectable for tests.
func NewUnitService(
	store domain.Store,
	resolver *security.OwnershipResolver,
	codes *cache.Cache,
	randSrc io.Reader,
	logger *slog.Logger,
) *UnitService {
	if randSrc == nil {
		randSrc = rand.Reader
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UnitService{
		store:    store,
		resolver: resolver,
		codes:    codes,
		randSrc:  randSrc,
		logger:   logger,
	}
}

// CreateBuildingInput captures a new building request
type CreateBuildingInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// CreateBuilding creates a building owned by the caller.
func (s *UnitService) CreateBuilding(ctx context.Context, caller domain.Caller, input CreateBuildingInput) (*domain.Building, error) {
	if caller.Role != domain.RoleOwner && caller.Role != domain.RoleAdmin {
		return nil, domain.E(domain.KindForbidden, "only owners can create buildings")
	}
	if input.Name == "" {
		return nil, domain.E(domain.KindValidation, "building name is required")
	}

	building := &domain.Building{
		ID:      uuid.NewString(),
		Name:    input.Name,
		Address: input.Address,
		OwnerID: caller.ID,
	}
	if err := s.store.Buildings().Create(ctx, building); err != nil {
		return nil, err
	}
	s.logger.Info("building created",
		slog.String("building_id", building.ID),
		slog.String("owner_id", caller.ID),
	)
	return building, nil
}

// CreateUnitInput captures a new unit request
type CreateUnitInput struct {
	BuildingID         string `json:"building_id"`
	UnitNumber         string `json:"unit_number"`
	Floor              int    `json:"floor"`
	Bedrooms           int    `json:"bedrooms"`
	BathroomsTenths    int    `json:"bathrooms_tenths"`
	SquareFeet         int    `json:"square_feet"`
	MonthlyRent        string `json:"monthly_rent"`
	SecurityDeposit    string `json:"security_deposit"`
	Description        string `json:"description"`
	UnitType           string `json:"unit_type"`
	HasBalcony         bool   `json:"has_balcony"`
	HasDishwasher      bool   `json:"has_dishwasher"`
	HasWashingMachine  bool   `json:"has_washing_machine"`
	HasAirConditioning bool   `json:"has_air_conditioning"`
	Furnished          bool   `json:"furnished"`
	PetsAllowed        bool   `json:"pets_allowed"`
	SmokingAllowed     bool   `json:"smoking_allowed"`
}

// CreateUnit creates an available unit with a fresh room code. Only the
// building's owner (or an admin) may add units to it.
func (s *UnitService) CreateUnit(ctx context.Context, caller domain.Caller, input CreateUnitInput) (*domain.Unit, error) {
	building, err := s.store.Buildings().GetByID(ctx, input.BuildingID)
	if err != nil {
		return nil, err
	}
	if caller.Role != domain.RoleAdmin && building.OwnerID != caller.ID {
		return nil, domain.E(domain.KindForbidden, "building belongs to another owner")
	}
	if input.UnitNumber == "" {
		return nil, domain.E(domain.KindValidation, "unit number is required")
	}

	rent, err := domain.ParseAmount(input.MonthlyRent)
	if err != nil {
		return nil, err
	}
	deposit, err := domain.ParseAmount(input.SecurityDeposit)
	if err != nil {
		return nil, err
	}

	unit := &domain.Unit{
		ID:                 uuid.NewString(),
		BuildingID:         building.ID,
		UnitNumber:         input.UnitNumber,
		Floor:              input.Floor,
		Bedrooms:           input.Bedrooms,
		BathroomsTenths:    input.BathroomsTenths,
		SquareFeet:         input.SquareFeet,
		MonthlyRent:        rent,
		SecurityDeposit:    deposit,
		Description:        input.Description,
		UnitType:           domain.UnitType(input.UnitType),
		HasBalcony:         input.HasBalcony,
		HasDishwasher:      input.HasDishwasher,
		HasWashingMachine:  input.HasWashingMachine,
		HasAirConditioning: input.HasAirConditioning,
		Furnished:          input.Furnished,
		PetsAllowed:        input.PetsAllowed,
		SmokingAllowed:     input.SmokingAllowed,
		IsAvailable:        true,
	}

	// Uniqueness is enforced by the room_code constraint; the generate loop
	// only lowers the odds of hitting it.
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.GenerateRoomCode(ctx)
		if err != nil {
			return nil, err
		}
		unit.RoomCode = code
		err = s.store.Units().Create(ctx, unit)
		if err == nil {
			return unit, nil
		}
		if domain.IsKind(err, domain.KindConflict) {
			continue
		}
		return nil, err
	}
	return nil, domain.E(domain.KindConflict, "could not allocate a unique room code")
}

// ListUnits returns the units in a building the caller owns.
func (s *UnitService) ListUnits(ctx context.Context, caller domain.Caller, buildingID string) ([]*domain.Unit, error) {
	building, err := s.store.Buildings().GetByID(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	if caller.Role != domain.RoleAdmin && building.OwnerID != caller.ID {
		return nil, domain.E(domain.KindForbidden, "building belongs to another owner")
	}
	return s.store.Units().ListByBuilding(ctx, buildingID)
}

// ListBuildings returns the caller's buildings.
func (s *UnitService) ListBuildings(ctx context.Context, caller domain.Caller) ([]*domain.Building, error) {
	return s.store.Buildings().ListByOwner(ctx, caller.ID)
}

// GenerateRoomCode draws a fresh code from the injected randomness source and
// checks it against the store. The existence check is advisory; collisions
// that slip through are caught by the unique constraint at persistence time.
func (s *UnitService) GenerateRoomCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomRoomCode(s.randSrc)
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		exists, err := s.store.Units().ExistsByRoomCode(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", domain.E(domain.KindConflict, "could not allocate a unique room code")
}

// RegenerateRoomCode replaces a unit's access code. The old code stops
// working the instant the new one commits.
func (s *UnitService) RegenerateRoomCode(ctx context.Context, caller domain.Caller, unitID string) (string, error) {
	if err := s.resolver.CanManageUnit(ctx, caller, unitID); err != nil {
		return "", err
	}

	unit, err := s.store.Units().GetByID(ctx, unitID)
	if err != nil {
		return "", err
	}
	oldCode := unit.RoomCode

	var code string
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err = s.GenerateRoomCode(ctx)
		if err != nil {
			return "", err
		}
		err = s.store.Units().UpdateRoomCode(ctx, unitID, code)
		if err == nil {
			break
		}
		if domain.IsKind(err, domain.KindConflict) {
			continue
		}
		return "", err
	}
	if err != nil {
		return "", err
	}

	if s.codes != nil {
		s.codes.Delete(roomCodeCacheKey(oldCode))
	}
	metrics.ObserveRoomCodeRegeneration()
	s.logger.Info("room code regenerated",
		slog.String("unit_id", unitID),
		slog.String("caller_id", caller.ID),
	)
	return code, nil
}

// ValidateRoomCode reports whether a code currently maps to an available
// unit, without revealing which one. Results are cached briefly; onboarding
// itself never trusts this path.
func (s *UnitService) ValidateRoomCode(ctx context.Context, code string) (bool, error) {
	if len(code) != domain.RoomCodeLength {
		return false, nil
	}
	key := roomCodeCacheKey(code)
	if s.codes != nil {
		if v, ok := s.codes.Get(key); ok {
			return v.(bool), nil
		}
	}

	unit, err := s.store.Units().GetByRoomCode(ctx, code)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			if s.codes != nil {
				s.codes.Set(key, false, roomCodeCacheTTL)
			}
			return false, nil
		}
		return false, err
	}
	valid := unit.IsAvailable
	if s.codes != nil {
		s.codes.Set(key, valid, roomCodeCacheTTL)
	}
	return valid, nil
}

// FindByRoomCode resolves a room code to its unit.
func (s *UnitService) FindByRoomCode(ctx context.Context, code string) (*domain.Unit, error) {
	return s.store.Units().GetByRoomCode(ctx, code)
}

// ReleaseLease vacates a unit, making it claimable again.
func (s *UnitService) ReleaseLease(ctx context.Context, caller domain.Caller, unitID string) error {
	if err := s.resolver.CanManageUnit(ctx, caller, unitID); err != nil {
		return err
	}
	if err := s.store.Units().ReleaseLease(ctx, unitID); err != nil {
		return err
	}
	s.logger.Info("unit released", slog.String("unit_id", unitID))
	return nil
}

func roomCodeCacheKey(code string) string {
	return "roomcode:" + code
}

// randomRoomCode draws RoomCodeLength characters uniformly from the room code
// charset. Rejection sampling keeps the distribution unbiased.
func randomRoomCode(src io.Reader) (string, error) {
	const charset = domain.RoomCodeCharset
	max := byte(256 - (256 % len(charset)))

	out := make([]byte, 0, domain.RoomCodeLength)
	buf := make([]byte, 1)
	for len(out) < domain.RoomCodeLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", err
		}
		if buf[0] >= max {
			continue
		}
		out = append(out, charset[int(buf[0])%len(charset)])
	}
	return string(out), nil
}
