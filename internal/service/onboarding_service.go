package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/observability/metrics"
	"github.com/yourorg/propertylease/internal/security/auth"
)

// OnboardingService turns a room code into a tenant account, a tenant
// profile and a claimed unit, atomically.
type OnboardingService struct {
	store  domain.Store
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewOnboardingService creates a new onboarding service
func NewOnboardingService(store domain.Store, tokens *auth.TokenManager, logger *slog.Logger) *OnboardingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnboardingService{store: store, tokens: tokens, logger: logger}
}

// RegisterTenantInput is a room-code signup request
type RegisterTenantInput struct {
	RoomCode  string `json:"room_code"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`

	LeaseStartDate *time.Time `json:"lease_start_date,omitempty"`
	LeaseEndDate   *time.Time `json:"lease_end_date,omitempty"`
	MoveInDate     *time.Time `json:"move_in_date,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`

	Employer              string `json:"employer"`
	JobTitle              string `json:"job_title"`
	MonthlyIncome         string `json:"monthly_income"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
	NumberOfOccupants     int    `json:"number_of_occupants"`
	HasPets               bool   `json:"has_pets"`
	PetDescription        string `json:"pet_description"`
	Smoker                bool   `json:"smoker"`
}

// RegisterTenantResult is what a successful onboarding returns
type RegisterTenantResult struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	UnitID   string `json:"unit_id"`
	Token    string `json:"token"`
}

// RegisterViaRoomCode creates the account, the tenant profile and the unit
// claim in one transaction. The conditional availability flip inside
// ClaimForLease makes exactly one of any set of concurrent signups for the
// same unit win; the losers roll back whole.
func (s *OnboardingService) RegisterViaRoomCode(ctx context.Context, input RegisterTenantInput) (*RegisterTenantResult, error) {
	if input.Email == "" || input.Password == "" {
		metrics.ObserveOnboarding("invalid")
		return nil, domain.E(domain.KindValidation, "email and password are required")
	}
	if len(input.Password) < 8 {
		metrics.ObserveOnboarding("invalid")
		return nil, domain.E(domain.KindValidation, "password must be at least 8 characters")
	}
	if len(input.RoomCode) != domain.RoomCodeLength {
		metrics.ObserveOnboarding("invalid")
		return nil, domain.E(domain.KindValidation, "invalid room code")
	}

	var income domain.Cents
	if input.MonthlyIncome != "" {
		var err error
		income, err = domain.ParseAmount(input.MonthlyIncome)
		if err != nil {
			metrics.ObserveOnboarding("invalid")
			return nil, err
		}
	}

	// Hash outside the transaction; bcrypt is slow on purpose.
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, domain.Wrap(domain.KindUnknown, "failed to register tenant", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		PasswordHash: string(hash),
		Role:         domain.RoleTenant,
		IsActive:     true,
	}
	tenant := &domain.Tenant{
		ID:                    uuid.NewString(),
		UserID:                user.ID,
		LeaseStartDate:        input.LeaseStartDate,
		LeaseEndDate:          input.LeaseEndDate,
		MoveInDate:            input.MoveInDate,
		DateOfBirth:           input.DateOfBirth,
		Employer:              input.Employer,
		JobTitle:              input.JobTitle,
		MonthlyIncome:         income,
		EmergencyContactName:  input.EmergencyContactName,
		EmergencyContactPhone: input.EmergencyContactPhone,
		NumberOfOccupants:     input.NumberOfOccupants,
		HasPets:               input.HasPets,
		PetDescription:        input.PetDescription,
		Smoker:                input.Smoker,
		BackgroundCheckStatus: domain.CheckPending,
	}

	err = s.store.InTx(ctx, func(tx domain.Store) error {
		unit, err := tx.Units().GetByRoomCode(ctx, input.RoomCode)
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return domain.E(domain.KindValidation, "invalid room code")
			}
			return err
		}
		if !unit.IsAvailable {
			return domain.E(domain.KindConflict, "unit is no longer available")
		}

		exists, err := tx.Users().ExistsByEmail(ctx, input.Email)
		if err != nil {
			return err
		}
		if exists {
			return domain.E(domain.KindConflict, "email is already in use")
		}

		claimed, err := tx.Units().ClaimForLease(ctx, unit.ID, domain.LeaseDates{
			Start: input.LeaseStartDate,
			End:   input.LeaseEndDate,
		})
		if err != nil {
			return err
		}
		if !claimed {
			return domain.E(domain.KindConflict, "unit is no longer available")
		}

		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		tenant.UnitID = unit.ID
		return tx.Tenants().Create(ctx, tenant)
	})
	if err != nil {
		if domain.IsKind(err, domain.KindConflict) {
			metrics.ObserveOnboarding("conflict")
		} else {
			metrics.ObserveOnboarding("error")
		}
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, string(user.Role), tokenLifetime)
	if err != nil {
		// The account exists; the tenant just logs in normally.
		s.logger.Error("failed to sign onboarding token", slog.String("error", err.Error()))
		token = ""
	}

	metrics.ObserveOnboarding("success")
	s.logger.Info("tenant onboarded",
		slog.String("user_id", user.ID),
		slog.String("tenant_id", tenant.ID),
		slog.String("unit_id", tenant.UnitID),
	)
	return &RegisterTenantResult{
		UserID:   user.ID,
		TenantID: tenant.ID,
		UnitID:   tenant.UnitID,
		Token:    token,
	}, nil
}
