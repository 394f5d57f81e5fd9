package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/propertylease/internal/domain"
)

// PostgresTenantRepository implements domain.TenantRepository using PostgreSQL
type PostgresTenantRepository struct {
	q      DBTX
	logger *slog.Logger
}

// NewPostgresTenantRepository creates a new tenant repository
func NewPostgresTenantRepository(q DBTX, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{q: q, logger: logger}
}

const tenantColumns = `id, user_id, unit_id, lease_start_date, lease_end_date, move_in_date, move_out_date,
	date_of_birth, employer, job_title, monthly_income_cents,
	emergency_contact_name, emergency_contact_phone,
	number_of_occupants, has_pets, pet_description, smoker,
	background_check_status, stripe_customer_id, created_at, updated_at`

// Create creates a new tenant profile
func (r *PostgresTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, user_id, unit_id, lease_start_date, lease_end_date, move_in_date,
			date_of_birth, employer, job_title, monthly_income_cents,
			emergency_contact_name, emergency_contact_phone,
			number_of_occupants, has_pets, pet_description, smoker,
			background_check_status, stripe_customer_id)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NULLIF($18, ''))
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		tenant.ID, tenant.UserID, tenant.UnitID,
		tenant.LeaseStartDate, tenant.LeaseEndDate, tenant.MoveInDate,
		tenant.DateOfBirth, tenant.Employer, tenant.JobTitle, tenant.MonthlyIncome,
		tenant.EmergencyContactName, tenant.EmergencyContactPhone,
		tenant.NumberOfOccupants, tenant.HasPets, tenant.PetDescription, tenant.Smoker,
		tenant.BackgroundCheckStatus, tenant.StripeCustomerID,
	).Scan(&tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.E(domain.KindConflict, "unit already has a tenant")
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
}

// GetByUserID retrieves the tenant profile for a user account
func (r *PostgresTenantRepository) GetByUserID(ctx context.Context, userID string) (*domain.Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE user_id = $1`, userID)
}

// GetByEmail retrieves a tenant through the account email
func (r *PostgresTenantRepository) GetByEmail(ctx context.Context, email string) (*domain.Tenant, error) {
	query := `
		SELECT ` + prefixColumns(tenantColumns, "t") + `
		FROM tenants t
		JOIN users u ON u.id = t.user_id
		WHERE u.email = $1
	`
	return r.getOne(ctx, query, email)
}

// GetByUnitID retrieves the active tenant occupying a unit
func (r *PostgresTenantRepository) GetByUnitID(ctx context.Context, unitID string) (*domain.Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE unit_id = $1 AND move_out_date IS NULL`, unitID)
}

// Update updates an existing tenant profile
func (r *PostgresTenantRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		UPDATE tenants
		SET unit_id = NULLIF($1, ''), lease_start_date = $2, lease_end_date = $3,
		    move_in_date = $4, move_out_date = $5,
		    employer = $6, job_title = $7, monthly_income_cents = $8,
		    emergency_contact_name = $9, emergency_contact_phone = $10,
		    number_of_occupants = $11, has_pets = $12, pet_description = $13, smoker = $14,
		    background_check_status = $15, stripe_customer_id = NULLIF($16, ''),
		    updated_at = now()
		WHERE id = $17
		RETURNING updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		tenant.UnitID, tenant.LeaseStartDate, tenant.LeaseEndDate,
		tenant.MoveInDate, tenant.MoveOutDate,
		tenant.Employer, tenant.JobTitle, tenant.MonthlyIncome,
		tenant.EmergencyContactName, tenant.EmergencyContactPhone,
		tenant.NumberOfOccupants, tenant.HasPets, tenant.PetDescription, tenant.Smoker,
		tenant.BackgroundCheckStatus, tenant.StripeCustomerID, tenant.ID,
	).Scan(&tenant.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.E(domain.KindNotFound, "tenant not found")
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	return nil
}

func (r *PostgresTenantRepository) getOne(ctx context.Context, query string, arg any) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	var unitID, stripeCustomerID sql.NullString
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&t.ID, &t.UserID, &unitID,
		&t.LeaseStartDate, &t.LeaseEndDate, &t.MoveInDate, &t.MoveOutDate,
		&t.DateOfBirth, &t.Employer, &t.JobTitle, &t.MonthlyIncome,
		&t.EmergencyContactName, &t.EmergencyContactPhone,
		&t.NumberOfOccupants, &t.HasPets, &t.PetDescription, &t.Smoker,
		&t.BackgroundCheckStatus, &stripeCustomerID, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "tenant not found")
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	t.UnitID = unitID.String
	t.StripeCustomerID = stripeCustomerID.String
	return t, nil
}
