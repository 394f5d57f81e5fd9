package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/propertylease/internal/domain"
)

// PostgresUnitRepository implements domain.UnitRepository using PostgreSQL
type PostgresUnitRepository struct {
	q      DBTX
	logger *slog.Logger
}

// NewPostgresUnitRepository creates a new unit repository
func NewPostgresUnitRepository(q DBTX, logger *slog.Logger) *PostgresUnitRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUnitRepository{q: q, logger: logger}
}

const unitColumns = `id, building_id, unit_number, floor, bedrooms, bathrooms_tenths, square_feet,
	monthly_rent_cents, security_deposit_cents, description, unit_type,
	has_balcony, has_dishwasher, has_washing_machine, has_air_conditioning,
	furnished, pets_allowed, smoking_allowed,
	is_available, room_code, lease_start_date, lease_end_date, created_at, updated_at`

// Create creates a new unit
func (r *PostgresUnitRepository) Create(ctx context.Context, unit *domain.Unit) error {
	query := `
		INSERT INTO units (id, building_id, unit_number, floor, bedrooms, bathrooms_tenths, square_feet,
			monthly_rent_cents, security_deposit_cents, description, unit_type,
			has_balcony, has_dishwasher, has_washing_machine, has_air_conditioning,
			furnished, pets_allowed, smoking_allowed, is_available, room_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		unit.ID, unit.BuildingID, unit.UnitNumber, unit.Floor, unit.Bedrooms,
		unit.BathroomsTenths, unit.SquareFeet, unit.MonthlyRent, unit.SecurityDeposit,
		unit.Description, unit.UnitType,
		unit.HasBalcony, unit.HasDishwasher, unit.HasWashingMachine, unit.HasAirConditioning,
		unit.Furnished, unit.PetsAllowed, unit.SmokingAllowed,
		unit.IsAvailable, unit.RoomCode,
	).Scan(&unit.CreatedAt, &unit.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.E(domain.KindConflict, "room code already in use")
		}
		return fmt.Errorf("failed to create unit: %w", err)
	}
	return nil
}

// GetByID retrieves a unit by ID
func (r *PostgresUnitRepository) GetByID(ctx context.Context, id string) (*domain.Unit, error) {
	return r.getOne(ctx, `SELECT `+unitColumns+` FROM units WHERE id = $1`, id)
}

// GetByRoomCode retrieves a unit by its access code
func (r *PostgresUnitRepository) GetByRoomCode(ctx context.Context, code string) (*domain.Unit, error) {
	return r.getOne(ctx, `SELECT `+unitColumns+` FROM units WHERE room_code = $1`, code)
}

// ExistsByRoomCode checks whether a room code is already assigned.
// Advisory only: the unique constraint is enforced again at persistence time.
func (r *PostgresUnitRepository) ExistsByRoomCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM units WHERE room_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check room code: %w", err)
	}
	return exists, nil
}

// UpdateRoomCode replaces a unit's access code; the old code is unusable the
// moment this commits.
func (r *PostgresUnitRepository) UpdateRoomCode(ctx context.Context, unitID, code string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE units SET room_code = $1, updated_at = now() WHERE id = $2`, code, unitID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.E(domain.KindConflict, "room code already in use")
		}
		return fmt.Errorf("failed to update room code: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.E(domain.KindNotFound, "unit not found")
	}
	return nil
}

// ClaimForLease atomically flips availability. The WHERE is_available = TRUE
// guard means exactly one of any set of concurrent claims succeeds, whatever
// the isolation level.
func (r *PostgresUnitRepository) ClaimForLease(ctx context.Context, unitID string, dates domain.LeaseDates) (bool, error) {
	res, err := r.q.ExecContext(ctx, `
		UPDATE units
		SET is_available = FALSE,
		    lease_start_date = COALESCE($2, lease_start_date),
		    lease_end_date = COALESCE($3, lease_end_date),
		    updated_at = now()
		WHERE id = $1 AND is_available = TRUE
	`, unitID, dates.Start, dates.End)
	if err != nil {
		return false, fmt.Errorf("failed to claim unit: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows == 1, nil
}

// ReleaseLease makes the unit available again (owner/admin vacate).
func (r *PostgresUnitRepository) ReleaseLease(ctx context.Context, unitID string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE units
		SET is_available = TRUE, lease_start_date = NULL, lease_end_date = NULL, updated_at = now()
		WHERE id = $1
	`, unitID)
	if err != nil {
		return fmt.Errorf("failed to release unit: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.E(domain.KindNotFound, "unit not found")
	}
	return nil
}

// ListByBuilding returns all units in a building
func (r *PostgresUnitRepository) ListByBuilding(ctx context.Context, buildingID string) ([]*domain.Unit, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+unitColumns+` FROM units WHERE building_id = $1 ORDER BY unit_number`, buildingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var out []*domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresUnitRepository) getOne(ctx context.Context, query string, arg any) (*domain.Unit, error) {
	row := r.q.QueryRowContext(ctx, query, arg)
	u, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "unit not found")
		}
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (*domain.Unit, error) {
	u := &domain.Unit{}
	err := row.Scan(
		&u.ID, &u.BuildingID, &u.UnitNumber, &u.Floor, &u.Bedrooms,
		&u.BathroomsTenths, &u.SquareFeet, &u.MonthlyRent, &u.SecurityDeposit,
		&u.Description, &u.UnitType,
		&u.HasBalcony, &u.HasDishwasher, &u.HasWashingMachine, &u.HasAirConditioning,
		&u.Furnished, &u.PetsAllowed, &u.SmokingAllowed,
		&u.IsAvailable, &u.RoomCode, &u.LeaseStartDate, &u.LeaseEndDate,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan unit: %w", err)
	}
	return u, nil
}
