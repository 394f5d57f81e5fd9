package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/propertylease/internal/domain"
)

// PostgresBuildingRepository implements domain.BuildingRepository using PostgreSQL
type PostgresBuildingRepository struct {
	q      DBTX
	logger *slog.Logger
}

// NewPostgresBuildingRepository creates a new building repository
func NewPostgresBuildingRepository(q DBTX, logger *slog.Logger) *PostgresBuildingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBuildingRepository{q: q, logger: logger}
}

// Create creates a new building
func (r *PostgresBuildingRepository) Create(ctx context.Context, building *domain.Building) error {
	query := `
		INSERT INTO buildings (id, name, address, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		building.ID, building.Name, building.Address, building.OwnerID,
	).Scan(&building.CreatedAt, &building.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create building: %w", err)
	}
	return nil
}

// GetByID retrieves a building by ID
func (r *PostgresBuildingRepository) GetByID(ctx context.Context, id string) (*domain.Building, error) {
	b := &domain.Building{}
	query := `SELECT id, name, address, owner_id, created_at, updated_at FROM buildings WHERE id = $1`
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.Name, &b.Address, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "building not found")
		}
		return nil, fmt.Errorf("failed to get building: %w", err)
	}
	return b, nil
}

// ListByOwner returns all buildings owned by a user
func (r *PostgresBuildingRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Building, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, name, address, owner_id, created_at, updated_at FROM buildings WHERE owner_id = $1 ORDER BY name`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list buildings: %w", err)
	}
	defer rows.Close()

	var out []*domain.Building
	for rows.Next() {
		b := &domain.Building{}
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan building: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// OwnerOfUnit resolves unit -> building -> owner with an explicit join rather
// than chained lookups.
func (r *PostgresBuildingRepository) OwnerOfUnit(ctx context.Context, unitID string) (*domain.User, error) {
	u := &domain.User{}
	query := `
		SELECT o.id, o.email, o.first_name, o.last_name, o.phone, o.password_hash, o.role, o.is_active, o.created_at, o.updated_at
		FROM units un
		JOIN buildings b ON b.id = un.building_id
		JOIN users o ON o.id = b.owner_id
		WHERE un.id = $1
	`
	err := r.q.QueryRowContext(ctx, query, unitID).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone,
		&u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "unit not found")
		}
		return nil, fmt.Errorf("failed to resolve unit owner: %w", err)
	}
	return u, nil
}
