package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"
	"github.com/yourorg/propertylease/internal/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository works
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements domain.Store over database/sql.
type PostgresStore struct {
	db     *sql.DB // nil when tx-bound
	q      DBTX
	logger *slog.Logger

	users     *PostgresUserRepository
	tenants   *PostgresTenantRepository
	units     *PostgresUnitRepository
	buildings *PostgresBuildingRepository
	payments  *PostgresPaymentRepository
}

// NewPostgresStore creates a store bound to the connection pool.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return newStore(db, db, logger)
}

func newStore(db *sql.DB, q DBTX, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:        db,
		q:         q,
		logger:    logger,
		users:     &PostgresUserRepository{q: q, logger: logger},
		tenants:   &PostgresTenantRepository{q: q, logger: logger},
		units:     &PostgresUnitRepository{q: q, logger: logger},
		buildings: &PostgresBuildingRepository{q: q, logger: logger},
		payments:  &PostgresPaymentRepository{q: q, logger: logger},
	}
}

func (s *PostgresStore) Users() domain.UserRepository         { return s.users }
func (s *PostgresStore) Tenants() domain.TenantRepository     { return s.tenants }
func (s *PostgresStore) Units() domain.UnitRepository         { return s.units }
func (s *PostgresStore) Buildings() domain.BuildingRepository { return s.buildings }
func (s *PostgresStore) Payments() domain.PaymentRepository   { return s.payments }

// InTx runs fn against a transaction-bound store. Nested calls reuse the
// already-open transaction.
func (s *PostgresStore) InTx(ctx context.Context, fn func(tx domain.Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStore := newStore(nil, tx, s.logger)
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("transaction rollback failed", slog.String("error", rbErr.Error()))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// prefixColumns qualifies each column in a comma-separated list with a table
// alias, for queries that join.
func prefixColumns(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
