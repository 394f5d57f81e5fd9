package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yourorg/propertylease/internal/domain"
)

// PostgresPaymentRepository implements domain.PaymentRepository using PostgreSQL.
// Payments are never deleted; rows only move along the status state machine.
type PostgresPaymentRepository struct {
	q      DBTX
	logger *slog.Logger
}

// NewPostgresPaymentRepository creates a new payment repository
func NewPostgresPaymentRepository(q DBTX, logger *slog.Logger) *PostgresPaymentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPaymentRepository{q: q, logger: logger}
}

const paymentColumns = `id, tenant_id, unit_id, amount_cents, payment_type, payment_method, status,
	late_fee_cents, is_late, refund_amount_cents, refund_date, refund_reason,
	payment_date, due_date, processed_at, period_start, period_end,
	gateway_intent_id, gateway_charge_id, receipt_url,
	reference_number, description, notes, created_at, updated_at`

// Create inserts a new ledger row
func (r *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, tenant_id, unit_id, amount_cents, payment_type, payment_method, status,
			late_fee_cents, is_late, refund_amount_cents,
			payment_date, due_date, processed_at, period_start, period_end,
			gateway_intent_id, gateway_charge_id, receipt_url,
			reference_number, description, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		payment.ID, payment.TenantID, payment.UnitID,
		payment.Amount, payment.Type, payment.Method, payment.Status,
		payment.LateFee, payment.IsLate, payment.RefundAmount,
		payment.PaymentDate, payment.DueDate, payment.ProcessedAt,
		payment.PeriodStart, payment.PeriodEnd,
		payment.GatewayIntentID, payment.GatewayChargeID, payment.ReceiptURL,
		payment.ReferenceNumber, payment.Description, payment.Notes,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.E(domain.KindConflict, "reference number already in use")
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by ID
func (r *PostgresPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

// GetByIDForUpdate row-locks the payment inside the enclosing transaction so
// refunds and gateway finalization cannot interleave on the same row.
func (r *PostgresPaymentRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
}

// GetByIntentID retrieves a payment by its gateway payment-intent id
func (r *PostgresPaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE gateway_intent_id = $1`, intentID)
}

// GetByReferenceNumber retrieves a payment by its human reference
func (r *PostgresPaymentRepository) GetByReferenceNumber(ctx context.Context, ref string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference_number = $1`, ref)
}

// ExistsByReferenceNumber checks reference-number uniqueness against the full
// store, not any in-process cache.
func (r *PostgresPaymentRepository) ExistsByReferenceNumber(ctx context.Context, ref string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE reference_number = $1)`, ref).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reference number: %w", err)
	}
	return exists, nil
}

// Update persists a status transition or refund stamp
func (r *PostgresPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, late_fee_cents = $2, is_late = $3,
		    refund_amount_cents = $4, refund_date = $5, refund_reason = $6,
		    processed_at = $7, gateway_intent_id = $8, gateway_charge_id = $9, receipt_url = $10,
		    description = $11, notes = $12, updated_at = now()
		WHERE id = $13
		RETURNING updated_at
	`
	err := r.q.QueryRowContext(ctx, query,
		payment.Status, payment.LateFee, payment.IsLate,
		payment.RefundAmount, payment.RefundDate, payment.RefundReason,
		payment.ProcessedAt, payment.GatewayIntentID, payment.GatewayChargeID, payment.ReceiptURL,
		payment.Description, payment.Notes, payment.ID,
	).Scan(&payment.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.E(domain.KindNotFound, "payment not found")
		}
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}

// ListByTenant returns a tenant's payment history, newest first
func (r *PostgresPaymentRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Payment, error) {
	return r.list(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE tenant_id = $1 ORDER BY payment_date DESC`, tenantID)
}

// ListByOwner returns payments across every unit the owner's buildings hold
func (r *PostgresPaymentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Payment, error) {
	query := `
		SELECT ` + prefixColumns(paymentColumns, "p") + `
		FROM payments p
		JOIN units un ON un.id = p.unit_id
		JOIN buildings b ON b.id = un.building_id
		WHERE b.owner_id = $1
		ORDER BY p.payment_date DESC
	`
	return r.list(ctx, query, ownerID)
}

// ListUnresolved returns ambiguous charges: still PENDING, an intent id on
// record, and old enough that the gateway should know the outcome.
func (r *PostgresPaymentRepository) ListUnresolved(ctx context.Context, olderThan time.Time) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending' AND gateway_intent_id <> '' AND created_at < $1
		ORDER BY created_at
	`
	return r.list(ctx, query, olderThan)
}

// ListOverdueRent returns pending rent past its due date with no late fee yet
func (r *PostgresPaymentRepository) ListOverdueRent(ctx context.Context, asOf time.Time) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = 'pending' AND payment_type = 'rent'
		  AND due_date IS NOT NULL AND due_date < $1 AND late_fee_cents = 0
		ORDER BY due_date
	`
	return r.list(ctx, query, asOf)
}

func (r *PostgresPaymentRepository) list(ctx context.Context, query string, arg any) ([]*domain.Payment, error) {
	rows, err := r.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Payment
	for rows.Next() {
		p := &domain.Payment{}
		if err := scanPayment(rows, p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresPaymentRepository) getOne(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := scanPayment(r.q.QueryRowContext(ctx, query, arg), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.E(domain.KindNotFound, "payment not found")
		}
		return nil, err
	}
	return p, nil
}

func scanPayment(row rowScanner, p *domain.Payment) error {
	err := row.Scan(
		&p.ID, &p.TenantID, &p.UnitID,
		&p.Amount, &p.Type, &p.Method, &p.Status,
		&p.LateFee, &p.IsLate, &p.RefundAmount, &p.RefundDate, &p.RefundReason,
		&p.PaymentDate, &p.DueDate, &p.ProcessedAt, &p.PeriodStart, &p.PeriodEnd,
		&p.GatewayIntentID, &p.GatewayChargeID, &p.ReceiptURL,
		&p.ReferenceNumber, &p.Description, &p.Notes,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("failed to scan payment: %w", err)
	}
	return nil
}
