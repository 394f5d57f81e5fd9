package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/observability/metrics"
	"github.com/yourorg/propertylease/internal/security"
)

const (
	referencePrefix  = "PAY-"
	referenceLength  = 8
	referenceCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	idempotencyTTL = 24 * time.Hour
)

// KeyClaimer is the one-shot claim primitive behind client idempotency keys.
// The Redis client satisfies it directly.
type KeyClaimer interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
}

// PaymentService owns the payment ledger: submission, manual recording,
// refunds, reconciliation and late fees. Every write goes through the store
// transaction boundary; the gateway adapter never touches the ledger.
type PaymentService struct {
	store    domain.Store
	gateway  domain.PaymentGateway
	resolver *security.OwnershipResolver
	authz    *security.AuthorizationService
	claims   KeyClaimer // nil disables client idempotency keys
	randSrc  io.Reader
	logger   *slog.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store domain.Store,
	gateway domain.PaymentGateway,
	resolver *security.OwnershipResolver,
	authz *security.AuthorizationService,
	claims KeyClaimer,
	randSrc io.Reader,
	logger *slog.Logger,
) *PaymentService {
	if randSrc == nil {
		randSrc = rand.Reader
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentService{
		store:    store,
		gateway:  gateway,
		resolver: resolver,
		authz:    authz,
		claims:   claims,
		randSrc:  randSrc,
		logger:   logger,
	}
}

// SubmitPaymentInput is a tenant-initiated electronic payment request
type SubmitPaymentInput struct {
	Amount             string     `json:"amount"`
	Type               string     `json:"payment_type"`
	Method             string     `json:"payment_method"`
	PaymentMethodToken string     `json:"payment_method_token"`
	Description        string     `json:"description"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	PeriodStart        *time.Time `json:"period_start,omitempty"`
	PeriodEnd          *time.Time `json:"period_end,omitempty"`
	// IdempotencyKey is optional; resubmitting with the same key returns the
	// original payment instead of charging twice.
	IdempotencyKey string `json:"idempotency_key"`
	Currency       string `json:"currency"`
}

// SubmitPayment charges a tenant through the gateway. The PENDING row is
// persisted before the gateway sees the charge, so a crash or timeout leaves
// a reconcilable record rather than a silent double-charge window.
func (s *PaymentService) SubmitPayment(ctx context.Context, caller domain.Caller, input SubmitPaymentInput) (*domain.Payment, error) {
	if err := s.authz.ValidatePermission(caller.Role, security.PermSubmitPayment); err != nil {
		return nil, err
	}
	tenant, err := s.resolver.TenantForCaller(ctx, caller)
	if err != nil {
		return nil, err
	}
	if tenant.UnitID == "" {
		return nil, domain.E(domain.KindValidation, "tenant has no leased unit")
	}

	amount, err := domain.ParseAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, domain.E(domain.KindValidation, "amount must be positive")
	}
	method := domain.PaymentMethod(input.Method)
	if !method.IsElectronic() {
		return nil, domain.E(domain.KindValidation, "non-electronic payments are recorded by the owner")
	}
	if input.PaymentMethodToken == "" {
		return nil, domain.E(domain.KindValidation, "payment method token is required")
	}
	currency := input.Currency
	if currency == "" {
		currency = "usd"
	}

	// Client idempotency: the first submission claims the key, replays get
	// the original payment back by reference.
	if input.IdempotencyKey != "" && s.claims != nil {
		key := "idem:payment:" + tenant.ID + ":" + input.IdempotencyKey
		ref, err := s.newReferenceNumber(ctx)
		if err != nil {
			return nil, err
		}
		won, err := s.claims.SetNX(ctx, key, ref, idempotencyTTL)
		if err != nil {
			return nil, domain.Wrap(domain.KindUnknown, "idempotency check failed", err)
		}
		if !won {
			prevRef, err := s.claims.Get(ctx, key)
			if err != nil {
				return nil, domain.Wrap(domain.KindUnknown, "idempotency check failed", err)
			}
			return s.store.Payments().GetByReferenceNumber(ctx, prevRef)
		}
		return s.submit(ctx, tenant, input, amount, method, currency, ref)
	}

	ref, err := s.newReferenceNumber(ctx)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, tenant, input, amount, method, currency, ref)
}

func (s *PaymentService) submit(
	ctx context.Context,
	tenant *domain.Tenant,
	input SubmitPaymentInput,
	amount domain.Cents,
	method domain.PaymentMethod,
	currency, ref string,
) (*domain.Payment, error) {
	now := time.Now()
	payment := &domain.Payment{
		ID:              uuid.NewString(),
		TenantID:        tenant.ID,
		UnitID:          tenant.UnitID,
		Amount:          amount,
		Type:            domain.PaymentType(input.Type),
		Method:          method,
		Status:          domain.StatusPending,
		PaymentDate:     now,
		DueDate:         input.DueDate,
		PeriodStart:     input.PeriodStart,
		PeriodEnd:       input.PeriodEnd,
		ReferenceNumber: ref,
		Description:     input.Description,
	}
	if err := s.store.Payments().Create(ctx, payment); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.gateway.Charge(ctx, domain.ChargeRequest{
		AmountCents:        payment.TotalAmount(),
		Currency:           currency,
		PaymentMethodToken: input.PaymentMethodToken,
		Description:        input.Description,
		// The ledger reference doubles as the gateway idempotency key, so a
		// retried charge can never produce a second intent.
		IdempotencyKey: ref,
		Metadata: map[string]string{
			"payment_id": payment.ID,
			"tenant_id":  tenant.ID,
			"reference":  ref,
		},
	})
	if err != nil {
		metrics.ObserveCharge("error", time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			// Outcome unknown. The row stays PENDING for the reconcile sweep.
			s.logger.Warn("charge outcome ambiguous, leaving pending",
				slog.String("payment_id", payment.ID),
				slog.String("reference", ref),
			)
			return nil, &domain.Error{
				Kind:      domain.KindGatewayFailure,
				Message:   "payment submitted but not yet confirmed",
				Reference: ref,
				Err:       err,
			}
		}
		// Definitive gateway rejection: the FAILED row is the audit trail.
		if ferr := s.markFailed(ctx, payment.ID, err.Error()); ferr != nil {
			s.logger.Error("failed to persist failed payment",
				slog.String("payment_id", payment.ID),
				slog.String("error", ferr.Error()),
			)
		}
		metrics.ObservePayment(string(domain.StatusFailed))
		return nil, &domain.Error{
			Kind:      domain.KindGatewayFailure,
			Message:   "payment failed",
			Reference: ref,
			Err:       err,
		}
	}
	metrics.ObserveCharge("ok", time.Since(start))

	if err := s.FinalizeFromGatewayResult(ctx, payment.ID, result); err != nil {
		return nil, err
	}
	final, err := s.store.Payments().GetByID(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	metrics.ObservePayment(string(final.Status))
	if final.Status == domain.StatusFailed {
		return nil, &domain.Error{
			Kind:      domain.KindGatewayFailure,
			Message:   "payment was declined",
			Reference: ref,
		}
	}
	return final, nil
}

// RecordManualPaymentInput is an owner-entered cash/check payment
type RecordManualPaymentInput struct {
	TenantID    string     `json:"tenant_id"`
	Amount      string     `json:"amount"`
	Type        string     `json:"payment_type"`
	Method      string     `json:"payment_method"`
	Description string     `json:"description"`
	Notes       string     `json:"notes"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

// RecordManualPayment records an off-gateway payment (cash, check, money
// order) as COMPLETED. Only the owner of the tenant's unit may record it.
func (s *PaymentService) RecordManualPayment(ctx context.Context, caller domain.Caller, input RecordManualPaymentInput) (*domain.Payment, error) {
	if err := s.authz.ValidatePermission(caller.Role, security.PermRecordManualPayment); err != nil {
		return nil, err
	}
	tenant, err := s.store.Tenants().GetByID(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant.UnitID == "" {
		return nil, domain.E(domain.KindValidation, "tenant has no leased unit")
	}
	if err := s.resolver.CanManageUnit(ctx, caller, tenant.UnitID); err != nil {
		return nil, err
	}

	amount, err := domain.ParseAmount(input.Amount)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, domain.E(domain.KindValidation, "amount must be positive")
	}
	method := domain.PaymentMethod(input.Method)
	if method.IsElectronic() {
		return nil, domain.E(domain.KindValidation, "electronic payments go through the gateway")
	}

	ref, err := s.newReferenceNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	paymentDate := now
	if input.PaymentDate != nil {
		paymentDate = *input.PaymentDate
	}
	notes := input.Notes
	if notes == "" {
		notes = "manual payment recorded by owner"
	}
	payment := &domain.Payment{
		ID:              uuid.NewString(),
		TenantID:        tenant.ID,
		UnitID:          tenant.UnitID,
		Amount:          amount,
		Type:            domain.PaymentType(input.Type),
		Method:          method,
		Status:          domain.StatusCompleted,
		PaymentDate:     paymentDate,
		PeriodStart:     input.PeriodStart,
		PeriodEnd:       input.PeriodEnd,
		ProcessedAt:     &now,
		ReferenceNumber: ref,
		Description:     input.Description,
		Notes:           notes,
	}
	if err := s.store.Payments().Create(ctx, payment); err != nil {
		return nil, err
	}

	metrics.ObservePayment(string(domain.StatusCompleted))
	s.logger.Info("manual payment recorded",
		slog.String("payment_id", payment.ID),
		slog.String("tenant_id", tenant.ID),
		slog.String("recorded_by", caller.ID),
	)
	return payment, nil
}

// RefundPayment refunds part or all of a settled payment. The row lock held
// across the check-and-update means concurrent refunds serialize; the second
// one re-reads the already-reduced refundable amount.
func (s *PaymentService) RefundPayment(ctx context.Context, caller domain.Caller, paymentID, amountStr, reason string) (*domain.Payment, error) {
	if err := s.authz.ValidatePermission(caller.Role, security.PermRefundPayment); err != nil {
		return nil, err
	}
	amount, err := domain.ParseAmount(amountStr)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, domain.E(domain.KindValidation, "refund amount must be positive")
	}

	var refunded *domain.Payment
	err = s.store.InTx(ctx, func(tx domain.Store) error {
		payment, err := tx.Payments().GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := s.resolver.CanAccessPayment(ctx, caller, payment); err != nil {
			return err
		}
		// Disputed payments stay refundable; issuing the refund is how a
		// dispute gets settled.
		refundableStatus := payment.Status.IsSuccessful() ||
			payment.Status == domain.StatusPartiallyRefunded ||
			payment.Status == domain.StatusDisputed
		if !refundableStatus {
			return domain.Ef(domain.KindValidation, "cannot refund a %s payment", payment.Status)
		}

		refundable := payment.TotalAmount() - payment.RefundAmount
		if amount > refundable {
			return domain.Ef(domain.KindInvariantViolation,
				"refund of %s exceeds refundable %s", amount, refundable)
		}

		if payment.Method.IsElectronic() {
			if payment.GatewayChargeID == "" {
				return domain.E(domain.KindInvariantViolation, "settled electronic payment has no charge id")
			}
			if err := s.gateway.Refund(ctx, payment.GatewayChargeID, amount, reason); err != nil {
				metrics.ObserveRefund("gateway_error")
				return err
			}
		}

		now := time.Now()
		payment.RefundAmount += amount
		payment.RefundDate = &now
		payment.RefundReason = reason
		next := domain.StatusPartiallyRefunded
		if payment.RefundAmount == payment.TotalAmount() {
			next = domain.StatusRefunded
		}
		if !domain.CanTransition(payment.Status, next) {
			return domain.Ef(domain.KindInvariantViolation, "illegal transition %s -> %s", payment.Status, next)
		}
		payment.SetStatus(next, now)
		if err := tx.Payments().Update(ctx, payment); err != nil {
			return err
		}
		refunded = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ObserveRefund(string(refunded.Status))
	s.logger.Info("payment refunded",
		slog.String("payment_id", refunded.ID),
		slog.String("status", string(refunded.Status)),
		slog.String("refunded_by", caller.ID),
	)
	return refunded, nil
}

// FinalizeFromGatewayResult applies a gateway outcome to the ledger. It is
// idempotent: replaying the same result against a settled row is a no-op.
func (s *PaymentService) FinalizeFromGatewayResult(ctx context.Context, paymentID string, result *domain.ChargeResult) error {
	return s.store.InTx(ctx, func(tx domain.Store) error {
		payment, err := tx.Payments().GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if !payment.Status.IsInProgress() {
			return nil
		}

		payment.GatewayIntentID = result.IntentID
		if result.ChargeID != "" {
			payment.GatewayChargeID = result.ChargeID
		}
		if result.ReceiptURL != "" {
			payment.ReceiptURL = result.ReceiptURL
		}

		now := time.Now()
		switch result.Status {
		case domain.GatewaySucceeded:
			payment.SetStatus(domain.StatusCompleted, now)
		case domain.GatewayFailed:
			payment.SetStatus(domain.StatusFailed, now)
		case domain.GatewayRequiresAction:
			// Still moving. The row stays PENDING with the intent recorded,
			// which is exactly what the reconcile sweep looks for.
		}
		return tx.Payments().Update(ctx, payment)
	})
}

// ReconcilePayment resolves an ambiguous in-progress payment by asking the
// gateway what actually happened. Safe to call repeatedly.
func (s *PaymentService) ReconcilePayment(ctx context.Context, paymentID string) error {
	payment, err := s.store.Payments().GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if !payment.Status.IsInProgress() {
		return nil
	}
	if payment.GatewayIntentID == "" {
		return domain.E(domain.KindInvariantViolation, "payment has no gateway intent to reconcile")
	}

	result, err := s.gateway.RetrieveIntent(ctx, payment.GatewayIntentID)
	if err != nil {
		return err
	}
	return s.FinalizeFromGatewayResult(ctx, payment.ID, result)
}

// GetPayment returns a payment the caller is allowed to see.
func (s *PaymentService) GetPayment(ctx context.Context, caller domain.Caller, paymentID string) (*domain.Payment, error) {
	payment, err := s.store.Payments().GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.CanAccessPayment(ctx, caller, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// ListMyPayments returns the calling tenant's payment history.
func (s *PaymentService) ListMyPayments(ctx context.Context, caller domain.Caller) ([]*domain.Payment, error) {
	if err := s.authz.ValidatePermission(caller.Role, security.PermListOwnPayments); err != nil {
		return nil, err
	}
	tenant, err := s.resolver.TenantForCaller(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.store.Payments().ListByTenant(ctx, tenant.ID)
}

// ListOwnerPayments returns payments across all of the caller's buildings.
func (s *PaymentService) ListOwnerPayments(ctx context.Context, caller domain.Caller) ([]*domain.Payment, error) {
	if err := s.authz.ValidatePermission(caller.Role, security.PermListOwnerPayments); err != nil {
		return nil, err
	}
	return s.store.Payments().ListByOwner(ctx, caller.ID)
}

// ApplyLateFee stamps a late fee on an overdue pending rent payment, once.
func (s *PaymentService) ApplyLateFee(ctx context.Context, paymentID string, fee domain.Cents) error {
	if fee <= 0 {
		return domain.E(domain.KindValidation, "late fee must be positive")
	}
	err := s.store.InTx(ctx, func(tx domain.Store) error {
		payment, err := tx.Payments().GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.LateFee != 0 || payment.Status != domain.StatusPending || payment.Type != domain.PaymentRent {
			return nil
		}
		if !payment.IsOverdue(time.Now()) {
			return nil
		}
		payment.LateFee = fee
		payment.IsLate = true
		return tx.Payments().Update(ctx, payment)
	})
	if err != nil {
		return err
	}
	metrics.ObserveLateFee()
	s.logger.Info("late fee applied",
		slog.String("payment_id", paymentID),
		slog.String("fee", fee.String()),
	)
	return nil
}

// markFailed persists the FAILED audit row after a definitive gateway
// rejection, appending the failure reason.
func (s *PaymentService) markFailed(ctx context.Context, paymentID, reason string) error {
	return s.store.InTx(ctx, func(tx domain.Store) error {
		payment, err := tx.Payments().GetByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if !payment.Status.IsInProgress() {
			return nil
		}
		payment.SetStatus(domain.StatusFailed, time.Now())
		if payment.Description == "" {
			payment.Description = "failed: " + reason
		} else {
			payment.Description += " (failed: " + reason + ")"
		}
		return tx.Payments().Update(ctx, payment)
	})
}

// newReferenceNumber allocates a PAY-XXXXXXXX reference not yet in the
// ledger. The unique constraint remains the final arbiter.
func (s *PaymentService) newReferenceNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		suffix := make([]byte, 0, referenceLength)
		buf := make([]byte, 1)
		max := byte(256 - (256 % len(referenceCharset)))
		for len(suffix) < referenceLength {
			if _, err := io.ReadFull(s.randSrc, buf); err != nil {
				return "", fmt.Errorf("failed to generate reference: %w", err)
			}
			if buf[0] >= max {
				continue
			}
			suffix = append(suffix, referenceCharset[int(buf[0])%len(referenceCharset)])
		}
		ref := referencePrefix + string(suffix)
		exists, err := s.store.Payments().ExistsByReferenceNumber(ctx, ref)
		if err != nil {
			return "", err
		}
		if !exists {
			return ref, nil
		}
	}
	return "", domain.E(domain.KindConflict, "could not allocate a unique reference number")
}
