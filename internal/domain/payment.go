package domain

import (
	"context"
	"time"
)

// PaymentType categorizes a payment
type PaymentType string

const (
	PaymentRent            PaymentType = "rent"
	PaymentSecurityDeposit PaymentType = "security_deposit"
	PaymentLateFee         PaymentType = "late_fee"
	PaymentUtility         PaymentType = "utility"
	PaymentMaintenanceFee  PaymentType = "maintenance_fee"
	PaymentParkingFee      PaymentType = "parking_fee"
	PaymentPetFee          PaymentType = "pet_fee"
	PaymentApplicationFee  PaymentType = "application_fee"
	PaymentCleaningFee     PaymentType = "cleaning_fee"
	PaymentKeyReplacement  PaymentType = "key_replacement"
	PaymentDamageFee       PaymentType = "damage_fee"
	PaymentOther           PaymentType = "other"
)

// PaymentMethod tracks how a payment is made
type PaymentMethod string

const (
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodDebitCard    PaymentMethod = "debit_card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodACH          PaymentMethod = "ach"
	MethodCheck        PaymentMethod = "check"
	MethodCash         PaymentMethod = "cash"
	MethodMoneyOrder   PaymentMethod = "money_order"
	MethodPayPal       PaymentMethod = "paypal"
	MethodVenmo        PaymentMethod = "venmo"
	MethodZelle        PaymentMethod = "zelle"
	MethodOther        PaymentMethod = "other"
)

// IsElectronic reports whether the method moves money without paper.
func (m PaymentMethod) IsElectronic() bool {
	return m != MethodCheck && m != MethodCash && m != MethodMoneyOrder
}

// PaymentStatus is the ledger state of a payment
type PaymentStatus string

const (
	StatusPending           PaymentStatus = "pending"
	StatusProcessing        PaymentStatus = "processing"
	StatusCompleted         PaymentStatus = "completed"
	StatusConfirmed         PaymentStatus = "confirmed"
	StatusFailed            PaymentStatus = "failed"
	StatusCancelled         PaymentStatus = "cancelled"
	StatusRefunded          PaymentStatus = "refunded"
	StatusPartiallyRefunded PaymentStatus = "partially_refunded"
	StatusDisputed          PaymentStatus = "disputed"
	StatusChargeback        PaymentStatus = "chargeback"
)

// IsSuccessful reports whether the payment settled successfully.
func (s PaymentStatus) IsSuccessful() bool {
	return s == StatusCompleted || s == StatusConfirmed
}

// IsInProgress reports whether the payment is still moving.
func (s PaymentStatus) IsInProgress() bool {
	return s == StatusPending || s == StatusProcessing
}

// IsTerminal reports whether no further gateway interaction can occur.
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusRefunded || s == StatusChargeback || s == StatusCancelled || s == StatusFailed
}

// statusTransitions encodes the payment state machine. CONFIRMED is a synonym
// success-terminal alongside COMPLETED; DISPUTED and PARTIALLY_REFUNDED stay
// mutable only through refund operations.
var statusTransitions = map[PaymentStatus][]PaymentStatus{
	StatusPending:           {StatusProcessing, StatusCompleted, StatusConfirmed, StatusFailed, StatusCancelled},
	StatusProcessing:        {StatusCompleted, StatusConfirmed, StatusFailed, StatusCancelled},
	StatusCompleted:         {StatusRefunded, StatusPartiallyRefunded, StatusDisputed, StatusChargeback},
	StatusConfirmed:         {StatusRefunded, StatusPartiallyRefunded, StatusDisputed, StatusChargeback},
	StatusPartiallyRefunded: {StatusRefunded, StatusPartiallyRefunded, StatusDisputed, StatusChargeback},
	StatusDisputed:          {StatusRefunded, StatusPartiallyRefunded, StatusChargeback},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to PaymentStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Payment is a financial event. Immutable once settled: only status-transition
// operations mutate it, and it is never deleted.
type Payment struct {
	ID       string // UUID
	TenantID string
	UnitID   string

	Amount  Cents
	Type    PaymentType
	Method  PaymentMethod
	Status  PaymentStatus
	LateFee Cents
	IsLate  bool

	RefundAmount Cents
	RefundDate   *time.Time
	RefundReason string

	PaymentDate time.Time
	DueDate     *time.Time
	ProcessedAt *time.Time

	PeriodStart *time.Time
	PeriodEnd   *time.Time

	// Gateway bookkeeping
	GatewayIntentID string
	GatewayChargeID string
	ReceiptURL      string

	ReferenceNumber string // PAY-XXXXXXXX, unique, assigned at creation
	Description     string
	Notes           string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalAmount is the charged amount including any late fee.
func (p *Payment) TotalAmount() Cents {
	return p.Amount + p.LateFee
}

// NetAmount is the total minus cumulative refunds.
func (p *Payment) NetAmount() Cents {
	return p.TotalAmount() - p.RefundAmount
}

// IsOverdue reports whether the payment passed its due date without settling.
func (p *Payment) IsOverdue(now time.Time) bool {
	return p.DueDate != nil && now.After(*p.DueDate) &&
		(p.Status == StatusPending || p.Status == StatusFailed)
}

// DaysOverdue returns whole days past the due date, 0 when not overdue.
func (p *Payment) DaysOverdue(now time.Time) int {
	if !p.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(*p.DueDate).Hours() / 24)
}

// IsRefunded reports whether any refund has been applied.
func (p *Payment) IsRefunded() bool {
	return p.RefundAmount > 0
}

// SetStatus transitions the payment status, stamping processed-at on entry
// into a success state. It does not validate the transition; callers check
// CanTransition first.
func (p *Payment) SetStatus(status PaymentStatus, now time.Time) {
	p.Status = status
	if status.IsSuccessful() && p.ProcessedAt == nil {
		t := now
		p.ProcessedAt = &t
	}
}

// PaymentRepository defines data access for the payment ledger
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	// GetByIDForUpdate row-locks the payment for the duration of the
	// enclosing transaction so finalization and refunds cannot interleave.
	GetByIDForUpdate(ctx context.Context, id string) (*Payment, error)
	GetByIntentID(ctx context.Context, intentID string) (*Payment, error)
	GetByReferenceNumber(ctx context.Context, ref string) (*Payment, error)
	ExistsByReferenceNumber(ctx context.Context, ref string) (bool, error)
	Update(ctx context.Context, payment *Payment) error
	ListByTenant(ctx context.Context, tenantID string) ([]*Payment, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Payment, error)
	// ListUnresolved returns PENDING payments that have a gateway intent id,
	// i.e. charges whose outcome is ambiguous and needs reconciliation.
	ListUnresolved(ctx context.Context, olderThan time.Time) ([]*Payment, error)
	// ListOverdueRent returns PENDING rent payments past their due date with
	// no late fee applied yet.
	ListOverdueRent(ctx context.Context, asOf time.Time) ([]*Payment, error)
}

// GatewayStatus is the fixed vocabulary the gateway adapter reports back.
type GatewayStatus string

const (
	GatewaySucceeded      GatewayStatus = "succeeded"
	GatewayRequiresAction GatewayStatus = "requires_action"
	GatewayFailed         GatewayStatus = "failed"
)

// ChargeRequest is a ledger intent crossing the gateway boundary. Amounts are
// already integer minor units; the conversion happened exactly at the edge.
type ChargeRequest struct {
	AmountCents        Cents
	Currency           string
	PaymentMethodToken string
	Description        string
	IdempotencyKey     string
	Metadata           map[string]string
}

// ChargeResult is the gateway's answer mapped into ledger vocabulary.
type ChargeResult struct {
	Status     GatewayStatus
	IntentID   string
	ChargeID   string
	ReceiptURL string
}

// PaymentGateway wraps the external charge/refund service. Implementations
// never touch the ledger; the payment service owns record consistency.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	RetrieveIntent(ctx context.Context, intentID string) (*ChargeResult, error)
	ConfirmIntent(ctx context.Context, intentID string) (*ChargeResult, error)
	Refund(ctx context.Context, chargeID string, amount Cents, reason string) error
}
