package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/reliability/circuitbreaker"
	"github.com/yourorg/propertylease/internal/reliability/retry"
)

// StripeGateway implements domain.PaymentGateway on the Stripe API. All calls
// go through a shared circuit breaker; only the read-side RetrieveIntent is
// retried, because Charge and Refund are not safe to repeat without their
// idempotency key reaching Stripe first.
type StripeGateway struct {
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg *retry.Config
	logger   *slog.Logger
}

// NewStripeGateway configures the global Stripe client key and returns the
// adapter.
func NewStripeGateway(apiKey string, logger *slog.Logger) *StripeGateway {
	stripe.Key = apiKey
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeGateway{
		breaker:  circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
	}
}

// Charge creates and confirms a payment intent in one round trip.
func (g *StripeGateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	if !g.breaker.AllowRequest() {
		return nil, domain.E(domain.KindGatewayFailure, "payment gateway unavailable")
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(req.AmountCents)),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.PaymentMethodToken),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(req.Description),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddExpand("latest_charge")
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		g.breaker.RecordFailure()
		return nil, g.wrapStripeErr(err, "charge failed")
	}
	g.breaker.RecordSuccess()
	return resultFromIntent(pi), nil
}

// RetrieveIntent fetches the authoritative state of an intent. Safe to retry.
func (g *StripeGateway) RetrieveIntent(ctx context.Context, intentID string) (*domain.ChargeResult, error) {
	if !g.breaker.AllowRequest() {
		return nil, domain.E(domain.KindGatewayFailure, "payment gateway unavailable")
	}

	pi, err := retry.Do(ctx, g.retryCfg, g.logger, "stripe.retrieve_intent",
		func(ctx context.Context) (*stripe.PaymentIntent, error) {
			params := &stripe.PaymentIntentParams{}
			params.Context = ctx
			params.AddExpand("latest_charge")
			return paymentintent.Get(intentID, params)
		})
	if err != nil {
		g.breaker.RecordFailure()
		return nil, g.wrapStripeErr(err, "retrieve intent failed")
	}
	g.breaker.RecordSuccess()
	return resultFromIntent(pi), nil
}

// ConfirmIntent re-confirms an intent stuck in requires_confirmation.
func (g *StripeGateway) ConfirmIntent(ctx context.Context, intentID string) (*domain.ChargeResult, error) {
	if !g.breaker.AllowRequest() {
		return nil, domain.E(domain.KindGatewayFailure, "payment gateway unavailable")
	}

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")

	pi, err := paymentintent.Confirm(intentID, params)
	if err != nil {
		g.breaker.RecordFailure()
		return nil, g.wrapStripeErr(err, "confirm intent failed")
	}
	g.breaker.RecordSuccess()
	return resultFromIntent(pi), nil
}

// Refund issues a partial or full refund against a captured charge.
func (g *StripeGateway) Refund(ctx context.Context, chargeID string, amount domain.Cents, reason string) error {
	if !g.breaker.AllowRequest() {
		return domain.E(domain.KindGatewayFailure, "payment gateway unavailable")
	}

	params := &stripe.RefundParams{
		Charge: stripe.String(chargeID),
		Amount: stripe.Int64(int64(amount)),
	}
	params.Context = ctx
	if reason != "" {
		params.AddMetadata("reason", reason)
	}

	if _, err := refund.New(params); err != nil {
		g.breaker.RecordFailure()
		return g.wrapStripeErr(err, "refund failed")
	}
	g.breaker.RecordSuccess()
	return nil
}

func (g *StripeGateway) wrapStripeErr(err error, msg string) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		g.logger.Error("stripe call failed",
			slog.String("code", string(stripeErr.Code)),
			slog.String("type", string(stripeErr.Type)),
		)
	}
	return domain.Wrap(domain.KindGatewayFailure, msg, err)
}

func resultFromIntent(pi *stripe.PaymentIntent) *domain.ChargeResult {
	res := &domain.ChargeResult{
		Status:   mapIntentStatus(pi.Status),
		IntentID: pi.ID,
	}
	if pi.LatestCharge != nil {
		res.ChargeID = pi.LatestCharge.ID
		res.ReceiptURL = pi.LatestCharge.ReceiptURL
	}
	return res
}

// mapIntentStatus folds Stripe's intent lifecycle into the three outcomes the
// ledger distinguishes.
func mapIntentStatus(status stripe.PaymentIntentStatus) domain.GatewayStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return domain.GatewaySucceeded
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation, stripe.PaymentIntentStatusProcessing:
		return domain.GatewayRequiresAction
	default:
		return domain.GatewayFailed
	}
}
