package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/observability/metrics"
	"github.com/yourorg/propertylease/internal/service"
)

// ReconcileWorker periodically resolves ambiguous payments: rows that went
// to the gateway but whose outcome never made it back (crash, timeout,
// dropped connection). Reconciliation is idempotent, so overlapping sweeps
// and retries are harmless.
type ReconcileWorker struct {
	store        domain.Store
	payments     *service.PaymentService
	logger       *slog.Logger
	interval     time.Duration
	pendingAfter time.Duration
}

// NewReconcileWorker creates a new reconcile worker. pendingAfter is how old
// a PENDING row must be before the sweep considers its outcome ambiguous.
func NewReconcileWorker(
	store domain.Store,
	payments *service.PaymentService,
	logger *slog.Logger,
	interval time.Duration,
	pendingAfter time.Duration,
) *ReconcileWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileWorker{
		store:        store,
		payments:     payments,
		logger:       logger,
		interval:     interval,
		pendingAfter: pendingAfter,
	}
}

// Start begins the reconcile loop. Blocks until ctx is cancelled.
func (w *ReconcileWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reconcile worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reconcile worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ReconcileWorker) sweep(ctx context.Context) {
	olderThan := time.Now().Add(-w.pendingAfter)
	payments, err := w.store.Payments().ListUnresolved(ctx, olderThan)
	if err != nil {
		w.logger.Error("failed to list unresolved payments",
			slog.String("error", err.Error()),
		)
		metrics.ObserveReconcile("worker", "list_error")
		return
	}
	if len(payments) == 0 {
		return
	}

	w.logger.Info("reconciling ambiguous payments", slog.Int("count", len(payments)))
	for _, p := range payments {
		if err := w.payments.ReconcilePayment(ctx, p.ID); err != nil {
			w.logger.Error("failed to reconcile payment",
				slog.String("payment_id", p.ID),
				slog.String("reference", p.ReferenceNumber),
				slog.String("error", err.Error()),
			)
			metrics.ObserveReconcile("worker", "error")
			continue
		}
		metrics.ObserveReconcile("worker", "success")
	}
}
