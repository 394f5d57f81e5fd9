package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/propertylease/internal/domain"
	"github.com/yourorg/propertylease/internal/service"
)

// LateFeeWorker sweeps overdue pending rent and applies the configured late
// fee once per payment. ApplyLateFee re-checks every condition under a row
// lock, so the sweep can run on several instances at once.
type LateFeeWorker struct {
	store    domain.Store
	payments *service.PaymentService
	logger   *slog.Logger
	interval time.Duration
	fee      domain.Cents
}

// NewLateFeeWorker creates a new late fee worker
func NewLateFeeWorker(
	store domain.Store,
	payments *service.PaymentService,
	logger *slog.Logger,
	interval time.Duration,
	fee domain.Cents,
) *LateFeeWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LateFeeWorker{
		store:    store,
		payments: payments,
		logger:   logger,
		interval: interval,
		fee:      fee,
	}
}

// Start begins the late fee loop. Blocks until ctx is cancelled.
func (w *LateFeeWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("late fee worker started",
		slog.Duration("interval", w.interval),
		slog.String("fee", w.fee.String()),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("late fee worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *LateFeeWorker) sweep(ctx context.Context) {
	overdue, err := w.store.Payments().ListOverdueRent(ctx, time.Now())
	if err != nil {
		w.logger.Error("failed to list overdue rent",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, p := range overdue {
		if err := w.payments.ApplyLateFee(ctx, p.ID, w.fee); err != nil {
			w.logger.Error("failed to apply late fee",
				slog.String("payment_id", p.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
