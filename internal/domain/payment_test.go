package domain

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to PaymentStatus }{
		{StatusPending, StatusProcessing},
		{StatusPending, StatusCompleted},
		{StatusPending, StatusFailed},
		{StatusPending, StatusCancelled},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusConfirmed},
		{StatusCompleted, StatusRefunded},
		{StatusCompleted, StatusPartiallyRefunded},
		{StatusCompleted, StatusDisputed},
		{StatusConfirmed, StatusChargeback},
		{StatusPartiallyRefunded, StatusRefunded},
		{StatusPartiallyRefunded, StatusPartiallyRefunded},
		{StatusDisputed, StatusChargeback},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to PaymentStatus }{
		{StatusPending, StatusRefunded},
		{StatusCompleted, StatusPending},
		{StatusCompleted, StatusFailed},
		{StatusFailed, StatusCompleted},
		{StatusRefunded, StatusCompleted},
		{StatusRefunded, StatusPartiallyRefunded},
		{StatusCancelled, StatusProcessing},
		{StatusChargeback, StatusRefunded},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

func TestSetStatusStampsProcessedAt(t *testing.T) {
	now := time.Now()
	p := &Payment{Status: StatusPending}

	p.SetStatus(StatusProcessing, now)
	if p.ProcessedAt != nil {
		t.Fatalf("processing should not stamp processed_at")
	}

	p.SetStatus(StatusCompleted, now)
	if p.ProcessedAt == nil || !p.ProcessedAt.Equal(now) {
		t.Fatalf("completed should stamp processed_at, got %v", p.ProcessedAt)
	}

	// A later transition must not move the original stamp.
	later := now.Add(time.Hour)
	p.SetStatus(StatusPartiallyRefunded, later)
	if !p.ProcessedAt.Equal(now) {
		t.Fatalf("processed_at moved on refund, got %v", p.ProcessedAt)
	}
}

func TestPaymentAmounts(t *testing.T) {
	p := &Payment{Amount: 120000, LateFee: 5000, RefundAmount: 60000}
	if got := p.TotalAmount(); got != 125000 {
		t.Fatalf("TotalAmount = %d, want 125000", got)
	}
	if got := p.NetAmount(); got != 65000 {
		t.Fatalf("NetAmount = %d, want 65000", got)
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Now()
	due := now.Add(-72 * time.Hour)

	p := &Payment{Status: StatusPending, DueDate: &due}
	if !p.IsOverdue(now) {
		t.Fatalf("pending payment past due date should be overdue")
	}
	if got := p.DaysOverdue(now); got != 3 {
		t.Fatalf("DaysOverdue = %d, want 3", got)
	}

	p.Status = StatusCompleted
	if p.IsOverdue(now) {
		t.Fatalf("completed payment should not be overdue")
	}

	p.Status = StatusPending
	p.DueDate = nil
	if p.IsOverdue(now) {
		t.Fatalf("payment without due date should not be overdue")
	}
	if got := p.DaysOverdue(now); got != 0 {
		t.Fatalf("DaysOverdue without due date = %d, want 0", got)
	}
}

func TestIsElectronic(t *testing.T) {
	paper := []PaymentMethod{MethodCheck, MethodCash, MethodMoneyOrder}
	for _, m := range paper {
		if m.IsElectronic() {
			t.Fatalf("%s should not be electronic", m)
		}
	}
	electronic := []PaymentMethod{MethodCreditCard, MethodACH, MethodBankTransfer, MethodZelle}
	for _, m := range electronic {
		if !m.IsElectronic() {
			t.Fatalf("%s should be electronic", m)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusCompleted.IsSuccessful() || !StatusConfirmed.IsSuccessful() {
		t.Fatalf("completed and confirmed are success states")
	}
	if StatusPartiallyRefunded.IsSuccessful() {
		t.Fatalf("partially refunded is not a success state")
	}
	if !StatusPending.IsInProgress() || !StatusProcessing.IsInProgress() {
		t.Fatalf("pending and processing are in-progress states")
	}
	for _, s := range []PaymentStatus{StatusRefunded, StatusChargeback, StatusCancelled, StatusFailed} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	if StatusCompleted.IsTerminal() {
		t.Fatalf("completed still allows refunds, not terminal")
	}
}
