package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/propertylease/internal/security/middleware"
	"github.com/yourorg/propertylease/internal/service"
)

// PaymentHandler handles payment ledger endpoints
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentHandler{
		payments: payments,
		logger:   logger,
	}
}

// Submit handles POST /api/payments (tenant electronic payment)
func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req service.SubmitPaymentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode payment request",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	payment, err := h.payments.SubmitPayment(r.Context(), caller, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}

// RecordManual handles POST /api/payments/manual (owner cash/check entry)
func (h *PaymentHandler) RecordManual(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req service.RecordManualPaymentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	payment, err := h.payments.RecordManualPayment(r.Context(), caller, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, payment)
}

// RefundRequest carries a refund amount and reason
type RefundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// Refund handles POST /api/payments/{id}/refund
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	paymentID := r.PathValue("id")
	if paymentID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "payment id is required"})
		return
	}

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	payment, err := h.payments.RefundPayment(r.Context(), caller, paymentID, req.Amount, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

// Get handles GET /api/payments/{id}
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payment)
}

// ListMine handles GET /api/payments (tenant history)
func (h *PaymentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	payments, err := h.payments.ListMyPayments(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payments)
}

// ListOwner handles GET /api/owner/payments (all units the owner holds)
func (h *PaymentHandler) ListOwner(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	payments, err := h.payments.ListOwnerPayments(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, payments)
}
