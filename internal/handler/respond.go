package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yourorg/propertylease/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Reference string `json:"reference,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain error kinds onto HTTP statuses. The reference number
// rides along when the failure left a durable ledger row behind.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.ErrKind(err) {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindConflict:
		status = http.StatusConflict
	case domain.KindGatewayFailure:
		status = http.StatusBadGateway
	case domain.KindInvariantViolation:
		status = http.StatusUnprocessableEntity
	}

	msg := "internal error"
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Reference: domain.ErrReference(err)})
}
