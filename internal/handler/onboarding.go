package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/propertylease/internal/service"
)

// OnboardingHandler handles room-code tenant registration
type OnboardingHandler struct {
	onboarding *service.OnboardingService
	units      *service.UnitService
	logger     *slog.Logger
}

// NewOnboardingHandler creates a new onboarding handler
func NewOnboardingHandler(onboarding *service.OnboardingService, units *service.UnitService, logger *slog.Logger) *OnboardingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnboardingHandler{
		onboarding: onboarding,
		units:      units,
		logger:     logger,
	}
}

// Register handles POST /api/tenants/register
func (h *OnboardingHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.RegisterTenantInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode tenant registration",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	result, err := h.onboarding.RegisterViaRoomCode(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ValidateRoomCodeRequest carries the code to check
type ValidateRoomCodeRequest struct {
	RoomCode string `json:"room_code"`
}

// ValidateRoomCodeResponse reports whether the code maps to an available unit
type ValidateRoomCodeResponse struct {
	Valid bool `json:"valid"`
}

// ValidateRoomCode handles POST /api/tenants/validate-room-code. It only
// says yes or no; the unit behind the code stays hidden until signup.
func (h *OnboardingHandler) ValidateRoomCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ValidateRoomCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	valid, err := h.units.ValidateRoomCode(r.Context(), req.RoomCode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ValidateRoomCodeResponse{Valid: valid})
}
