package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/propertylease/internal/security/middleware"
	"github.com/yourorg/propertylease/internal/service"
)

// UnitHandler handles building and unit management endpoints
type UnitHandler struct {
	units  *service.UnitService
	logger *slog.Logger
}

// NewUnitHandler creates a new unit handler
func NewUnitHandler(units *service.UnitService, logger *slog.Logger) *UnitHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnitHandler{
		units:  units,
		logger: logger,
	}
}

// CreateBuilding handles POST /api/buildings
func (h *UnitHandler) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req service.CreateBuildingInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	building, err := h.units.CreateBuilding(r.Context(), caller, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, building)
}

// ListBuildings handles GET /api/buildings
func (h *UnitHandler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	buildings, err := h.units.ListBuildings(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, buildings)
}

// CreateUnit handles POST /api/units
func (h *UnitHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req service.CreateUnitInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode unit request",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request"})
		return
	}

	unit, err := h.units.CreateUnit(r.Context(), caller, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, unit)
}

// ListUnits handles GET /api/buildings/{id}/units
func (h *UnitHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	units, err := h.units.ListUnits(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, units)
}

// RoomCodeResponse returns a freshly generated access code
type RoomCodeResponse struct {
	UnitID   string `json:"unit_id"`
	RoomCode string `json:"room_code"`
}

// RegenerateRoomCode handles POST /api/units/{id}/room-code. The previous
// code stops working immediately.
func (h *UnitHandler) RegenerateRoomCode(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	unitID := r.PathValue("id")
	code, err := h.units.RegenerateRoomCode(r.Context(), caller, unitID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RoomCodeResponse{UnitID: unitID, RoomCode: code})
}

// ReleaseLease handles POST /api/units/{id}/release (owner vacates a unit)
func (h *UnitHandler) ReleaseLease(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCallerFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.units.ReleaseLease(r.Context(), caller, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "unit released"})
}
