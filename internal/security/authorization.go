package security

import (
	"log/slog"

	"github.com/yourorg/propertylease/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermSubmitPayment       Permission = "submit_payment"
	PermRecordManualPayment Permission = "record_manual_payment"
	PermRefundPayment       Permission = "refund_payment"
	PermViewPayment         Permission = "view_payment"
	PermListOwnPayments     Permission = "list_own_payments"
	PermListOwnerPayments   Permission = "list_owner_payments"
	PermManageUnits         Permission = "manage_units"
	PermRegenerateRoomCode  Permission = "regenerate_room_code"
	PermManageBuildings     Permission = "manage_buildings"
	PermViewAuditLog        Permission = "view_audit_log"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleAdmin: {
		PermSubmitPayment,
		PermRecordManualPayment,
		PermRefundPayment,
		PermViewPayment,
		PermListOwnPayments,
		PermListOwnerPayments,
		PermManageUnits,
		PermRegenerateRoomCode,
		PermManageBuildings,
		PermViewAuditLog,
	},
	domain.RoleOwner: {
		PermRecordManualPayment,
		PermRefundPayment,
		PermViewPayment,
		PermListOwnerPayments,
		PermManageUnits,
		PermRegenerateRoomCode,
		PermManageBuildings,
		PermViewAuditLog,
	},
	domain.RoleTenant: {
		PermSubmitPayment,
		PermViewPayment,
		PermListOwnPayments,
	},
}

// AuthorizationService handles role-level authorization checks. Record-level
// checks (does this payment belong to you) live on OwnershipResolver.
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission validates that a role has a specific permission
func (as *AuthorizationService) ValidatePermission(role domain.Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return domain.Ef(domain.KindForbidden, "%s role cannot %s", role, permission)
	}
	return nil
}

// GetRolePermissions returns all permissions for a role
func (as *AuthorizationService) GetRolePermissions(role domain.Role) []Permission {
	return RolePermissions[role]
}
