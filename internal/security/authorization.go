package security

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/pawfam/backend/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermCreateResource Permission = "create_resource"
	PermReadOwn        Permission = "read_own"
	PermCancelOwn      Permission = "cancel_own"
	PermEditOwn        Permission = "edit_own"
	PermDeleteOwn      Permission = "delete_own"
	PermUpdateStatus   Permission = "update_status"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleCustomer: {
		PermCreateResource,
		PermReadOwn,
		PermCancelOwn,
		PermEditOwn,
		PermDeleteOwn,
	},
	domain.RoleVendor: {
		PermCreateResource,
		PermReadOwn,
		PermCancelOwn,
		PermEditOwn,
		PermDeleteOwn,
		PermUpdateStatus,
	},
}

// AuthorizationService handles authorization checks
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
	return slices.Contains(RolePermissions[role], permission)
}

// ValidatePermission returns domain.ErrForbidden unless the actor's role grants permission
func (as *AuthorizationService) ValidatePermission(actor domain.Actor, permission Permission) error {
	if !as.HasPermission(actor.Role, permission) {
		as.logger.Warn("permission denied",
			slog.String("user_id", actor.UserID),
			slog.String("role", string(actor.Role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("%w: %s role cannot %s", domain.ErrForbidden, actor.Role, permission)
	}
	return nil
}
