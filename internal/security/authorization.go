package security

import (
	"fmt"
	"log/slog"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermReadRecords        Permission = "read_records"
	PermWriteRecords       Permission = "write_records"
	PermDeleteRecords      Permission = "delete_records"
	PermManageInvoices     Permission = "manage_invoices"
	PermManageForms        Permission = "manage_forms"
	PermManageTeam         Permission = "manage_team"
	PermManageIntegrations Permission = "manage_integrations"
	PermViewBilling        Permission = "view_billing"
	PermViewPortal         Permission = "view_portal"
	// PermReadOrganization lets a member read records created by anyone in
	// the same organization.
	PermReadOrganization Permission = "read_organization"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleOwner: {
		PermReadRecords, PermWriteRecords, PermDeleteRecords, PermManageInvoices,
		PermManageForms, PermManageTeam, PermManageIntegrations, PermViewBilling,
		PermReadOrganization,
	},
	domain.RoleAdmin: {
		PermReadRecords, PermWriteRecords, PermDeleteRecords, PermManageInvoices,
		PermManageForms, PermManageTeam, PermManageIntegrations, PermViewBilling,
		PermReadOrganization,
	},
	domain.RoleManager: {
		PermReadRecords, PermWriteRecords, PermDeleteRecords, PermManageInvoices,
		PermManageForms, PermViewBilling, PermReadOrganization,
	},
	domain.RoleTechnician: {
		PermReadRecords, PermWriteRecords, PermViewBilling,
	},
	domain.RoleClient: {
		PermViewPortal,
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
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission returns domain.ErrForbidden when role lacks permission.
func (as *AuthorizationService) ValidatePermission(role domain.Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("%w: %s role cannot %s", domain.ErrForbidden, role, permission)
	}
	return nil
}

// ValidateMemberRemoval checks that actor may unlink target from actor's
// organization. Owners and admins may remove anyone except themselves and
// the organization owner.
func (as *AuthorizationService) ValidateMemberRemoval(actorID string, actorRole domain.Role, actorOrg string, target *domain.User) error {
	if err := as.ValidatePermission(actorRole, PermManageTeam); err != nil {
		return err
	}
	if actorOrg == "" || target.OrganizationID == nil || *target.OrganizationID != actorOrg {
		as.logger.Warn("member removal outside organization",
			slog.String("actor_id", actorID),
			slog.String("target_id", target.ID),
		)
		return domain.ErrNotFound
	}
	if target.ID == actorID {
		return domain.Invalid("id", "cannot remove yourself")
	}
	if target.Role == domain.RoleOwner {
		return fmt.Errorf("%w: the organization owner cannot be removed", domain.ErrForbidden)
	}
	return nil
}
