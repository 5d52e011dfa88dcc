package security

import (
	"errors"
	"testing"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

func TestRolePermissions(t *testing.T) {
	as := NewAuthorizationService(nil)
	tests := []struct {
		role domain.Role
		perm Permission
		want bool
	}{
		{domain.RoleOwner, PermManageTeam, true},
		{domain.RoleAdmin, PermManageIntegrations, true},
		{domain.RoleManager, PermManageTeam, false},
		{domain.RoleTechnician, PermWriteRecords, true},
		{domain.RoleTechnician, PermDeleteRecords, false},
		{domain.RoleClient, PermReadRecords, false},
		{domain.Role("ghost"), PermReadRecords, false},
	}
	for _, tt := range tests {
		if got := as.HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
	if err := as.ValidatePermission(domain.RoleClient, PermWriteRecords); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestValidateMemberRemoval(t *testing.T) {
	as := NewAuthorizationService(nil)
	org := "org-1"
	other := "org-2"
	tech := &domain.User{ID: "tech", Role: domain.RoleTechnician, OrganizationID: &org}
	owner := &domain.User{ID: "owner", Role: domain.RoleOwner, OrganizationID: &org}
	stranger := &domain.User{ID: "stranger", Role: domain.RoleTechnician, OrganizationID: &other}
	self := &domain.User{ID: "admin", Role: domain.RoleAdmin, OrganizationID: &org}

	if err := as.ValidateMemberRemoval("admin", domain.RoleAdmin, org, tech); err != nil {
		t.Fatalf("admin should remove technician: %v", err)
	}
	if err := as.ValidateMemberRemoval("mgr", domain.RoleManager, org, tech); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("manager removal should be forbidden, got %v", err)
	}
	if err := as.ValidateMemberRemoval("admin", domain.RoleAdmin, org, stranger); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign member should look missing, got %v", err)
	}
	if err := as.ValidateMemberRemoval("admin", domain.RoleAdmin, org, owner); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("owner removal should be forbidden, got %v", err)
	}
	if err := as.ValidateMemberRemoval("admin", domain.RoleAdmin, org, self); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("self removal should be invalid, got %v", err)
	}
}

func TestRequiredPermission(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   Permission
		needed bool
	}{
		{"GET", "/api/clients", PermReadRecords, true},
		{"POST", "/api/reports", PermWriteRecords, true},
		{"PATCH", "/api/reports/r1/status", PermWriteRecords, true},
		{"DELETE", "/api/clients/c1", PermDeleteRecords, true},
		{"GET", "/api/invoices/i1", PermManageInvoices, true},
		{"POST", "/api/invoices/i1/payments", PermManageInvoices, true},
		{"GET", "/api/forms/templates", PermReadRecords, true},
		{"PUT", "/api/forms/templates/t1", PermManageForms, true},
		{"GET", "/api/forms/submissions/s1", PermReadRecords, true},
		{"POST", "/api/integrations/xero/connect", PermManageIntegrations, true},
		{"GET", "/api/billing/status", PermViewBilling, true},
		{"GET", "/api/team/members", PermReadRecords, true},
		{"DELETE", "/api/team/members/u2", PermManageTeam, true},
		{"POST", "/api/portal/invitations", PermWriteRecords, true},
		{"GET", "/api/me", "", false},
		{"POST", "/api/auth/change-password", "", false},
		{"POST", "/api/notifications/n1/read", "", false},
		{"GET", "/ws/notifications", "", false},
	}
	for _, tt := range tests {
		got, needed := RequiredPermission(tt.method, tt.path)
		if got != tt.want || needed != tt.needed {
			t.Errorf("RequiredPermission(%s %s) = (%q, %v), want (%q, %v)", tt.method, tt.path, got, needed, tt.want, tt.needed)
		}
	}
}

func TestTechnicianCannotReachInvoicesOrDelete(t *testing.T) {
	as := NewAuthorizationService(nil)
	for _, route := range [][2]string{{"GET", "/api/invoices"}, {"DELETE", "/api/reports/r1"}, {"DELETE", "/api/team/members/u2"}} {
		perm, _ := RequiredPermission(route[0], route[1])
		if as.HasPermission(domain.RoleTechnician, perm) {
			t.Errorf("technician should not reach %s %s", route[0], route[1])
		}
	}
	if !as.HasPermission(domain.RoleManager, PermReadOrganization) || as.HasPermission(domain.RoleTechnician, PermReadOrganization) {
		t.Fatal("organization read is for managers and above")
	}
}
