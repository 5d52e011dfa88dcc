package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
)

func member(id string, role domain.Role, org string) *domain.User {
	u := trialUser(id, 0, 0)
	u.Role = role
	if org != "" {
		u.OrganizationID = ptr(org)
	}
	return u
}

func TestTeamMembersAndRemoval(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo(
		member("owner", domain.RoleOwner, "org1"),
		member("admin", domain.RoleAdmin, "org1"),
		member("tech", domain.RoleTechnician, "org1"),
		member("outsider", domain.RoleTechnician, "org2"),
		member("solo", domain.RoleOwner, ""),
	)
	auditRepo := &memAuditRepo{}
	s := NewTeamService(users, security.NewAuthorizationService(nil), audit.NewLogger(auditRepo, nil), nil)
	admin := &auth.Session{UserID: "admin", Role: domain.RoleAdmin, OrganizationID: "org1"}

	members, err := s.Members(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	solo, err := s.Members(ctx, &auth.Session{UserID: "solo", Role: domain.RoleOwner})
	require.NoError(t, err)
	assert.NotNil(t, solo)
	assert.Empty(t, solo)

	assert.ErrorIs(t, s.Remove(ctx, admin, "outsider"), domain.ErrNotFound)
	assert.ErrorIs(t, s.Remove(ctx, admin, "admin"), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.Remove(ctx, admin, "owner"), domain.ErrForbidden)

	tech := &auth.Session{UserID: "tech", Role: domain.RoleTechnician, OrganizationID: "org1"}
	assert.ErrorIs(t, s.Remove(ctx, tech, "admin"), domain.ErrForbidden)

	require.NoError(t, s.Remove(ctx, admin, "tech"))
	members, err = s.Members(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, []string{"remove_member user"}, auditRepo.actions())
}

func TestTeamUsesCurrentMembershipNotSessionClaims(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo(
		member("owner", domain.RoleOwner, "org1"),
		member("admin", domain.RoleAdmin, "org1"),
		member("tech", domain.RoleTechnician, "org1"),
	)
	s := NewTeamService(users, security.NewAuthorizationService(nil), nil, nil)
	owner := &auth.Session{UserID: "owner", Role: domain.RoleOwner, OrganizationID: "org1"}
	// Claims minted before the admin was removed still name org1.
	staleAdmin := &auth.Session{UserID: "admin", Role: domain.RoleAdmin, OrganizationID: "org1"}

	require.NoError(t, s.Remove(ctx, owner, "admin"))

	members, err := s.Members(ctx, staleAdmin)
	require.NoError(t, err)
	assert.Empty(t, members)

	assert.ErrorIs(t, s.Remove(ctx, staleAdmin, "tech"), domain.ErrNotFound)
	tech, err := users.GetByID(ctx, "tech")
	require.NoError(t, err)
	require.NotNil(t, tech.OrganizationID)
	assert.Equal(t, "org1", *tech.OrganizationID)

	_, err = s.Members(ctx, &auth.Session{UserID: "deleted", Role: domain.RoleOwner, OrganizationID: "org1"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTeamDemotedMemberCannotRemove(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo(
		member("owner", domain.RoleOwner, "org1"),
		member("lead", domain.RoleTechnician, "org1"),
		member("tech", domain.RoleTechnician, "org1"),
	)
	s := NewTeamService(users, security.NewAuthorizationService(nil), nil, nil)
	// Session issued while lead was still an admin.
	stale := &auth.Session{UserID: "lead", Role: domain.RoleAdmin, OrganizationID: "org1"}

	assert.ErrorIs(t, s.Remove(ctx, stale, "tech"), domain.ErrForbidden)
}
