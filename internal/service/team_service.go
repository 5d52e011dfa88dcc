package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
)

// TeamService lists and removes organization members. Removal unlinks the
// user from the organization; the account itself is kept.
type TeamService struct {
	users  domain.UserRepository
	authz  *security.AuthorizationService
	audit  *audit.Logger
	logger *slog.Logger
}

func NewTeamService(users domain.UserRepository, authz *security.AuthorizationService, auditLog *audit.Logger, logger *slog.Logger) *TeamService {
	if logger == nil {
		logger = slog.Default()
	}
	if authz == nil {
		authz = security.NewAuthorizationService(logger)
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(nil, logger)
	}
	return &TeamService{users: users, authz: authz, audit: auditLog, logger: logger}
}

// actor reloads the caller so that role and organization reflect the
// current membership rather than the claims minted at login.
func (s *TeamService) actor(ctx context.Context, sess *auth.Session) (*domain.User, string, error) {
	u, err := s.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "", domain.ErrUnauthorized
	}
	if err != nil {
		return nil, "", err
	}
	org := ""
	if u.OrganizationID != nil {
		org = *u.OrganizationID
	}
	return u, org, nil
}

// Members returns the caller's organization members. Users without an
// organization see an empty list.
func (s *TeamService) Members(ctx context.Context, sess *auth.Session) ([]*domain.User, error) {
	_, org, err := s.actor(ctx, sess)
	if err != nil {
		return nil, err
	}
	if org == "" {
		return []*domain.User{}, nil
	}
	out, err := s.users.ListByOrganization(ctx, org)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.User{}
	}
	return out, nil
}

// Remove unlinks memberID from the caller's organization.
func (s *TeamService) Remove(ctx context.Context, sess *auth.Session, memberID string) error {
	actor, org, err := s.actor(ctx, sess)
	if err != nil {
		return err
	}
	target, err := s.users.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	if err := s.authz.ValidateMemberRemoval(actor.ID, actor.Role, org, target); err != nil {
		return err
	}
	if err := s.users.UnlinkFromOrganization(ctx, org, target.ID); err != nil {
		return err
	}
	s.logger.Info("team member removed",
		slog.String("organization_id", org),
		slog.String("user_id", target.ID),
		slog.String("removed_by", actor.ID),
	)
	s.audit.Record(ctx, actor.ID, "remove_member", "user", target.ID,
		map[string]any{"organizationId": org}, map[string]any{"organizationId": nil})
	return nil
}
