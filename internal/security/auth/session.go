package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

// SessionCookie is the cookie carrying the session token for browser clients.
const SessionCookie = "session"

// Session identifies the caller of an authenticated request.
type Session struct {
	UserID         string
	Email          string
	Role           domain.Role
	OrganizationID string
}

// SessionResolver derives a Session from a request.
type SessionResolver interface {
	Resolve(r *http.Request) (*Session, error)
}

// JWTResolver resolves sessions from a bearer token, falling back to the
// session cookie.
type JWTResolver struct {
	tokens *TokenManager
}

func NewJWTResolver(tokens *TokenManager) *JWTResolver {
	return &JWTResolver{tokens: tokens}
}

// Resolve implements SessionResolver.
func (j *JWTResolver) Resolve(r *http.Request) (*Session, error) {
	raw := ""
	if header := r.Header.Get("Authorization"); header != "" {
		token, err := ExtractToken(header)
		if err != nil {
			return nil, domain.ErrUnauthorized
		}
		raw = token
	} else if c, err := r.Cookie(SessionCookie); err == nil {
		raw = c.Value
	}
	if raw == "" {
		return nil, domain.ErrUnauthorized
	}

	claims, err := j.tokens.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	return &Session{
		UserID:         claims.UserID,
		Email:          claims.Email,
		Role:           claims.Role,
		OrganizationID: claims.OrganizationID,
	}, nil
}

// UserLookup loads the current user row behind a session.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// CurrentUserResolver wraps a resolver and replaces the role and organization
// carried by the token with the user's current values, so removals and
// demotions apply before the token expires.
type CurrentUserResolver struct {
	next  SessionResolver
	users UserLookup
}

func NewCurrentUserResolver(next SessionResolver, users UserLookup) *CurrentUserResolver {
	return &CurrentUserResolver{next: next, users: users}
}

// Resolve implements SessionResolver.
func (c *CurrentUserResolver) Resolve(r *http.Request) (*Session, error) {
	s, err := c.next.Resolve(r)
	if err != nil {
		return nil, err
	}
	u, err := c.users.GetByID(r.Context(), s.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	s.Email = u.Email
	s.Role = u.Role
	s.OrganizationID = ""
	if u.OrganizationID != nil {
		s.OrganizationID = *u.OrganizationID
	}
	return s, nil
}

// IsUnauthorized reports whether err should surface as 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}
