package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

// LinkPurpose scopes a link token to one kind of public page.
type LinkPurpose string

const (
	PurposeSignature LinkPurpose = "signature"
	PurposePortal    LinkPurpose = "portal"
)

// LinkClaims is the payload of a public link token. Subject is the id of the
// resource the link grants access to.
type LinkClaims struct {
	Purpose LinkPurpose `json:"purpose"`
	OwnerID string      `json:"owner_id"`
	jwt.RegisteredClaims
}

// IssuedLink is a signed link token with its identifiers.
type IssuedLink struct {
	Token     string    `json:"token"`
	JTI       string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueLink signs a link token for subjectID owned by ownerID.
func (tm *TokenManager) IssueLink(purpose LinkPurpose, ownerID, subjectID string, ttl time.Duration) (*IssuedLink, error) {
	if subjectID == "" || ownerID == "" {
		return nil, fmt.Errorf("subject and owner required")
	}
	now := tm.now()
	claims := LinkClaims{
		Purpose: purpose,
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    tm.issuer,
		},
	}
	signed, err := tm.sign(claims)
	if err != nil {
		return nil, err
	}
	return &IssuedLink{Token: signed, JTI: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// ParseLink validates a link token for the expected purpose. Any failure is
// reported as domain.ErrTokenInvalid.
func (tm *TokenManager) ParseLink(tokenString string, purpose LinkPurpose) (*LinkClaims, error) {
	claims := &LinkClaims{}
	if err := tm.parse(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if claims.Purpose != purpose || claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: wrong purpose", domain.ErrTokenInvalid)
	}
	return claims, nil
}

// Remaining returns how long the link stays valid.
func (c *LinkClaims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
