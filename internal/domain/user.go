package domain

import (
	"context"
	"time"
)

// Role is a user's position inside an organization.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleClient     Role = "client"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleTechnician, RoleClient:
		return true
	}
	return false
}

// SubscriptionStatus mirrors the payment gateway's subscription state.
type SubscriptionStatus string

const (
	SubscriptionTrial    SubscriptionStatus = "TRIAL"
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
	SubscriptionExpired  SubscriptionStatus = "EXPIRED"
)

// SubscriptionTier controls which interview questions a user can see.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierBasic      SubscriptionTier = "basic"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

// Rank orders tiers from free (1) to enterprise (4).
func (t SubscriptionTier) Rank() int {
	switch t {
	case TierBasic:
		return 2
	case TierPro:
		return 3
	case TierEnterprise:
		return 4
	default:
		return 1
	}
}

// Feature names a credit-gated action.
type Feature string

const (
	FeatureReport    Feature = "report"
	FeatureExport    Feature = "export"
	FeatureQuickFill Feature = "quickfill"
)

// User represents an account holder. Users are never hard-deleted.
type User struct {
	ID                        string             `json:"id"`
	Email                     string             `json:"email"`
	Name                      string             `json:"name"`
	PasswordHash              string             `json:"-"`
	Role                      Role               `json:"role"`
	OrganizationID            *string            `json:"organizationId,omitempty"`
	SubscriptionStatus        SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionTier          SubscriptionTier   `json:"subscriptionTier"`
	TrialEndsAt               *time.Time         `json:"trialEndsAt,omitempty"`
	IsInvitedTeamMember       bool               `json:"isInvitedTeamMember"`
	CreditsRemaining          int                `json:"creditsRemaining"`
	LifetimeCreditsUsed       int                `json:"lifetimeCreditsUsed"`
	QuickFillCreditsRemaining int                `json:"quickFillCreditsRemaining"`
	LifetimeQuickFillUsed     int                `json:"lifetimeQuickFillUsed"`
	StripeCustomerID          string             `json:"-"`
	CreatedAt                 time.Time          `json:"createdAt"`
	UpdatedAt                 time.Time          `json:"updatedAt"`
}

// HasUnlimited reports whether the user bypasses credit counters at time now.
func (u *User) HasUnlimited(now time.Time) bool {
	if u.SubscriptionStatus == SubscriptionActive || u.IsInvitedTeamMember {
		return true
	}
	if u.SubscriptionStatus == SubscriptionTrial && u.TrialEndsAt != nil && !now.After(*u.TrialEndsAt) {
		return true
	}
	return false
}

// Remaining returns the counter that gates feature f.
func (u *User) Remaining(f Feature) int {
	if f == FeatureQuickFill {
		return u.QuickFillCreditsRemaining
	}
	return u.CreditsRemaining
}

// SubscriptionChange is applied by billing webhooks.
type SubscriptionChange struct {
	UserID           string
	Status           SubscriptionStatus
	Tier             SubscriptionTier
	TrialEndsAt      *time.Time
	StripeCustomerID string
	AddCredits       int
	AddQuickFill     int
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// ConsumeCredit decrements the feature counter and increments the lifetime
	// counter in one statement. It does not re-check the remaining value.
	ConsumeCredit(ctx context.Context, id string, f Feature) error
	GrantCredits(ctx context.Context, id string, credits, quickFill int) error
	ApplySubscription(ctx context.Context, change SubscriptionChange) error
	ListByOrganization(ctx context.Context, orgID string) ([]*User, error)
	UnlinkFromOrganization(ctx context.Context, orgID, userID string) error
}

// Organization groups users that share team membership.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrganizationRepository defines data access for organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
}

// AddonPurchaseRepository records one-off credit pack purchases so that a
// redelivered payment event grants credits only once.
type AddonPurchaseRepository interface {
	// Record returns false when sessionID was already recorded.
	Record(ctx context.Context, userID, sessionID string, credits, quickFill int) (bool, error)
}
