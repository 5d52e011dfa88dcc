package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

const userColumns = `id, email, name, password_hash, role, organization_id,
	subscription_status, subscription_tier, trial_ends_at, is_invited_team_member,
	credits_remaining, lifetime_credits_used, quick_fill_credits_remaining, lifetime_quick_fill_used,
	stripe_customer_id, created_at, updated_at`

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

func scanUser(s scanner) (*domain.User, error) {
	u := &domain.User{}
	err := s.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.Role,
		&u.OrganizationID,
		&u.SubscriptionStatus,
		&u.SubscriptionTier,
		&u.TrialEndsAt,
		&u.IsInvitedTeamMember,
		&u.CreditsRemaining,
		&u.LifetimeCreditsUsed,
		&u.QuickFillCreditsRemaining,
		&u.LifetimeQuickFillUsed,
		&u.StripeCustomerID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

// Create creates a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, role, organization_id,
			subscription_status, subscription_tier, trial_ends_at, is_invited_team_member,
			credits_remaining, quick_fill_credits_remaining)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.OrganizationID,
		user.SubscriptionStatus,
		user.SubscriptionTier,
		user.TrialEndsAt,
		user.IsInvitedTeamMember,
		user.CreditsRemaining,
		user.QuickFillCreditsRemaining,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return writeErr(err, "user")
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, readErr(err, "user")
	}
	return u, nil
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, readErr(err, "user")
	}
	return u, nil
}

// GetByStripeCustomerID retrieves the user linked to a payment customer
func (r *PostgresUserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1 AND stripe_customer_id <> ''`, customerID))
	if err != nil {
		return nil, readErr(err, "user")
	}
	return u, nil
}

// UpdatePassword replaces the password hash
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectOne(res, "user")
}

// ConsumeCredit decrements the counter for f without re-checking it. Two
// concurrent requests that both passed the caller's check can drive the
// counter below zero.
func (r *PostgresUserRepository) ConsumeCredit(ctx context.Context, id string, f domain.Feature) error {
	query := `
		UPDATE users
		SET credits_remaining = credits_remaining - 1,
		    lifetime_credits_used = lifetime_credits_used + 1,
		    updated_at = now()
		WHERE id = $1
	`
	if f == domain.FeatureQuickFill {
		query = `
			UPDATE users
			SET quick_fill_credits_remaining = quick_fill_credits_remaining - 1,
			    lifetime_quick_fill_used = lifetime_quick_fill_used + 1,
			    updated_at = now()
			WHERE id = $1
		`
	}
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("failed to consume credit",
			slog.String("user_id", id),
			slog.String("feature", string(f)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to consume credit: %w", err)
	}
	return expectOne(res, "user")
}

// GrantCredits adds to both credit counters
func (r *PostgresUserRepository) GrantCredits(ctx context.Context, id string, credits, quickFill int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET credits_remaining = credits_remaining + $1,
		    quick_fill_credits_remaining = quick_fill_credits_remaining + $2,
		    updated_at = now()
		WHERE id = $3
	`, credits, quickFill, id)
	if err != nil {
		return fmt.Errorf("failed to grant credits: %w", err)
	}
	return expectOne(res, "user")
}

// ApplySubscription applies a billing change. Empty fields leave the
// current value in place.
func (r *PostgresUserRepository) ApplySubscription(ctx context.Context, c domain.SubscriptionChange) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET subscription_status = COALESCE(NULLIF($1, ''), subscription_status),
		    subscription_tier = COALESCE(NULLIF($2, ''), subscription_tier),
		    trial_ends_at = COALESCE($3, trial_ends_at),
		    stripe_customer_id = COALESCE(NULLIF($4, ''), stripe_customer_id),
		    credits_remaining = credits_remaining + $5,
		    quick_fill_credits_remaining = quick_fill_credits_remaining + $6,
		    updated_at = now()
		WHERE id = $7
	`,
		string(c.Status),
		string(c.Tier),
		c.TrialEndsAt,
		c.StripeCustomerID,
		c.AddCredits,
		c.AddQuickFill,
		c.UserID,
	)
	if err != nil {
		r.logger.Error("failed to apply subscription",
			slog.String("user_id", c.UserID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to apply subscription: %w", err)
	}
	return expectOne(res, "user")
}

// ListByOrganization lists current members of an organization
func (r *PostgresUserRepository) ListByOrganization(ctx context.Context, orgID string) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE organization_id = $1 ORDER BY created_at`, orgID)
	if err != nil {
		r.logger.Error("failed to list users by organization",
			slog.String("organization_id", orgID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UnlinkFromOrganization clears a member's organization. The user row and
// everything it owns are kept.
func (r *PostgresUserRepository) UnlinkFromOrganization(ctx context.Context, orgID, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET organization_id = NULL, is_invited_team_member = false, updated_at = now()
		WHERE id = $1 AND organization_id = $2
	`, userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to unlink user: %w", err)
	}
	return expectOne(res, "team member")
}
