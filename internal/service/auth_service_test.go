package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
)

func newAuthService() (*AuthService, *memUserRepo, *auth.TokenManager) {
	users := newMemUserRepo()
	tokens := auth.NewTokenManager("secret", "")
	return NewAuthService(users, &memOrgRepo{}, tokens, time.Hour, nil), users, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s, users, tokens := newAuthService()

	res, err := s.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Name: "Alice", Password: "Password123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, domain.RoleOwner, res.User.Role)
	assert.Equal(t, domain.SubscriptionTrial, res.User.SubscriptionStatus)
	assert.Equal(t, SignupCredits, res.User.CreditsRemaining)
	assert.Equal(t, SignupQuickFillCredit, res.User.QuickFillCreditsRemaining)
	require.NotNil(t, res.User.OrganizationID)
	require.NotNil(t, res.User.TrialEndsAt)
	assert.WithinDuration(t, time.Now().Add(TrialPeriod), *res.User.TrialEndsAt, time.Minute)

	claims, err := tokens.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	stored, err := users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "Password123", stored.PasswordHash)

	login, err := s.Login(ctx, "alice@example.com", "Password123")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
	assert.NotEmpty(t, login.Token)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newAuthService()

	_, err := s.Register(ctx, RegisterInput{Email: "bob@example.com", Name: "Bob", Password: "Password123"})
	require.NoError(t, err)

	_, err = s.Register(ctx, RegisterInput{Email: "BOB@example.com", Name: "Bobby", Password: "Password456"})
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "email already registered", conflict.Message)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestRegisterValidatesInput(t *testing.T) {
	s, _, _ := newAuthService()
	cases := map[string]RegisterInput{
		"missing name":   {Email: "a@example.com", Password: "Password123"},
		"bad email":      {Email: "not-an-email", Name: "A", Password: "Password123"},
		"short password": {Email: "a@example.com", Name: "A", Password: "short"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Register(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newAuthService()
	_, err := s.Register(ctx, RegisterInput{Email: "carol@example.com", Name: "Carol", Password: "Password123"})
	require.NoError(t, err)

	_, errWrong := s.Login(ctx, "carol@example.com", "wrong-password")
	_, errUnknown := s.Login(ctx, "nobody@example.com", "Password123")
	require.ErrorIs(t, errWrong, domain.ErrUnauthorized)
	require.ErrorIs(t, errUnknown, domain.ErrUnauthorized)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newAuthService()
	res, err := s.Register(ctx, RegisterInput{Email: "dan@example.com", Name: "Dan", Password: "Password123"})
	require.NoError(t, err)

	err = s.ChangePassword(ctx, res.User.ID, "wrong-password", "NewPassword1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, s.ChangePassword(ctx, res.User.ID, "Password123", "NewPassword1"))

	_, err = s.Login(ctx, "dan@example.com", "Password123")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = s.Login(ctx, "dan@example.com", "NewPassword1")
	assert.NoError(t, err)
}
