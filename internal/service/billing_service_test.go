package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/config"
)

const testWebhookSecret = "whsec_test"

func newBillingService(users *memUserRepo, addons *memAddonRepo) *BillingService {
	s := NewBillingService(users, addons, nil, nil)
	s.settings = func() config.StripeSettings {
		return config.StripeSettings{WebhookSecret: testWebhookSecret}
	}
	return s
}

func TestCheckRejectsExhaustedCredits(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo(trialUser("u1", 0, 1))
	s := newBillingService(users, &memAddonRepo{})

	_, err := s.Check(ctx, "u1", domain.FeatureReport)
	var upgrade *domain.UpgradeRequiredError
	require.ErrorAs(t, err, &upgrade)
	assert.Equal(t, domain.FeatureReport, upgrade.Feature)
	assert.ErrorIs(t, err, domain.ErrUpgradeRequired)

	u, err := s.Check(ctx, "u1", domain.FeatureQuickFill)
	require.NoError(t, err)
	assert.Equal(t, 1, u.QuickFillCreditsRemaining)
}

func TestCheckAndConsume(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo(trialUser("u1", 2, 0))
	s := newBillingService(users, &memAddonRepo{})

	u, err := s.Check(ctx, "u1", domain.FeatureExport)
	require.NoError(t, err)
	assert.Zero(t, users.consumed[domain.FeatureExport], "check must not spend credits")

	require.NoError(t, s.Consume(ctx, u, domain.FeatureExport))
	after, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, after.CreditsRemaining)
	assert.Equal(t, 1, after.LifetimeCreditsUsed)
}

func TestUnlimitedUsersAreNotCharged(t *testing.T) {
	ctx := context.Background()
	trialEnds := time.Now().Add(time.Hour)
	active := trialUser("active", 0, 0)
	active.SubscriptionStatus = domain.SubscriptionActive
	trial := trialUser("trial", 0, 0)
	trial.SubscriptionStatus = domain.SubscriptionTrial
	trial.TrialEndsAt = &trialEnds
	invited := trialUser("invited", 0, 0)
	invited.IsInvitedTeamMember = true

	users := newMemUserRepo(active, trial, invited)
	s := newBillingService(users, &memAddonRepo{})

	for _, id := range []string{"active", "trial", "invited"} {
		u, err := s.Check(ctx, id, domain.FeatureReport)
		require.NoError(t, err, id)
		require.NoError(t, s.Consume(ctx, u, domain.FeatureReport), id)
	}
	assert.Zero(t, users.consumed[domain.FeatureReport])

	status, err := s.Status(ctx, "trial")
	require.NoError(t, err)
	assert.True(t, status.Unlimited)
}

func TestExpiredTrialIsGated(t *testing.T) {
	ended := time.Now().Add(-time.Hour)
	u := trialUser("u1", 0, 0)
	u.SubscriptionStatus = domain.SubscriptionTrial
	u.TrialEndsAt = &ended
	s := newBillingService(newMemUserRepo(u), &memAddonRepo{})

	_, err := s.Check(context.Background(), "u1", domain.FeatureReport)
	assert.ErrorIs(t, err, domain.ErrUpgradeRequired)
}

func signedEvent(t *testing.T, payload string) ([]byte, string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Payload, signed.Header
}

func TestWebhookAddonPurchaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo(trialUser("u1", 0, 0))
	s := newBillingService(users, &memAddonRepo{})

	payload, header := signedEvent(t, `{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"object": "checkout.session",
			"mode": "payment",
			"client_reference_id": "u1",
			"metadata": {"credits": "5", "quickFillCredits": "2"}
		}}
	}`)

	for range 2 {
		event, err := s.VerifyWebhook(payload, header)
		require.NoError(t, err)
		require.NoError(t, s.HandleEvent(ctx, event))
	}

	u, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, u.CreditsRemaining)
	assert.Equal(t, 2, u.QuickFillCreditsRemaining)
}

func TestWebhookAddonWithoutLedgerStillGrants(t *testing.T) {
	ctx := context.Background()
	users := newMemUserRepo(trialUser("u1", 0, 0))
	s := newBillingService(users, &memAddonRepo{err: domain.ErrUnavailable})

	payload, header := signedEvent(t, `{
		"id": "evt_2",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_2", "object": "checkout.session", "mode": "payment",
			"client_reference_id": "u1", "metadata": {"credits": "3"}}}
	}`)
	event, err := s.VerifyWebhook(payload, header)
	require.NoError(t, err)
	require.NoError(t, s.HandleEvent(ctx, event))

	u, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, u.CreditsRemaining)
}

func TestWebhookSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	u := trialUser("u1", 0, 0)
	users := newMemUserRepo(u)
	s := newBillingService(users, &memAddonRepo{})

	apply := func(payload string) {
		t.Helper()
		body, header := signedEvent(t, payload)
		event, err := s.VerifyWebhook(body, header)
		require.NoError(t, err)
		require.NoError(t, s.HandleEvent(ctx, event))
	}

	apply(`{"id": "evt_3", "object": "event", "type": "checkout.session.completed",
		"data": {"object": {"id": "cs_3", "object": "checkout.session", "mode": "subscription",
			"client_reference_id": "u1", "customer": "cus_1", "metadata": {"tier": "pro"}}}}`)
	got, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, got.SubscriptionStatus)
	assert.Equal(t, domain.TierPro, got.SubscriptionTier)
	assert.Equal(t, "cus_1", got.StripeCustomerID)

	apply(`{"id": "evt_4", "object": "event", "type": "invoice.payment_failed",
		"data": {"object": {"id": "in_1", "object": "invoice", "customer": "cus_1"}}}`)
	got, err = users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionPastDue, got.SubscriptionStatus)

	apply(`{"id": "evt_5", "object": "event", "type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "object": "subscription", "customer": "cus_1", "status": "canceled"}}}`)
	got, err = users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCanceled, got.SubscriptionStatus)
	assert.Equal(t, domain.TierFree, got.SubscriptionTier)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s := newBillingService(newMemUserRepo(), &memAddonRepo{})
	payload, _ := signedEvent(t, `{"id": "evt_6", "object": "event", "type": "ping"}`)

	_, err := s.VerifyWebhook(payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWebhookNotConfigured(t *testing.T) {
	s := newBillingService(newMemUserRepo(), &memAddonRepo{})
	s.settings = func() config.StripeSettings { return config.StripeSettings{} }

	_, err := s.VerifyWebhook([]byte(`{}`), "")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestParseTier(t *testing.T) {
	assert.Equal(t, domain.TierPro, parseTier("pro_monthly"))
	assert.Equal(t, domain.TierEnterprise, parseTier("Enterprise"))
	assert.Equal(t, domain.TierBasic, parseTier("basic-annual"))
	assert.Equal(t, domain.SubscriptionTier(""), parseTier("gold"))
}
