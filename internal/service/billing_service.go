package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/observability/metrics"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/config"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/database"
)

// Stripe event types the service reacts to.
const (
	eventCheckoutCompleted   = "checkout.session.completed"
	eventSubscriptionCreated = "customer.subscription.created"
	eventSubscriptionUpdated = "customer.subscription.updated"
	eventSubscriptionDeleted = "customer.subscription.deleted"
	eventInvoicePaymentFail  = "invoice.payment_failed"
)

// BillingStatus is the caller's credit position.
type BillingStatus struct {
	Unlimited                 bool                      `json:"unlimited"`
	SubscriptionStatus        domain.SubscriptionStatus `json:"subscriptionStatus"`
	SubscriptionTier          domain.SubscriptionTier   `json:"subscriptionTier"`
	TrialEndsAt               *time.Time                `json:"trialEndsAt,omitempty"`
	CreditsRemaining          int                       `json:"creditsRemaining"`
	LifetimeCreditsUsed       int                       `json:"lifetimeCreditsUsed"`
	QuickFillCreditsRemaining int                       `json:"quickFillCreditsRemaining"`
	LifetimeQuickFillUsed     int                       `json:"lifetimeQuickFillUsed"`
}

// BillingService gates credit-metered features and applies payment events.
type BillingService struct {
	users    domain.UserRepository
	addons   domain.AddonPurchaseRepository
	caps     *database.Capabilities
	settings func() config.StripeSettings
	logger   *slog.Logger
	now      func() time.Time
}

// NewBillingService creates a billing service. caps may be nil, in which
// case the addon purchase table is assumed present.
func NewBillingService(
	users domain.UserRepository,
	addons domain.AddonPurchaseRepository,
	caps *database.Capabilities,
	logger *slog.Logger,
) *BillingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingService{
		users:    users,
		addons:   addons,
		caps:     caps,
		settings: config.Stripe,
		logger:   logger,
		now:      time.Now,
	}
}

// Status reports the caller's counters and whether they are unlimited.
func (s *BillingService) Status(ctx context.Context, userID string) (*BillingStatus, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &BillingStatus{
		Unlimited:                 u.HasUnlimited(s.now()),
		SubscriptionStatus:        u.SubscriptionStatus,
		SubscriptionTier:          u.SubscriptionTier,
		TrialEndsAt:               u.TrialEndsAt,
		CreditsRemaining:          u.CreditsRemaining,
		LifetimeCreditsUsed:       u.LifetimeCreditsUsed,
		QuickFillCreditsRemaining: u.QuickFillCreditsRemaining,
		LifetimeQuickFillUsed:     u.LifetimeQuickFillUsed,
	}, nil
}

// Check loads the user and fails with an UpgradeRequiredError when f cannot
// be used. It never mutates counters.
func (s *BillingService) Check(ctx context.Context, userID string, f domain.Feature) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.HasUnlimited(s.now()) {
		return u, nil
	}
	if remaining := u.Remaining(f); remaining <= 0 {
		metrics.ObserveCreditDecision(string(f), "rejected")
		s.logger.Info("credit gate rejected request",
			slog.String("user_id", userID),
			slog.String("feature", string(f)),
		)
		return nil, &domain.UpgradeRequiredError{Feature: f, Remaining: remaining}
	}
	return u, nil
}

// Consume charges one unit of f after the gated action succeeded. Unlimited
// users are not charged. The decrement is not re-checked against zero, so
// two requests racing past Check can both consume.
func (s *BillingService) Consume(ctx context.Context, u *domain.User, f domain.Feature) error {
	if u.HasUnlimited(s.now()) {
		metrics.ObserveCreditDecision(string(f), "unlimited")
		return nil
	}
	if err := s.users.ConsumeCredit(ctx, u.ID, f); err != nil {
		return fmt.Errorf("consume %s credit: %w", f, err)
	}
	metrics.ObserveCreditDecision(string(f), "consumed")
	return nil
}

// VerifyWebhook checks the Stripe-Signature header and decodes the event.
func (s *BillingService) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	settings := s.settings()
	if !settings.Configured() {
		return stripe.Event{}, fmt.Errorf("stripe webhooks: %w", domain.ErrNotConfigured)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, settings.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		metrics.ObserveWebhook("unknown", "bad_signature")
		return stripe.Event{}, domain.Invalid("Stripe-Signature", "webhook signature verification failed")
	}
	return event, nil
}

// HandleEvent applies a verified payment event. Unknown types are ignored.
func (s *BillingService) HandleEvent(ctx context.Context, event stripe.Event) error {
	eventType := string(event.Type)
	if event.Data == nil {
		metrics.ObserveWebhook(eventType, "malformed")
		return domain.Invalid("data", "event has no payload")
	}

	var err error
	switch eventType {
	case eventCheckoutCompleted:
		var cs stripe.CheckoutSession
		if err = json.Unmarshal(event.Data.Raw, &cs); err == nil {
			err = s.checkoutCompleted(ctx, &cs)
		}
	case eventSubscriptionCreated, eventSubscriptionUpdated, eventSubscriptionDeleted:
		var sub stripe.Subscription
		if err = json.Unmarshal(event.Data.Raw, &sub); err == nil {
			err = s.subscriptionChanged(ctx, eventType, &sub)
		}
	case eventInvoicePaymentFail:
		var inv stripe.Invoice
		if err = json.Unmarshal(event.Data.Raw, &inv); err == nil {
			err = s.paymentFailed(ctx, &inv)
		}
	default:
		metrics.ObserveWebhook(eventType, "ignored")
		return nil
	}

	if err != nil {
		metrics.ObserveWebhook(eventType, "error")
		s.logger.Error("failed to apply billing event",
			slog.String("event_id", event.ID),
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
		return err
	}
	metrics.ObserveWebhook(eventType, "applied")
	s.logger.Info("billing event applied",
		slog.String("event_id", event.ID),
		slog.String("type", eventType),
	)
	return nil
}

func (s *BillingService) checkoutCompleted(ctx context.Context, cs *stripe.CheckoutSession) error {
	userID := cs.ClientReferenceID
	if userID == "" {
		userID = cs.Metadata["userId"]
	}
	if userID == "" {
		return domain.Invalid("client_reference_id", "checkout session has no user")
	}
	customerID := ""
	if cs.Customer != nil {
		customerID = cs.Customer.ID
	}

	if cs.Mode == stripe.CheckoutSessionModeSubscription {
		return s.users.ApplySubscription(ctx, domain.SubscriptionChange{
			UserID:           userID,
			Status:           domain.SubscriptionActive,
			Tier:             parseTier(cs.Metadata["tier"]),
			StripeCustomerID: customerID,
		})
	}

	credits, _ := strconv.Atoi(cs.Metadata["credits"])
	quickFill, _ := strconv.Atoi(cs.Metadata["quickFillCredits"])
	if credits <= 0 && quickFill <= 0 {
		return domain.Invalid("metadata", "addon checkout carries no credits")
	}

	if s.caps == nil || s.caps.Has(ctx, database.TableAddonPurchases) {
		fresh, err := s.addons.Record(ctx, userID, cs.ID, credits, quickFill)
		switch {
		case errors.Is(err, domain.ErrUnavailable):
			if s.caps != nil {
				s.caps.MarkMissing(database.TableAddonPurchases)
			}
			s.degradedGrant(cs.ID)
		case err != nil:
			return err
		case !fresh:
			s.logger.Info("addon purchase already applied", slog.String("session_id", cs.ID))
			return nil
		}
	} else {
		s.degradedGrant(cs.ID)
	}
	return s.users.GrantCredits(ctx, userID, credits, quickFill)
}

func (s *BillingService) degradedGrant(sessionID string) {
	metrics.ObserveDegraded(database.TableAddonPurchases)
	s.logger.Warn("granting addon credits without purchase ledger",
		slog.String("session_id", sessionID),
	)
}

func (s *BillingService) subscriptionChanged(ctx context.Context, eventType string, sub *stripe.Subscription) error {
	if sub.Customer == nil || sub.Customer.ID == "" {
		return domain.Invalid("customer", "subscription has no customer")
	}
	u, err := s.users.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		return err
	}

	change := domain.SubscriptionChange{
		UserID: u.ID,
		Status: mapSubscriptionStatus(sub.Status),
		Tier:   subscriptionTier(sub),
	}
	if eventType == eventSubscriptionDeleted {
		change.Status = domain.SubscriptionCanceled
		change.Tier = domain.TierFree
	}
	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0).UTC()
		change.TrialEndsAt = &t
	}
	return s.users.ApplySubscription(ctx, change)
}

func (s *BillingService) paymentFailed(ctx context.Context, inv *stripe.Invoice) error {
	if inv.Customer == nil || inv.Customer.ID == "" {
		return domain.Invalid("customer", "invoice has no customer")
	}
	u, err := s.users.GetByStripeCustomerID(ctx, inv.Customer.ID)
	if err != nil {
		return err
	}
	return s.users.ApplySubscription(ctx, domain.SubscriptionChange{
		UserID: u.ID,
		Status: domain.SubscriptionPastDue,
	})
}

func mapSubscriptionStatus(st stripe.SubscriptionStatus) domain.SubscriptionStatus {
	switch st {
	case stripe.SubscriptionStatusActive:
		return domain.SubscriptionActive
	case stripe.SubscriptionStatusTrialing:
		return domain.SubscriptionTrial
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return domain.SubscriptionPastDue
	case stripe.SubscriptionStatusCanceled:
		return domain.SubscriptionCanceled
	case stripe.SubscriptionStatusIncompleteExpired:
		return domain.SubscriptionExpired
	}
	return ""
}

func subscriptionTier(sub *stripe.Subscription) domain.SubscriptionTier {
	if t := parseTier(sub.Metadata["tier"]); t != "" {
		return t
	}
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price != nil {
				if t := parseTier(item.Price.LookupKey); t != "" {
					return t
				}
			}
		}
	}
	return ""
}

// parseTier accepts a bare tier or a lookup key such as "pro_monthly".
func parseTier(raw string) domain.SubscriptionTier {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexAny(raw, "_-"); i > 0 {
		raw = raw[:i]
	}
	switch t := domain.SubscriptionTier(raw); t {
	case domain.TierFree, domain.TierBasic, domain.TierPro, domain.TierEnterprise:
		return t
	}
	return ""
}
