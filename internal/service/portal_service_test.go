package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
)

type portalFixture struct {
	svc     *PortalService
	invites *memPortalRepo
	mail    *recordingMailer
	tokens  *auth.TokenManager
}

func newPortalFixture(mail *recordingMailer) *portalFixture {
	users := newMemUserRepo(trialUser("u1", 0, 0), trialUser("u2", 0, 0))
	clients := newMemClientRepo(
		&domain.Client{ID: "c1", UserID: "u1", Name: "Acme Strata", Email: "strata@acme.test"},
		&domain.Client{ID: "c2", UserID: "u1", Name: "No Email"},
		&domain.Client{ID: "c3", UserID: "u2", Name: "Someone else", Email: "x@y.test"},
	)
	reports := newMemReportRepo(
		&domain.Report{ID: "r1", UserID: "u1", Title: "Unit 4 water damage"},
		&domain.Report{ID: "r2", UserID: "u2", Title: "Foreign"},
	)
	invites := &memPortalRepo{}
	tokens := auth.NewTokenManager("test-secret", "test")
	var m Mailer
	if mail != nil {
		m = mail
	}
	svc := NewPortalService(invites, reports, clients, users, tokens, m, nil, "https://app.example.com", 0, nil)
	return &portalFixture{svc: svc, invites: invites, mail: mail, tokens: tokens}
}

func TestInviteEmailsTheClient(t *testing.T) {
	ctx := context.Background()
	f := newPortalFixture(&recordingMailer{})

	inv, err := f.svc.Invite(ctx, "u1", InviteInput{ClientID: "c1", ReportID: "r1", SendEmail: true})
	require.NoError(t, err)
	assert.True(t, inv.EmailSent)
	assert.Equal(t, "https://app.example.com/portal/"+inv.Token, inv.URL)
	assert.Equal(t, "strata@acme.test", inv.Email)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), inv.ExpiresAt, time.Minute)

	require.Len(t, f.mail.sent, 1)
	msg := f.mail.sent[0]
	assert.Equal(t, []string{"strata@acme.test"}, msg.To)
	assert.Contains(t, msg.HTML, inv.URL)
	assert.Contains(t, msg.Text, inv.URL)
	assert.Equal(t, "User u1 shared a report with you", msg.Subject)
	assert.Contains(t, msg.Text, "Unit 4 water damage")
}

func TestInviteSurvivesMailerFailure(t *testing.T) {
	ctx := context.Background()
	f := newPortalFixture(&recordingMailer{err: fmt.Errorf("email: %w", domain.ErrNotConfigured)})

	inv, err := f.svc.Invite(ctx, "u1", InviteInput{ClientID: "c1", ReportID: "r1", SendEmail: true})
	require.NoError(t, err)
	assert.False(t, inv.EmailSent)
	assert.NotEmpty(t, inv.Token)

	f = newPortalFixture(&recordingMailer{err: errors.New("smtp down")})
	inv, err = f.svc.Invite(ctx, "u1", InviteInput{ClientID: "c1", ReportID: "r1", SendEmail: true})
	require.NoError(t, err)
	assert.False(t, inv.EmailSent)

	f = newPortalFixture(nil)
	inv, err = f.svc.Invite(ctx, "u1", InviteInput{ClientID: "c1", ReportID: "r1", SendEmail: true})
	require.NoError(t, err)
	assert.False(t, inv.EmailSent)
}

func TestInviteRejectsForeignReferences(t *testing.T) {
	ctx := context.Background()
	f := newPortalFixture(nil)

	_, err := f.svc.Invite(ctx, "u1", InviteInput{ClientID: "c3", ReportID: "r1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.Invite(ctx, "u1", InviteInput{ClientID: "c1", ReportID: "r2"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.svc.Invite(ctx, "u1", InviteInput{ClientID: "c2", ReportID: "r1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.invites.byID)
}

func TestPortalViewMarksAccepted(t *testing.T) {
	ctx := context.Background()
	f := newPortalFixture(nil)
	inv, err := f.svc.Invite(ctx, "u1", InviteInput{ClientID: "c1", ReportID: "r1"})
	require.NoError(t, err)

	view, err := f.svc.View(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, "r1", view.Report.ID)
	assert.Equal(t, "Acme Strata", view.ClientName)
	first := f.invites.byID[inv.ID].AcceptedAt
	require.NotNil(t, first)

	_, err = f.svc.View(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, first, f.invites.byID[inv.ID].AcceptedAt, "accepted once")
}

func TestPortalViewRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	f := newPortalFixture(nil)
	inv, err := f.svc.Invite(ctx, "u1", InviteInput{ClientID: "c1", ReportID: "r1"})
	require.NoError(t, err)

	sig, err := f.tokens.IssueLink(auth.PurposeSignature, "u1", inv.ID, time.Hour)
	require.NoError(t, err)
	_, err = f.svc.View(ctx, sig.Token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	forged, err := f.tokens.IssueLink(auth.PurposePortal, "u2", inv.ID, time.Hour)
	require.NoError(t, err)
	_, err = f.svc.View(ctx, forged.Token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = f.svc.View(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	f.invites.byID[inv.ID].ExpiresAt = time.Now().Add(time.Hour)
	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.svc.View(ctx, inv.Token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
