package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/auth"
)

func inspectionSchema(fields ...domain.FormField) domain.Blob[domain.FormSchema] {
	if len(fields) == 0 {
		fields = []domain.FormField{
			{Key: "site_safe", Label: "Site safe", Type: "checkbox", Required: true},
			{Key: "category", Label: "Water category", Type: "select", Options: []string{"1", "2", "3"}},
		}
	}
	return domain.NewBlob(domain.FormSchema{Fields: fields})
}

func newFormFixture() (*FormService, *memFormRepo) {
	forms := newMemFormRepo()
	reports := newMemReportRepo(&domain.Report{ID: "r1", UserID: "u1", Title: "Kitchen"})
	return NewFormService(forms, reports, nil, nil, nil), forms
}

func TestTemplateVersioning(t *testing.T) {
	ctx := context.Background()
	s, _ := newFormFixture()

	tpl, err := s.CreateTemplate(ctx, "u1", &domain.FormTemplate{Name: "Site inspection", Schema: inspectionSchema()})
	require.NoError(t, err)
	assert.Equal(t, 1, tpl.Version)
	assert.True(t, tpl.IsActive)

	renamed, err := s.UpdateTemplate(ctx, "u1", tpl.ID, &domain.FormTemplate{Name: "Site check", Schema: inspectionSchema(), IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, 1, renamed.Version, "name change keeps the version")

	changed, err := s.UpdateTemplate(ctx, "u1", tpl.ID, &domain.FormTemplate{
		Name:     "Site check",
		Schema:   inspectionSchema(domain.FormField{Key: "notes", Label: "Notes", Type: "textarea"}),
		IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, changed.Version)

	_, err = s.UpdateTemplate(ctx, "u2", tpl.ID, &domain.FormTemplate{Name: "x", Schema: inspectionSchema()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTemplateValidation(t *testing.T) {
	s, _ := newFormFixture()
	cases := []*domain.FormTemplate{
		{Name: "", Schema: inspectionSchema()},
		{Name: "Empty", Schema: domain.NewBlob(domain.FormSchema{})},
		{Name: "Dup", Schema: inspectionSchema(
			domain.FormField{Key: "a", Type: "text"},
			domain.FormField{Key: "a", Type: "text"},
		)},
		{Name: "Bad type", Schema: inspectionSchema(domain.FormField{Key: "a", Type: "colour"})},
		{Name: "Select", Schema: inspectionSchema(domain.FormField{Key: "a", Type: "select"})},
	}
	for _, tpl := range cases {
		_, err := s.CreateTemplate(context.Background(), "u1", tpl)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, tpl.Name)
	}
}

func TestSubmissionLifecycle(t *testing.T) {
	ctx := context.Background()
	s, forms := newFormFixture()
	tpl, err := s.CreateTemplate(ctx, "u1", &domain.FormTemplate{Name: "Site inspection", Schema: inspectionSchema()})
	require.NoError(t, err)

	draft, err := s.CreateSubmission(ctx, "u1", SubmissionInput{TemplateID: tpl.ID, ReportID: ptr("r1")})
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionDraft, draft.Status)
	assert.Equal(t, 1, draft.TemplateVersion)

	_, err = s.UpdateSubmission(ctx, "u1", draft.ID, SubmissionInput{Status: domain.SubmissionSubmitted})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "required answers missing")

	_, err = s.UpdateSubmission(ctx, "u1", draft.ID, SubmissionInput{
		Status:  domain.SubmissionSubmitted,
		Answers: domain.FormAnswers{"site_safe": true, "category": "4"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "select value outside options")

	submitted, err := s.UpdateSubmission(ctx, "u1", draft.ID, SubmissionInput{
		Status:  domain.SubmissionSubmitted,
		Answers: domain.FormAnswers{"site_safe": true, "category": "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionSubmitted, submitted.Status)

	_, err = s.UpdateSubmission(ctx, "u1", draft.ID, SubmissionInput{Status: domain.SubmissionSigned})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "signing happens through a link")

	require.NoError(t, forms.CreateSignature(ctx, &domain.Signature{ID: "sig1", SubmissionID: draft.ID, SignerName: "Jane", TokenID: "jti-1"}))
	_, err = s.UpdateSubmission(ctx, "u1", draft.ID, SubmissionInput{Status: domain.SubmissionDraft})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "signed submissions are frozen")

	var buf bytes.Buffer
	require.NoError(t, s.RenderSubmission(ctx, &auth.Session{UserID: "u1", Role: domain.RoleOwner}, draft.ID, &buf))
	assert.Contains(t, buf.String(), "Jane")
}

func TestSubmissionRejectsInactiveTemplateAndForeignReport(t *testing.T) {
	ctx := context.Background()
	s, _ := newFormFixture()
	tpl, err := s.CreateTemplate(ctx, "u1", &domain.FormTemplate{Name: "Site inspection", Schema: inspectionSchema()})
	require.NoError(t, err)

	_, err = s.CreateSubmission(ctx, "u1", SubmissionInput{TemplateID: tpl.ID, ReportID: ptr("r2")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.CreateSubmission(ctx, "u2", SubmissionInput{TemplateID: tpl.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.UpdateTemplate(ctx, "u1", tpl.ID, &domain.FormTemplate{Name: tpl.Name, Schema: inspectionSchema(), IsActive: false})
	require.NoError(t, err)
	_, err = s.CreateSubmission(ctx, "u1", SubmissionInput{TemplateID: tpl.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOrganizationSubmissionVisibility(t *testing.T) {
	ctx := context.Background()
	s, forms := newFormFixture()
	forms.orgOf = map[string]string{"u1": "org1", "mgr": "org1", "peer": "org1", "rival": "org2"}

	tpl, err := s.CreateTemplate(ctx, "u1", &domain.FormTemplate{Name: "Site inspection", Schema: inspectionSchema()})
	require.NoError(t, err)
	sub, err := s.CreateSubmission(ctx, "u1", SubmissionInput{TemplateID: tpl.ID, Answers: domain.FormAnswers{"site_safe": true}})
	require.NoError(t, err)

	manager := &auth.Session{UserID: "mgr", Role: domain.RoleManager, OrganizationID: "org1"}
	got, err := s.GetSubmission(ctx, manager, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)
	list, err := s.ListSubmissions(ctx, manager, domain.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	var buf bytes.Buffer
	require.NoError(t, s.RenderSubmission(ctx, manager, sub.ID, &buf))
	assert.Contains(t, buf.String(), "Site inspection")

	technician := &auth.Session{UserID: "peer", Role: domain.RoleTechnician, OrganizationID: "org1"}
	_, err = s.GetSubmission(ctx, technician, sub.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "same organization without manager rights")
	list, err = s.ListSubmissions(ctx, technician, domain.ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	rival := &auth.Session{UserID: "rival", Role: domain.RoleAdmin, OrganizationID: "org2"}
	_, err = s.GetSubmission(ctx, rival, sub.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.UpdateSubmission(ctx, "mgr", sub.ID, SubmissionInput{Status: domain.SubmissionSubmitted, Answers: domain.FormAnswers{"site_safe": true}})
	assert.ErrorIs(t, err, domain.ErrNotFound, "organization access is read-only")
}
