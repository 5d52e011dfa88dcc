package service

import (
	"context"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/llm"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/infrastructure/mailer"
)

type memUserRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.User
	consumed map[domain.Feature]int
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	m := &memUserRepo{byID: map[string]*domain.User{}, consumed: map[domain.Feature]int{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return domain.ErrAlreadyExists
		}
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByStripeCustomerID(_ context.Context, customerID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.StripeCustomerID != "" && u.StripeCustomerID == customerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memUserRepo) ConsumeCredit(_ context.Context, id string, f domain.Feature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if f == domain.FeatureQuickFill {
		u.QuickFillCreditsRemaining--
		u.LifetimeQuickFillUsed++
	} else {
		u.CreditsRemaining--
		u.LifetimeCreditsUsed++
	}
	m.consumed[f]++
	return nil
}

func (m *memUserRepo) GrantCredits(_ context.Context, id string, credits, quickFill int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.CreditsRemaining += credits
	u.QuickFillCreditsRemaining += quickFill
	return nil
}

func (m *memUserRepo) ApplySubscription(_ context.Context, c domain.SubscriptionChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[c.UserID]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status != "" {
		u.SubscriptionStatus = c.Status
	}
	if c.Tier != "" {
		u.SubscriptionTier = c.Tier
	}
	if c.TrialEndsAt != nil {
		u.TrialEndsAt = c.TrialEndsAt
	}
	if c.StripeCustomerID != "" {
		u.StripeCustomerID = c.StripeCustomerID
	}
	u.CreditsRemaining += c.AddCredits
	u.QuickFillCreditsRemaining += c.AddQuickFill
	return nil
}

func (m *memUserRepo) ListByOrganization(_ context.Context, orgID string) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, id := range slices.Sorted(maps.Keys(m.byID)) {
		u := m.byID[id]
		if u.OrganizationID != nil && *u.OrganizationID == orgID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memUserRepo) UnlinkFromOrganization(_ context.Context, orgID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok || u.OrganizationID == nil || *u.OrganizationID != orgID {
		return domain.ErrNotFound
	}
	u.OrganizationID = nil
	return nil
}

type memOrgRepo struct {
	orgs map[string]*domain.Organization
}

func (m *memOrgRepo) Create(_ context.Context, org *domain.Organization) error {
	if m.orgs == nil {
		m.orgs = map[string]*domain.Organization{}
	}
	m.orgs[org.ID] = org
	return nil
}

func (m *memOrgRepo) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	if o, ok := m.orgs[id]; ok {
		return o, nil
	}
	return nil, domain.ErrNotFound
}

type memAddonRepo struct {
	seen map[string]bool
	err  error
}

func (m *memAddonRepo) Record(_ context.Context, _, sessionID string, _, _ int) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[sessionID] {
		return false, nil
	}
	m.seen[sessionID] = true
	return true, nil
}

type memClientRepo struct {
	byID map[string]*domain.Client
}

func newMemClientRepo(clients ...*domain.Client) *memClientRepo {
	m := &memClientRepo{byID: map[string]*domain.Client{}}
	for _, c := range clients {
		m.byID[c.ID] = c
	}
	return m
}

func (m *memClientRepo) Create(_ context.Context, c *domain.Client) error {
	for _, existing := range m.byID {
		if existing.UserID == c.UserID && c.Email != "" && existing.Email == c.Email {
			return domain.ErrAlreadyExists
		}
	}
	m.byID[c.ID] = c
	return nil
}

func (m *memClientRepo) Get(_ context.Context, ownerID, id string) (*domain.Client, error) {
	if c, ok := m.byID[id]; ok && c.UserID == ownerID {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memClientRepo) List(_ context.Context, ownerID string, _ domain.ListOptions) ([]*domain.Client, error) {
	var out []*domain.Client
	for _, c := range m.byID {
		if c.UserID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memClientRepo) Update(_ context.Context, c *domain.Client) error {
	if existing, ok := m.byID[c.ID]; !ok || existing.UserID != c.UserID {
		return domain.ErrNotFound
	}
	m.byID[c.ID] = c
	return nil
}

func (m *memClientRepo) Delete(_ context.Context, ownerID, id string) error {
	if c, ok := m.byID[id]; !ok || c.UserID != ownerID {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memReportRepo struct {
	byID map[string]*domain.Report
}

func newMemReportRepo(reports ...*domain.Report) *memReportRepo {
	m := &memReportRepo{byID: map[string]*domain.Report{}}
	for _, r := range reports {
		m.byID[r.ID] = r
	}
	return m
}

func (m *memReportRepo) get(ownerID, id string) (*domain.Report, error) {
	if r, ok := m.byID[id]; ok && r.UserID == ownerID {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memReportRepo) Create(_ context.Context, r *domain.Report) error {
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *memReportRepo) Get(_ context.Context, ownerID, id string) (*domain.Report, error) {
	r, err := m.get(ownerID, id)
	if err != nil {
		return nil, err
	}
	cp := *r
	return &cp, nil
}

func (m *memReportRepo) List(_ context.Context, ownerID string, _ domain.ListOptions) ([]*domain.Report, error) {
	var out []*domain.Report
	for _, r := range m.byID {
		if r.UserID == ownerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReportRepo) Update(_ context.Context, r *domain.Report) error {
	if _, err := m.get(r.UserID, r.ID); err != nil {
		return err
	}
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *memReportRepo) UpdateStatus(_ context.Context, ownerID, id string, status domain.ReportStatus) error {
	r, err := m.get(ownerID, id)
	if err != nil {
		return err
	}
	r.Status = status
	return nil
}

func (m *memReportRepo) UpdateNIRData(_ context.Context, ownerID, id string, readings domain.MoistureReadings, scope domain.ScopeItems) error {
	r, err := m.get(ownerID, id)
	if err != nil {
		return err
	}
	r.MoistureReadings = domain.NewBlob(readings)
	r.ScopeItems = domain.NewBlob(scope)
	return nil
}

func (m *memReportRepo) SaveNarrative(_ context.Context, ownerID, id string, n domain.Narrative) error {
	r, err := m.get(ownerID, id)
	if err != nil {
		return err
	}
	r.Narrative = domain.NewBlob(n)
	r.Status = domain.ReportGenerated
	return nil
}

func (m *memReportRepo) AppendPhoto(_ context.Context, ownerID, id string, p domain.Photo) error {
	r, err := m.get(ownerID, id)
	if err != nil {
		return err
	}
	r.Photos = domain.NewBlob(append(slices.Clone(r.Photos.Data), p))
	return nil
}

func (m *memReportRepo) Delete(_ context.Context, ownerID, id string) error {
	if _, err := m.get(ownerID, id); err != nil {
		return err
	}
	delete(m.byID, id)
	return nil
}

func (m *memReportRepo) GetForPortal(_ context.Context, id string) (*domain.Report, error) {
	if r, ok := m.byID[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type memInvoiceRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.Invoice
	sequences map[string]int64
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{byID: map[string]*domain.Invoice{}, sequences: map[string]int64{}}
}

func (m *memInvoiceRepo) CreateWithNumber(_ context.Context, inv *domain.Invoice, number func(seq int64) string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := inv.UserID + "/" + time.Date(inv.Year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	m.sequences[key]++
	inv.Sequence = m.sequences[key]
	inv.Number = number(inv.Sequence)
	cp := *inv
	m.byID[inv.ID] = &cp
	return nil
}

func (m *memInvoiceRepo) Get(_ context.Context, ownerID, id string) (*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.byID[id]; ok && inv.UserID == ownerID {
		cp := *inv
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memInvoiceRepo) List(_ context.Context, ownerID string, _ domain.ListOptions) ([]*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Invoice
	for _, inv := range m.byID {
		if inv.UserID == ownerID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *memInvoiceRepo) Update(_ context.Context, inv *domain.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byID[inv.ID]; !ok || existing.UserID != inv.UserID {
		return domain.ErrNotFound
	}
	cp := *inv
	m.byID[inv.ID] = &cp
	return nil
}

func (m *memInvoiceRepo) RecordPayment(_ context.Context, ownerID, id string, amount int64) (*domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.byID[id]
	if !ok || inv.UserID != ownerID {
		return nil, domain.ErrNotFound
	}
	inv.AmountPaid += amount
	inv.AmountDue = inv.TotalIncGST - inv.AmountPaid
	if inv.AmountDue <= 0 {
		inv.Status = domain.InvoicePaid
	}
	cp := *inv
	return &cp, nil
}

func (m *memInvoiceRepo) Delete(_ context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.byID[id]; !ok || inv.UserID != ownerID {
		return domain.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memInvoiceRepo) SumByStatus(_ context.Context, ownerID string) (map[string]int64, map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	totals, counts := map[string]int64{}, map[string]int{}
	for _, inv := range m.byID {
		if inv.UserID == ownerID {
			totals[string(inv.Status)] += inv.TotalIncGST
			counts[string(inv.Status)]++
		}
	}
	return totals, counts, nil
}

func (m *memInvoiceRepo) CountOverdue(_ context.Context, ownerID string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, inv := range m.byID {
		if inv.UserID == ownerID && inv.Status == domain.InvoiceSent && inv.DueDate.Before(now) {
			n++
		}
	}
	return n, nil
}

func (m *memInvoiceRepo) MonthlyPaid(_ context.Context, ownerID string, since time.Time) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for _, inv := range m.byID {
		if inv.UserID == ownerID && inv.Status == domain.InvoicePaid && !inv.IssueDate.Before(since) {
			out[inv.IssueDate.Format("2006-01")] += inv.AmountPaid
		}
	}
	return out, nil
}

type memSessionRepo struct {
	byID map[string]domain.InterviewSession
}

func (m *memSessionRepo) Save(_ context.Context, s *domain.InterviewSession) error {
	if m.byID == nil {
		m.byID = map[string]domain.InterviewSession{}
	}
	cp := *s
	cp.Answers = maps.Clone(s.Answers)
	cp.AutoPopulated = maps.Clone(s.AutoPopulated)
	m.byID[s.ID] = cp
	return nil
}

func (m *memSessionRepo) Get(_ context.Context, ownerID, id string) (*domain.InterviewSession, error) {
	s, ok := m.byID[id]
	if !ok || s.UserID != ownerID {
		return nil, domain.ErrNotFound
	}
	s.Answers = maps.Clone(s.Answers)
	s.AutoPopulated = maps.Clone(s.AutoPopulated)
	return &s, nil
}

func (m *memSessionRepo) Delete(_ context.Context, _, id string) error {
	delete(m.byID, id)
	return nil
}

type memLedger struct {
	mu   sync.Mutex
	used map[string]time.Duration
}

func (m *memLedger) Consume(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.used == nil {
		m.used = map[string]time.Duration{}
	}
	if _, ok := m.used[jti]; ok {
		return domain.ErrTokenConsumed
	}
	m.used[jti] = ttl
	return nil
}

func (m *memLedger) IsConsumed(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.used[jti]
	return ok, nil
}

type memFormRepo struct {
	templates   map[string]*domain.FormTemplate
	submissions map[string]*domain.FormSubmission
	signatures  []*domain.Signature
	// orgOf maps user id to organization id for organization-scoped reads.
	orgOf map[string]string
}

func newMemFormRepo() *memFormRepo {
	return &memFormRepo{templates: map[string]*domain.FormTemplate{}, submissions: map[string]*domain.FormSubmission{}}
}

func (m *memFormRepo) CreateTemplate(_ context.Context, t *domain.FormTemplate) error {
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *memFormRepo) GetTemplate(_ context.Context, ownerID, id string) (*domain.FormTemplate, error) {
	if t, ok := m.templates[id]; ok && t.UserID == ownerID {
		cp := *t
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memFormRepo) ListTemplates(_ context.Context, ownerID string, _ domain.ListOptions) ([]*domain.FormTemplate, error) {
	var out []*domain.FormTemplate
	for _, t := range m.templates {
		if t.UserID == ownerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memFormRepo) UpdateTemplate(_ context.Context, t *domain.FormTemplate, schemaChanged bool) error {
	if _, ok := m.templates[t.ID]; !ok {
		return domain.ErrNotFound
	}
	if schemaChanged {
		t.Version++
	}
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *memFormRepo) DeleteTemplate(_ context.Context, ownerID, id string) error {
	if t, ok := m.templates[id]; !ok || t.UserID != ownerID {
		return domain.ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *memFormRepo) CreateSubmission(_ context.Context, s *domain.FormSubmission) error {
	cp := *s
	m.submissions[s.ID] = &cp
	return nil
}

func (m *memFormRepo) GetSubmission(_ context.Context, ownerID, id string) (*domain.FormSubmission, error) {
	if s, ok := m.submissions[id]; ok && s.UserID == ownerID {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memFormRepo) ListSubmissions(_ context.Context, ownerID string, _ domain.ListOptions) ([]*domain.FormSubmission, error) {
	var out []*domain.FormSubmission
	for _, s := range m.submissions {
		if s.UserID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memFormRepo) GetOrganizationSubmission(_ context.Context, orgID, id string) (*domain.FormSubmission, error) {
	if s, ok := m.submissions[id]; ok && orgID != "" && m.orgOf[s.UserID] == orgID {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memFormRepo) ListOrganizationSubmissions(_ context.Context, orgID string, _ domain.ListOptions) ([]*domain.FormSubmission, error) {
	var out []*domain.FormSubmission
	for _, s := range m.submissions {
		if orgID != "" && m.orgOf[s.UserID] == orgID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memFormRepo) UpdateSubmission(_ context.Context, s *domain.FormSubmission) error {
	if _, ok := m.submissions[s.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *s
	m.submissions[s.ID] = &cp
	return nil
}

func (m *memFormRepo) GetSubmissionForSigning(_ context.Context, id string) (*domain.FormSubmission, error) {
	if s, ok := m.submissions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memFormRepo) CreateSignature(_ context.Context, sig *domain.Signature) error {
	for _, existing := range m.signatures {
		if existing.TokenID == sig.TokenID {
			return domain.ErrAlreadyExists
		}
	}
	s, ok := m.submissions[sig.SubmissionID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = domain.SubmissionSigned
	m.signatures = append(m.signatures, sig)
	return nil
}

func (m *memFormRepo) ListSignatures(_ context.Context, submissionID string) ([]*domain.Signature, error) {
	var out []*domain.Signature
	for _, s := range m.signatures {
		if s.SubmissionID == submissionID {
			out = append(out, s)
		}
	}
	return out, nil
}

type memPortalRepo struct {
	byID map[string]*domain.PortalInvitation
}

func (m *memPortalRepo) Create(_ context.Context, inv *domain.PortalInvitation) error {
	if m.byID == nil {
		m.byID = map[string]*domain.PortalInvitation{}
	}
	cp := *inv
	m.byID[inv.ID] = &cp
	return nil
}

func (m *memPortalRepo) GetByID(_ context.Context, id string) (*domain.PortalInvitation, error) {
	if inv, ok := m.byID[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memPortalRepo) MarkAccepted(_ context.Context, id string, at time.Time) error {
	inv, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if inv.AcceptedAt == nil {
		inv.AcceptedAt = &at
	}
	return nil
}

type memNotificationRepo struct {
	items []*domain.Notification
	err   error
}

func (m *memNotificationRepo) Create(_ context.Context, n *domain.Notification) error {
	if m.err != nil {
		return m.err
	}
	n.CreatedAt = time.Now()
	m.items = append(m.items, n)
	return nil
}

func (m *memNotificationRepo) List(_ context.Context, ownerID string, unreadOnly bool, _ domain.ListOptions) ([]*domain.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Notification
	for _, n := range m.items {
		if n.UserID == ownerID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotificationRepo) ListSince(_ context.Context, ownerID string, since time.Time) ([]*domain.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Notification
	for _, n := range m.items {
		if n.UserID == ownerID && n.CreatedAt.After(since) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotificationRepo) MarkRead(_ context.Context, ownerID, id string) error {
	if m.err != nil {
		return m.err
	}
	for _, n := range m.items {
		if n.ID == id && n.UserID == ownerID {
			n.Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memNotificationRepo) MarkAllRead(_ context.Context, ownerID string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, it := range m.items {
		if it.UserID == ownerID && !it.Read {
			it.Read = true
			n++
		}
	}
	return n, nil
}

type memIntegrationRepo struct {
	byKey map[string]*domain.Integration
}

func (m *memIntegrationRepo) Upsert(_ context.Context, in *domain.Integration) error {
	if m.byKey == nil {
		m.byKey = map[string]*domain.Integration{}
	}
	cp := *in
	m.byKey[in.UserID+"/"+in.Provider] = &cp
	return nil
}

func (m *memIntegrationRepo) Get(_ context.Context, ownerID, provider string) (*domain.Integration, error) {
	if in, ok := m.byKey[ownerID+"/"+provider]; ok {
		cp := *in
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memIntegrationRepo) List(_ context.Context, ownerID string) ([]*domain.Integration, error) {
	out := []*domain.Integration{}
	for _, in := range m.byKey {
		if in.UserID == ownerID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *memIntegrationRepo) Disconnect(_ context.Context, ownerID, provider string) error {
	in, ok := m.byKey[ownerID+"/"+provider]
	if !ok {
		return domain.ErrNotFound
	}
	in.Status = domain.IntegrationDisconnected
	in.AccessToken, in.RefreshToken = "", ""
	return nil
}

func (m *memIntegrationRepo) ClearStaleHandshakes(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, in := range m.byKey {
		if hs := in.Config.Data; hs.StartedAt != nil && hs.StartedAt.Before(cutoff) {
			in.Config = domain.NewBlob(domain.HandshakeState{})
			n++
		}
	}
	return n, nil
}

type fakeSearchRepo struct {
	mu      sync.Mutex
	queries []string
}

func (f *fakeSearchRepo) hit(kind, tsquery string) []domain.SearchHit {
	f.mu.Lock()
	f.queries = append(f.queries, kind+":"+tsquery)
	f.mu.Unlock()
	return []domain.SearchHit{{Type: kind, ID: kind + "-1", Title: strings.ToUpper(kind[:1]) + kind[1:]}}
}

func (f *fakeSearchRepo) SearchReports(_ context.Context, _, q string, _ int) ([]domain.SearchHit, error) {
	return f.hit("report", q), nil
}

func (f *fakeSearchRepo) SearchClients(_ context.Context, _, q string, _ int) ([]domain.SearchHit, error) {
	return f.hit("client", q), nil
}

func (f *fakeSearchRepo) SearchInspections(_ context.Context, _, q string, _ int) ([]domain.SearchHit, error) {
	return f.hit("inspection", q), nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditEntry
}

func (m *memAuditRepo) Insert(_ context.Context, e *domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAuditRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action+" "+e.Resource)
	}
	return out
}

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Generate(context.Context, string) (llm.Result, error) {
	if g.err != nil {
		return llm.Result{}, g.err
	}
	return llm.Result{Text: g.text, Provider: "stub"}, nil
}

type memPhotoStore struct {
	objects map[string][]byte
}

func (m *memPhotoStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = b
	return nil
}

type recordingMailer struct {
	sent []mailer.Message
	err  error
}

func (r *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type recordingNotifier struct {
	titles []string
}

func (r *recordingNotifier) Notify(_ context.Context, _, _, title, _, _ string) {
	r.titles = append(r.titles, title)
}

func ptr[T any](v T) *T { return &v }

func trialUser(id string, credits, quickFill int) *domain.User {
	return &domain.User{
		ID:                        id,
		Email:                     id + "@example.com",
		Name:                      "User " + id,
		Role:                      domain.RoleOwner,
		SubscriptionStatus:        domain.SubscriptionExpired,
		SubscriptionTier:          domain.TierFree,
		CreditsRemaining:          credits,
		QuickFillCreditsRemaining: quickFill,
	}
}
