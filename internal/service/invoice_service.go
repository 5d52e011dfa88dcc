package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/invoicing"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/observability/metrics"
	"github.com/CleanExpo/RestoreAssist-sub011/internal/security/audit"
)

// analyticsWindow bounds the monthly revenue series.
const analyticsWindow = 12

// InvoiceInput is the editable part of an invoice.
type InvoiceInput struct {
	ClientID      *string              `json:"clientId"`
	Status        domain.InvoiceStatus `json:"status"`
	IssueDate     *time.Time           `json:"issueDate"`
	DueDate       *time.Time           `json:"dueDate"`
	DiscountCents int64                `json:"discount"`
	ShippingCents int64                `json:"shipping"`
	Notes         string               `json:"notes"`
	LineItems     []domain.LineItem    `json:"lineItems"`
}

// InvoiceService numbers, computes and stores invoices.
type InvoiceService struct {
	invoices    domain.InvoiceRepository
	clients     domain.ClientRepository
	audit       *audit.Logger
	prefix      string
	defaultRate float64
	dueDays     int
	logger      *slog.Logger
	now         func() time.Time
}

// NewInvoiceService creates an invoice service. defaultRate is the GST
// percentage applied to shipping; dueDays sets the default due date.
func NewInvoiceService(
	invoices domain.InvoiceRepository,
	clients domain.ClientRepository,
	auditLog *audit.Logger,
	prefix string,
	defaultRate float64,
	dueDays int,
	logger *slog.Logger,
) *InvoiceService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(nil, logger)
	}
	if prefix == "" {
		prefix = invoicing.DefaultPrefix
	}
	if dueDays <= 0 {
		dueDays = 14
	}
	return &InvoiceService{
		invoices:    invoices,
		clients:     clients,
		audit:       auditLog,
		prefix:      prefix,
		defaultRate: defaultRate,
		dueDays:     dueDays,
		logger:      logger,
		now:         time.Now,
	}
}

// Create computes the money fields, allocates the next number for the
// owner and issue year, and stores the invoice.
func (s *InvoiceService) Create(ctx context.Context, ownerID string, in InvoiceInput) (*domain.Invoice, error) {
	inv := &domain.Invoice{ID: uuid.NewString(), UserID: ownerID}
	if err := s.apply(ctx, ownerID, inv, in); err != nil {
		return nil, err
	}
	if inv.Status == domain.InvoicePaid {
		return nil, domain.Invalid("status", "record a payment to mark an invoice paid")
	}
	inv.Year = inv.IssueDate.Year()

	year := inv.Year
	err := s.invoices.CreateWithNumber(ctx, inv, func(seq int64) string {
		return invoicing.Number(s.prefix, year, seq)
	})
	if err != nil {
		s.logger.Error("failed to create invoice",
			slog.String("user_id", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	metrics.IncInvoicesCreated()
	s.logger.Info("invoice created",
		slog.String("invoice_id", inv.ID),
		slog.String("number", inv.Number),
	)
	s.audit.Record(ctx, ownerID, "create", "invoice", inv.ID, nil, inv)
	return inv, nil
}

// Get returns an invoice with its line items.
func (s *InvoiceService) Get(ctx context.Context, ownerID, id string) (*domain.Invoice, error) {
	return s.invoices.Get(ctx, ownerID, id)
}

// List returns invoice headers, newest number first.
func (s *InvoiceService) List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.Invoice, error) {
	out, err := s.invoices.List(ctx, ownerID, opts.Normalize())
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.Invoice{}
	}
	return out, nil
}

// Update recomputes and replaces an invoice. The number never changes.
// Paid and void invoices are read-only.
func (s *InvoiceService) Update(ctx context.Context, ownerID, id string, in InvoiceInput) (*domain.Invoice, error) {
	before, err := s.invoices.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if before.Status == domain.InvoicePaid || before.Status == domain.InvoiceVoid {
		return nil, domain.Invalid("status", "paid and void invoices cannot be edited")
	}

	after := *before
	after.LineItems = nil
	if err := s.apply(ctx, ownerID, &after, in); err != nil {
		return nil, err
	}
	if after.AmountDue < 0 {
		return nil, domain.Invalid("lineItems", "total cannot be less than the amount already paid")
	}
	if after.Status == domain.InvoicePaid && after.AmountDue > 0 {
		return nil, domain.Invalid("status", "invoice still has an amount due")
	}
	if err := s.invoices.Update(ctx, &after); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, ownerID, "update", "invoice", id, before, &after)
	return &after, nil
}

// RecordPayment adds a payment of at most the amount due. The invoice
// becomes paid once nothing is due.
func (s *InvoiceService) RecordPayment(ctx context.Context, ownerID, id string, amountCents int64) (*domain.Invoice, error) {
	if amountCents <= 0 {
		return nil, domain.Invalid("amount", "must be greater than zero")
	}
	before, err := s.invoices.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if before.Status == domain.InvoiceVoid {
		return nil, domain.Invalid("status", "void invoices cannot take payments")
	}
	if amountCents > before.AmountDue {
		return nil, domain.Invalid("amount", "exceeds the amount due")
	}
	after, err := s.invoices.RecordPayment(ctx, ownerID, id, amountCents)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, ownerID, "payment", "invoice", id,
		map[string]any{"amountPaid": before.AmountPaid, "status": before.Status},
		map[string]any{"amountPaid": after.AmountPaid, "status": after.Status})
	return after, nil
}

// Delete removes draft and void invoices. Issued invoices must be voided.
func (s *InvoiceService) Delete(ctx context.Context, ownerID, id string) error {
	before, err := s.invoices.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if before.Status != domain.InvoiceDraft && before.Status != domain.InvoiceVoid {
		return domain.Invalid("status", "only draft or void invoices can be deleted")
	}
	if err := s.invoices.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.audit.Record(ctx, ownerID, "delete", "invoice", id, before, nil)
	return nil
}

// Analytics summarises the owner's invoices. The three aggregate reads run
// concurrently.
func (s *InvoiceService) Analytics(ctx context.Context, ownerID string) (*domain.InvoiceAnalytics, error) {
	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(analyticsWindow - 1), 0)

	var (
		totals  map[string]int64
		counts  map[string]int
		overdue int
		monthly map[string]int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, counts, err = s.invoices.SumByStatus(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		overdue, err = s.invoices.CountOverdue(gctx, ownerID, now)
		return err
	})
	g.Go(func() error {
		var err error
		monthly, err = s.invoices.MonthlyPaid(gctx, ownerID, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &domain.InvoiceAnalytics{
		TotalPaid:        totals[string(domain.InvoicePaid)],
		TotalOutstanding: totals[string(domain.InvoiceSent)],
		OverdueCount:     overdue,
		CountByStatus:    map[string]int{},
		MonthlyRevenue:   map[string]int64{},
	}
	for status, total := range totals {
		if status != string(domain.InvoiceVoid) {
			out.TotalInvoiced += total
		}
	}
	for status, n := range counts {
		out.CountByStatus[status] = n
	}
	for m := 0; m < analyticsWindow; m++ {
		key := since.AddDate(0, m, 0).Format("2006-01")
		out.MonthlyRevenue[key] = monthly[key]
	}
	return out, nil
}

// apply copies in onto inv, fills defaults and recomputes money fields.
func (s *InvoiceService) apply(ctx context.Context, ownerID string, inv *domain.Invoice, in InvoiceInput) error {
	if in.ClientID != nil {
		if _, err := s.clients.Get(ctx, ownerID, *in.ClientID); err != nil {
			return refErr(err, "clientId")
		}
	}
	status := in.Status
	if status == "" {
		status = domain.InvoiceDraft
	}
	if !status.Valid() {
		return domain.Invalid("status", "must be one of draft, sent, paid, void")
	}

	issue := s.now().UTC()
	if in.IssueDate != nil {
		issue = in.IssueDate.UTC()
	} else if !inv.IssueDate.IsZero() {
		issue = inv.IssueDate
	}
	due := issue.AddDate(0, 0, s.dueDays)
	if in.DueDate != nil {
		due = in.DueDate.UTC()
	}
	if due.Before(issue) {
		return domain.Invalid("dueDate", "must not be before the issue date")
	}

	inv.ClientID = in.ClientID
	inv.Status = status
	inv.IssueDate = issue
	inv.DueDate = due
	inv.DiscountCents = in.DiscountCents
	inv.ShippingCents = in.ShippingCents
	inv.Notes = in.Notes
	inv.LineItems = append([]domain.LineItem(nil), in.LineItems...)
	for i := range inv.LineItems {
		inv.LineItems[i].ID = ""
		inv.LineItems[i].InvoiceID = inv.ID
	}
	return invoicing.Compute(inv, s.defaultRate)
}
