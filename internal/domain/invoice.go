package domain

import (
	"context"
	"time"
)

// InvoiceStatus is the payment state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoicePaid  InvoiceStatus = "paid"
	InvoiceVoid  InvoiceStatus = "void"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceVoid:
		return true
	}
	return false
}

// LineItem is one ordered row of an invoice. Money is in cents.
type LineItem struct {
	ID             string  `json:"id"`
	InvoiceID      string  `json:"invoiceId"`
	Position       int     `json:"position"`
	Description    string  `json:"description"`
	Quantity       float64 `json:"quantity"`
	UnitPriceCents int64   `json:"unitPrice"`
	GSTRate        float64 `json:"gstRate"`
	SubtotalCents  int64   `json:"subtotal"`
	GSTCents       int64   `json:"gstAmount"`
	TotalCents     int64   `json:"total"`
}

// Invoice is a header plus ordered line items. TotalIncGST equals
// SubtotalExGST + GSTAmount at write time and is not recomputed on read.
type Invoice struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	ClientID      *string       `json:"clientId,omitempty"`
	Number        string        `json:"invoiceNumber"`
	Year          int           `json:"year"`
	Sequence      int64         `json:"sequence"`
	Status        InvoiceStatus `json:"status"`
	IssueDate     time.Time     `json:"issueDate"`
	DueDate       time.Time     `json:"dueDate"`
	DiscountCents int64         `json:"discount"`
	ShippingCents int64         `json:"shipping"`
	SubtotalExGST int64         `json:"subtotalExGST"`
	GSTAmount     int64         `json:"gstAmount"`
	TotalIncGST   int64         `json:"totalIncGST"`
	AmountPaid    int64         `json:"amountPaid"`
	AmountDue     int64         `json:"amountDue"`
	Notes         string        `json:"notes,omitempty"`
	LineItems     []LineItem    `json:"lineItems"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// InvoiceAnalytics summarises a user's invoices.
type InvoiceAnalytics struct {
	TotalInvoiced    int64            `json:"totalInvoiced"`
	TotalPaid        int64            `json:"totalPaid"`
	TotalOutstanding int64            `json:"totalOutstanding"`
	OverdueCount     int              `json:"overdueCount"`
	CountByStatus    map[string]int   `json:"countByStatus"`
	MonthlyRevenue   map[string]int64 `json:"monthlyRevenue"`
}

// InvoiceRepository defines owner-scoped data access for invoices.
type InvoiceRepository interface {
	// CreateWithNumber reserves the next (user, year) sequence value, lets
	// number build the invoice number from it, and inserts the invoice and
	// its line items in one transaction.
	CreateWithNumber(ctx context.Context, inv *Invoice, number func(seq int64) string) error
	Get(ctx context.Context, ownerID, id string) (*Invoice, error)
	List(ctx context.Context, ownerID string, opts ListOptions) ([]*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	RecordPayment(ctx context.Context, ownerID, id string, amountCents int64) (*Invoice, error)
	Delete(ctx context.Context, ownerID, id string) error

	SumByStatus(ctx context.Context, ownerID string) (map[string]int64, map[string]int, error)
	CountOverdue(ctx context.Context, ownerID string, now time.Time) (int, error)
	MonthlyPaid(ctx context.Context, ownerID string, since time.Time) (map[string]int64, error)
}
