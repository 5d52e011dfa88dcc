package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
	"github.com/CleanExpo/RestoreAssist-sub011/pkg/database"
)

const invoiceColumns = `id, user_id, client_id, invoice_number, year, sequence, status, issue_date,
	due_date, discount_cents, shipping_cents, subtotal_ex_gst, gst_amount, total_inc_gst, amount_paid,
	amount_due, notes, created_at, updated_at`

const lineItemColumns = `id, invoice_id, position, description, quantity, unit_price_cents, gst_rate,
	subtotal_cents, gst_cents, total_cents`

// PostgresInvoiceRepository implements domain.InvoiceRepository
type PostgresInvoiceRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresInvoiceRepository(db *sql.DB, logger *slog.Logger) *PostgresInvoiceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresInvoiceRepository{db: db, logger: logger}
}

func scanInvoice(s scanner) (*domain.Invoice, error) {
	inv := &domain.Invoice{LineItems: []domain.LineItem{}}
	err := s.Scan(
		&inv.ID, &inv.UserID, &inv.ClientID, &inv.Number, &inv.Year, &inv.Sequence, &inv.Status,
		&inv.IssueDate, &inv.DueDate, &inv.DiscountCents, &inv.ShippingCents, &inv.SubtotalExGST,
		&inv.GSTAmount, &inv.TotalIncGST, &inv.AmountPaid, &inv.AmountDue, &inv.Notes,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	return inv, err
}

// nextSequence atomically reserves the next number for (user, year). The
// row lock taken by the upsert serialises concurrent creators until the
// surrounding transaction ends.
func nextSequence(ctx context.Context, tx *sql.Tx, userID string, year int) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO invoice_sequences (user_id, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, year) DO UPDATE SET last_value = invoice_sequences.last_value + 1
		RETURNING last_value
	`, userID, year).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	return seq, nil
}

func insertLineItems(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) error {
	for i := range inv.LineItems {
		li := &inv.LineItems[i]
		if li.ID == "" {
			li.ID = uuid.NewString()
		}
		li.InvoiceID = inv.ID
		li.Position = i + 1
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_line_items (`+lineItemColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, li.ID, li.InvoiceID, li.Position, li.Description, li.Quantity, li.UnitPriceCents,
			li.GSTRate, li.SubtotalCents, li.GSTCents, li.TotalCents)
		if err != nil {
			return writeErr(err, "invoice line item")
		}
	}
	return nil
}

// CreateWithNumber implements domain.InvoiceRepository.
func (r *PostgresInvoiceRepository) CreateWithNumber(ctx context.Context, inv *domain.Invoice, number func(seq int64) string) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		seq, err := nextSequence(ctx, tx, inv.UserID, inv.Year)
		if err != nil {
			return err
		}
		inv.Sequence = seq
		inv.Number = number(seq)

		err = tx.QueryRowContext(ctx, `
			INSERT INTO invoices (id, user_id, client_id, invoice_number, year, sequence, status, issue_date,
				due_date, discount_cents, shipping_cents, subtotal_ex_gst, gst_amount, total_inc_gst,
				amount_paid, amount_due, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING created_at, updated_at
		`,
			inv.ID, inv.UserID, inv.ClientID, inv.Number, inv.Year, inv.Sequence, inv.Status, inv.IssueDate,
			inv.DueDate, inv.DiscountCents, inv.ShippingCents, inv.SubtotalExGST, inv.GSTAmount, inv.TotalIncGST,
			inv.AmountPaid, inv.AmountDue, inv.Notes,
		).Scan(&inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			return writeErr(err, "invoice")
		}
		return insertLineItems(ctx, tx, inv)
	})
	if err != nil {
		r.logger.Error("failed to create invoice",
			slog.String("user_id", inv.UserID),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

func (r *PostgresInvoiceRepository) lineItems(ctx context.Context, invoiceID string) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+lineItemColumns+` FROM invoice_line_items WHERE invoice_id = $1 ORDER BY position`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}
	defer rows.Close()

	items := []domain.LineItem{}
	for rows.Next() {
		var li domain.LineItem
		if err := rows.Scan(&li.ID, &li.InvoiceID, &li.Position, &li.Description, &li.Quantity,
			&li.UnitPriceCents, &li.GSTRate, &li.SubtotalCents, &li.GSTCents, &li.TotalCents); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func (r *PostgresInvoiceRepository) Get(ctx context.Context, ownerID, id string) (*domain.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND user_id = $2`, id, ownerID))
	if err != nil {
		return nil, readErr(err, "invoice")
	}
	if inv.LineItems, err = r.lineItems(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns invoice headers without line items.
func (r *PostgresInvoiceRepository) List(ctx context.Context, ownerID string, opts domain.ListOptions) ([]*domain.Invoice, error) {
	opts = opts.Normalize()
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE user_id = $1
		ORDER BY year DESC, sequence DESC
		LIMIT $2 OFFSET $3
	`, ownerID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	out := []*domain.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Update rewrites the header and replaces the line items. The number,
// sequence and amount paid are never changed here, and the new total may not
// drop below the amount paid.
func (r *PostgresInvoiceRepository) Update(ctx context.Context, inv *domain.Invoice) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE invoices
			SET client_id = $1, status = $2, issue_date = $3, due_date = $4, discount_cents = $5,
			    shipping_cents = $6, subtotal_ex_gst = $7, gst_amount = $8, total_inc_gst = $9,
			    amount_due = $9 - amount_paid, notes = $10, updated_at = now()
			WHERE id = $11 AND user_id = $12 AND amount_paid <= $9
			RETURNING invoice_number, sequence, amount_paid, amount_due, created_at, updated_at
		`,
			inv.ClientID, inv.Status, inv.IssueDate, inv.DueDate, inv.DiscountCents,
			inv.ShippingCents, inv.SubtotalExGST, inv.GSTAmount, inv.TotalIncGST,
			inv.Notes, inv.ID, inv.UserID,
		).Scan(&inv.Number, &inv.Sequence, &inv.AmountPaid, &inv.AmountDue, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			return writeErr(err, "invoice")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_line_items WHERE invoice_id = $1`, inv.ID); err != nil {
			return fmt.Errorf("failed to replace line items: %w", err)
		}
		return insertLineItems(ctx, tx, inv)
	})
}

// RecordPayment adds amountCents to the amount paid and marks the invoice
// paid once nothing is due. Void invoices and overpayments match no row.
func (r *PostgresInvoiceRepository) RecordPayment(ctx context.Context, ownerID, id string, amountCents int64) (*domain.Invoice, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE invoices
		SET amount_paid = amount_paid + $1,
		    amount_due = total_inc_gst - (amount_paid + $1),
		    status = CASE WHEN total_inc_gst - (amount_paid + $1) <= 0 THEN 'paid' ELSE status END,
		    updated_at = now()
		WHERE id = $2 AND user_id = $3 AND status <> 'void' AND amount_paid + $1 <= total_inc_gst
	`, amountCents, id, ownerID)
	if err != nil {
		return nil, writeErr(err, "invoice")
	}
	if err := expectOne(res, "invoice"); err != nil {
		return nil, err
	}
	return r.Get(ctx, ownerID, id)
}

func (r *PostgresInvoiceRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return writeErr(err, "invoice")
	}
	return expectOne(res, "invoice")
}

// SumByStatus returns the invoiced total and count per status.
func (r *PostgresInvoiceRepository) SumByStatus(ctx context.Context, ownerID string) (map[string]int64, map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COALESCE(SUM(total_inc_gst), 0), COUNT(*)
		FROM invoices WHERE user_id = $1
		GROUP BY status
	`, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sum invoices: %w", err)
	}
	defer rows.Close()

	totals := map[string]int64{}
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var total int64
		var count int
		if err := rows.Scan(&status, &total, &count); err != nil {
			return nil, nil, err
		}
		totals[status] = total
		counts[status] = count
	}
	return totals, counts, rows.Err()
}

func (r *PostgresInvoiceRepository) CountOverdue(ctx context.Context, ownerID string, now time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM invoices
		WHERE user_id = $1 AND status = 'sent' AND due_date < $2 AND amount_due > 0
	`, ownerID, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue invoices: %w", err)
	}
	return n, nil
}

// MonthlyPaid returns amounts received per issue month (YYYY-MM) since the given time.
func (r *PostgresInvoiceRepository) MonthlyPaid(ctx context.Context, ownerID string, since time.Time) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('month', issue_date), 'YYYY-MM'), COALESCE(SUM(amount_paid), 0)
		FROM invoices
		WHERE user_id = $1 AND issue_date >= $2 AND status <> 'void' AND amount_paid > 0
		GROUP BY 1
	`, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly revenue: %w", err)
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var month string
		var total int64
		if err := rows.Scan(&month, &total); err != nil {
			return nil, err
		}
		out[month] = total
	}
	return out, rows.Err()
}
