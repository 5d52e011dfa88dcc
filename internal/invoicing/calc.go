// Package invoicing computes invoice money fields and numbers.
//
// All amounts are integer cents. Line GST is rounded per line and the header
// GST is rounded again at the aggregate level after discount and shipping,
// so the header GST can differ by a cent from the sum of line GSTs.
package invoicing

import (
	"fmt"
	"math"
	"strings"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

// DefaultPrefix is used when no invoice prefix is configured.
const DefaultPrefix = "INV"

// MaxLineItems caps the number of rows on one invoice.
const MaxLineItems = 200

// Number formats an invoice number as {prefix}-{year}-{sequence padded to 5}.
func Number(prefix string, year int, seq int64) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s-%d-%05d", prefix, year, seq)
}

// roundCents rounds half away from zero; inputs are non-negative so this is half-up.
func roundCents(v float64) int64 {
	return int64(math.Round(v))
}

// ValidateLine checks one line item. idx is used in the field name.
func ValidateLine(idx int, li domain.LineItem) error {
	field := func(name string) string { return fmt.Sprintf("lineItems[%d].%s", idx, name) }
	if strings.TrimSpace(li.Description) == "" {
		return domain.Invalid(field("description"), "is required")
	}
	if li.Quantity <= 0 || math.IsNaN(li.Quantity) || math.IsInf(li.Quantity, 0) {
		return domain.Invalid(field("quantity"), "must be greater than zero")
	}
	if li.UnitPriceCents < 0 {
		return domain.Invalid(field("unitPrice"), "must not be negative")
	}
	if li.GSTRate < 0 || li.GSTRate > 100 {
		return domain.Invalid(field("gstRate"), "must be between 0 and 100")
	}
	return nil
}

// ComputeLine fills the derived money fields of li.
func ComputeLine(li *domain.LineItem) {
	li.SubtotalCents = roundCents(li.Quantity * float64(li.UnitPriceCents))
	li.GSTCents = roundCents(float64(li.SubtotalCents) * li.GSTRate / 100)
	li.TotalCents = li.SubtotalCents + li.GSTCents
}

// Compute validates inv and fills every derived money field on the line
// items and the header. defaultRate is the GST percentage applied to shipping.
func Compute(inv *domain.Invoice, defaultRate float64) error {
	if len(inv.LineItems) == 0 {
		return domain.Invalid("lineItems", "must contain at least one item")
	}
	if len(inv.LineItems) > MaxLineItems {
		return domain.Invalid("lineItems", fmt.Sprintf("must contain at most %d items", MaxLineItems))
	}
	if inv.DiscountCents < 0 {
		return domain.Invalid("discount", "must not be negative")
	}
	if inv.ShippingCents < 0 {
		return domain.Invalid("shipping", "must not be negative")
	}

	var lineSubtotal int64
	var rawGST float64
	for i := range inv.LineItems {
		li := &inv.LineItems[i]
		if err := ValidateLine(i, *li); err != nil {
			return err
		}
		li.Position = i + 1
		ComputeLine(li)
		lineSubtotal += li.SubtotalCents
		rawGST += float64(li.SubtotalCents) * li.GSTRate / 100
	}

	discounted := lineSubtotal - inv.DiscountCents
	if discounted < 0 {
		discounted = 0
	}

	var scaledGST float64
	if lineSubtotal > 0 {
		scaledGST = rawGST * float64(discounted) / float64(lineSubtotal)
	}

	inv.SubtotalExGST = discounted + inv.ShippingCents
	inv.GSTAmount = roundCents(scaledGST + float64(inv.ShippingCents)*defaultRate/100)
	inv.TotalIncGST = inv.SubtotalExGST + inv.GSTAmount
	inv.AmountDue = inv.TotalIncGST - inv.AmountPaid
	return nil
}

// LineGSTSum adds the rounded per-line GST values. It differs from the
// header GST when rounding or a discount spreads cents unevenly.
func LineGSTSum(items []domain.LineItem) int64 {
	var sum int64
	for _, li := range items {
		sum += li.GSTCents
	}
	return sum
}
