package document

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

const (
	pageMargin = 15.0
	lineHeight = 6.0
)

// RenderReportPDF writes an A4 PDF of r. The PDF is derived on request and
// never stored.
func RenderReportPDF(w io.Writer, r *domain.Report, company string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(r.Title, true)
	if company != "" {
		pdf.SetAuthor(company, true)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Prepared in accordance with IICRC S500 - page %d", pdf.PageNo())),
			"", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, tr(r.Title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	row := func(label, value string) {
		if value == "" {
			return
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, lineHeight, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight, tr(value), "", "L", false)
	}
	row("Property", r.PropertyAddress)
	row("Job type", r.JobType)
	if r.WaterCategory > 0 {
		row("Water category", fmt.Sprintf("Category %d", r.WaterCategory))
	}
	if r.WaterClass > 0 {
		row("Water class", fmt.Sprintf("Class %d", r.WaterClass))
	}
	if r.AffectedAreaM2 > 0 {
		row("Affected area", fmt.Sprintf("%.1f m2", r.AffectedAreaM2))
	}
	row("Status", string(r.Status))
	if !r.UpdatedAt.IsZero() {
		row("Prepared", r.UpdatedAt.Format("2 Jan 2006"))
	}

	section := func(title, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight-1, tr(body), "", "L", false)
	}

	n := r.Narrative.Data
	section("Summary", n.Summary)
	cause := n.CauseOfLoss
	if cause == "" {
		cause = r.CauseOfLoss
	}
	section("Cause of loss", cause)

	if readings := r.MoistureReadings.Data; len(readings) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Moisture readings", "", 1, "L", false, 0, "")
		widths := []float64{60, 50, 40, 30}
		pdf.SetFont("Helvetica", "B", 9)
		for i, h := range []string{"Location", "Material", "Reading", "State"} {
			pdf.CellFormat(widths[i], lineHeight, h, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		for _, m := range readings {
			state := "Wet"
			if m.Dry {
				state = "Dry"
			}
			cells := []string{m.Location, m.Material, fmt.Sprintf("%.1f %s", m.Value, m.Unit), state}
			for i, c := range cells {
				pdf.CellFormat(widths[i], lineHeight, tr(c), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	if scope := r.ScopeItems.Data; len(scope) > 0 {
		var b strings.Builder
		for _, s := range scope {
			fmt.Fprintf(&b, "- %s (%.2f %s)\n", s.Description, s.Quantity, s.Unit)
		}
		section("Scope of works", b.String())
	}
	section("Recommendations", n.Recommendations)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
