package document

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2 Jan 2006")
	},
	"money":   FormatCents,
	"safeURL": signatureURL,
}

var reportTemplate = template.Must(template.New("report").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<table>
<tr><th>Property</th><td>{{.PropertyAddress}}</td></tr>
<tr><th>Job type</th><td>{{.JobType}}</td></tr>
{{- if .WaterCategory}}<tr><th>Water category</th><td>{{.WaterCategory}}</td></tr>{{end}}
{{- if .WaterClass}}<tr><th>Water class</th><td>{{.WaterClass}}</td></tr>{{end}}
{{- if .AffectedAreaM2}}<tr><th>Affected area</th><td>{{printf "%.1f" .AffectedAreaM2}} m&sup2;</td></tr>{{end}}
<tr><th>Status</th><td>{{.Status}}</td></tr>
<tr><th>Prepared</th><td>{{date .UpdatedAt}}</td></tr>
</table>
{{with .Narrative.Data}}
{{if .Summary}}<h2>Summary</h2><p>{{.Summary}}</p>{{end}}
{{if .CauseOfLoss}}<h2>Cause of loss</h2><p>{{.CauseOfLoss}}</p>{{end}}
{{if .Recommendations}}<h2>Recommendations</h2><p>{{.Recommendations}}</p>{{end}}
{{end}}
{{if not .Narrative.Data.CauseOfLoss}}{{if .CauseOfLoss}}<h2>Cause of loss</h2><p>{{.CauseOfLoss}}</p>{{end}}{{end}}
{{with .MoistureReadings.Data}}
<h2>Moisture readings</h2>
<table>
<tr><th>Location</th><th>Material</th><th>Reading</th><th>State</th></tr>
{{range .}}<tr><td>{{.Location}}</td><td>{{.Material}}</td><td>{{printf "%.1f" .Value}} {{.Unit}}</td><td>{{if .Dry}}Dry{{else}}Wet{{end}}</td></tr>
{{end}}</table>
{{end}}
{{with .ScopeItems.Data}}
<h2>Scope of works</h2>
<ul>
{{range .}}<li>{{.Description}} ({{printf "%.2f" .Quantity}} {{.Unit}})</li>
{{end}}</ul>
{{end}}
<footer>Prepared in accordance with IICRC S500.</footer>
</body>
</html>
`))

// RenderReportHTML writes a standalone HTML document for r.
func RenderReportHTML(w io.Writer, r *domain.Report) error {
	if err := reportTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

type submissionView struct {
	Template   *domain.FormTemplate
	Submission *domain.FormSubmission
	Rows       []answerRow
	Signatures []*domain.Signature
}

type answerRow struct {
	Label string
	Value string
}

var submissionTemplate = template.Must(template.New("submission").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Template.Name}}</title></head>
<body>
<h1>{{.Template.Name}}</h1>
<p>Version {{.Submission.TemplateVersion}} &middot; {{.Submission.Status}} &middot; {{date .Submission.UpdatedAt}}</p>
<table>
{{range .Rows}}<tr><th>{{.Label}}</th><td>{{.Value}}</td></tr>
{{end}}</table>
{{if .Signatures}}
<h2>Signatures</h2>
{{range .Signatures}}<div class="signature">
<p>{{.SignerName}}{{if .SignerEmail}} &lt;{{.SignerEmail}}&gt;{{end}}, signed {{date .SignedAt}}</p>
{{if .SignatureData}}<img alt="signature of {{.SignerName}}" src="{{.SignatureData | safeURL}}">{{end}}
</div>
{{end}}{{end}}
</body>
</html>
`))

// signatureURL lets data:image/png URLs through and drops anything else.
func signatureURL(s string) template.URL {
	if len(s) > 22 && s[:22] == "data:image/png;base64," {
		return template.URL(s)
	}
	return ""
}

// RenderSubmissionHTML writes a submission using the template's field labels
// in schema order. Answers without a schema field are listed after, sorted by key.
func RenderSubmissionHTML(w io.Writer, t *domain.FormTemplate, s *domain.FormSubmission, sigs []*domain.Signature) error {
	answers := s.Answers.Data
	seen := map[string]bool{}
	rows := []answerRow{}
	for _, f := range t.Schema.Data.Fields {
		if f.Type == "signature" {
			continue
		}
		seen[f.Key] = true
		label := f.Label
		if label == "" {
			label = f.Key
		}
		rows = append(rows, answerRow{Label: label, Value: formatAnswer(answers[f.Key])})
	}
	extra := []string{}
	for k := range answers {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		rows = append(rows, answerRow{Label: k, Value: formatAnswer(answers[k])})
	}

	var buf bytes.Buffer
	view := submissionView{Template: t, Submission: s, Rows: rows, Signatures: sigs}
	if err := submissionTemplate.Execute(&buf, view); err != nil {
		return fmt.Errorf("render submission: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func formatAnswer(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// FormatCents renders cents as dollars, e.g. 22000 -> "$220.00".
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s$%d.%02d", sign, c/100, c%100)
}
