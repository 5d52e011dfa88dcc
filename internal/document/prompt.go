// Package document renders reports and form submissions and builds the
// prompts used for narrative generation.
package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/CleanExpo/RestoreAssist-sub011/internal/domain"
)

const narrativeInstructions = `You are writing a professional water, fire and mould damage restoration report
for an Australian insurer. Follow IICRC S500 terminology. Respond with a single JSON object with the keys
"summary", "causeOfLoss" and "recommendations". Each value is plain text of at most three paragraphs.
Do not invent measurements that are not listed below.`

// NarrativePrompt embeds the report's structured fields in an instruction
// prompt for the narrative provider.
func NarrativePrompt(r *domain.Report) string {
	var b strings.Builder
	b.WriteString(narrativeInstructions)
	b.WriteString("\n\nReport details:\n")
	fmt.Fprintf(&b, "- Title: %s\n", r.Title)
	if r.PropertyAddress != "" {
		fmt.Fprintf(&b, "- Property: %s\n", r.PropertyAddress)
	}
	if r.JobType != "" {
		fmt.Fprintf(&b, "- Job type: %s\n", r.JobType)
	}
	if r.WaterCategory > 0 {
		fmt.Fprintf(&b, "- Water category: %d\n", r.WaterCategory)
	}
	if r.WaterClass > 0 {
		fmt.Fprintf(&b, "- Water class: %d\n", r.WaterClass)
	}
	if r.AffectedAreaM2 > 0 {
		fmt.Fprintf(&b, "- Affected area: %.1f m2\n", r.AffectedAreaM2)
	}
	if r.CauseOfLoss != "" {
		fmt.Fprintf(&b, "- Reported cause of loss: %s\n", r.CauseOfLoss)
	}

	if readings := r.MoistureReadings.Data; len(readings) > 0 {
		b.WriteString("\nMoisture readings:\n")
		for _, m := range readings {
			state := "wet"
			if m.Dry {
				state = "dry"
			}
			fmt.Fprintf(&b, "- %s (%s): %.1f %s, %s\n", m.Location, m.Material, m.Value, m.Unit, state)
		}
	}
	if scope := r.ScopeItems.Data; len(scope) > 0 {
		b.WriteString("\nScope of works:\n")
		for _, s := range scope {
			fmt.Fprintf(&b, "- %s x %.2f %s\n", s.Description, s.Quantity, s.Unit)
		}
	}
	return b.String()
}

// ParseNarrative reads a provider response. A JSON object (optionally inside
// a fenced code block) fills the sections; anything else becomes the summary.
func ParseNarrative(text string) (domain.Narrative, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Narrative{}, fmt.Errorf("empty narrative")
	}

	body := text
	if i := strings.Index(body, "{"); i >= 0 {
		if j := strings.LastIndex(body, "}"); j > i {
			body = body[i : j+1]
		}
	}

	var n domain.Narrative
	if err := json.Unmarshal([]byte(body), &n); err == nil && n.Summary != "" {
		return n, nil
	}
	return domain.Narrative{Summary: text}, nil
}
