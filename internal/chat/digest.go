package chat

import (
	"fmt"
	"strings"

	"labreport-backend/internal/analysis"
)

// Digest reduces an analysis result to the compact textual restatement
// supplied with every chat turn: patient identity, facility, date and a
// flattened list of biomarker name/value/unit/range tuples.
func Digest(result analysis.Result) string {
	var b strings.Builder

	p := result.Patient
	identity := p.Name
	if p.Age != "" || p.Gender != "" {
		details := strings.TrimSpace(strings.Join(nonEmpty(p.Age, p.Gender), ", "))
		if identity == "" {
			identity = details
		} else if details != "" {
			identity = fmt.Sprintf("%s (%s)", identity, details)
		}
	}
	if identity != "" {
		fmt.Fprintf(&b, "Patient: %s\n", identity)
	}
	if p.Facility != "" {
		fmt.Fprintf(&b, "Facility: %s\n", p.Facility)
	}
	if p.CollectionDate != "" {
		fmt.Fprintf(&b, "Collected: %s\n", p.CollectionDate)
	}

	if len(result.Biomarkers) > 0 {
		b.WriteString("Biomarkers:\n")
		for _, m := range result.Biomarkers {
			fmt.Fprintf(&b, "- %s: %v %s (range %s, %s)", m.Name, m.CurrentValue, m.Unit, m.Range, m.Status)
			if m.PreviousValue != nil {
				fmt.Fprintf(&b, " previously %v", *m.PreviousValue)
			}
			b.WriteString("\n")
		}
	}

	return strings.TrimSpace(b.String())
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
