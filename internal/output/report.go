package output

import (
	"io"

	"github.com/agentstation/patchpilot/pkg/report"
)

// SummaryData converts a summary to a two-column field/value table.
func SummaryData(s *report.Summary) Data {
	rows := make([][]string, 0, len(s.Data))
	for _, fact := range s.Facts() {
		rows = append(rows, []string{fact.Name, fact.Value})
	}
	return Data{
		Headers:         []string{"Field", "Value"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft},
	}
}

// FormatSummary writes s in the given format. Tables print the summary text
// above the field list.
func FormatSummary(w io.Writer, s *report.Summary, format Format) error {
	switch format {
	case FormatJSON, FormatYAML:
		return NewFormatter(format).Format(w, s)
	default:
		if s.SummaryText != "" {
			if _, err := io.WriteString(w, s.SummaryText+"\n"); err != nil {
				return err
			}
		}
		return NewFormatter(FormatTable).Format(w, SummaryData(s))
	}
}
