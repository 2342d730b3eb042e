package batch

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/coolbeans/marcx/pkg/extract"
)

// FormatReport formats batch results for terminal output.
func FormatReport(results []Result) string {
	report := NewReport(results)
	var builder strings.Builder

	builder.WriteString("\nBatch Extraction Report\n")
	builder.WriteString(strings.Repeat("═", 60) + "\n")
	builder.WriteString(fmt.Sprintf("Records: %d | Succeeded: %d | Failed: %d\n",
		report.Total, report.Succeeded, report.Failed))
	builder.WriteString(strings.Repeat("─", 60) + "\n")

	for _, entry := range report.Entries {
		status := "[OK]"
		if entry.Status == StatusFailed {
			status = "[FAIL]"
		}

		line := fmt.Sprintf("  %-6s %-30s", status, filepath.Base(entry.Source))
		if entry.Error != "" {
			line += fmt.Sprintf(" error: %s", entry.Error)
		} else {
			line += fmt.Sprintf(" (%d/%d slots)", entry.Found, len(extract.AllFields()))
		}
		builder.WriteString(line + "\n")
	}

	return builder.String()
}

// FormatReportJSON formats batch results as a JSON report.
func FormatReportJSON(results []Result) string {
	data, err := json.MarshalIndent(NewReport(results), "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
