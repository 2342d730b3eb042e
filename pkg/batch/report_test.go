package batch

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/coolbeans/marcx/pkg/extract"
)

func sampleResults() []Result {
	ok := extract.Blank()
	ok.ISBN = extract.Found("9791130667874")
	ok.TitleRaw = extract.Found("Malibu")

	return []Result{
		{ID: "1", Source: "/in/malibu.txt", Record: ok},
		{ID: "2", Source: "/in/empty.txt", Record: extract.Blank(), Err: errors.New("anchor not found")},
	}
}

func TestNewReport(t *testing.T) {
	report := NewReport(sampleResults())

	if report.Total != 2 || report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("totals = %d/%d/%d, want 2/1/1", report.Total, report.Succeeded, report.Failed)
	}
	if report.Entries[0].Found != 2 {
		t.Errorf("Entries[0].Found = %d, want 2", report.Entries[0].Found)
	}
	if report.Entries[1].Status != StatusFailed || report.Entries[1].Error == "" {
		t.Errorf("Entries[1] = %+v, want failed entry with error", report.Entries[1])
	}
}

func TestFormatReport(t *testing.T) {
	got := FormatReport(sampleResults())

	for _, want := range []string{
		"Batch Extraction Report",
		"Records: 2 | Succeeded: 1 | Failed: 1",
		"[OK]",
		"malibu.txt",
		"(2/11 slots)",
		"[FAIL]",
		"error: anchor not found",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatReport() missing %q:\n%s", want, got)
		}
	}
}

func TestFormatReportJSON(t *testing.T) {
	var report Report
	if err := json.Unmarshal([]byte(FormatReportJSON(sampleResults())), &report); err != nil {
		t.Fatalf("FormatReportJSON() produced invalid JSON: %v", err)
	}
	if report.Total != 2 || len(report.Entries) != 2 {
		t.Errorf("report = %+v, want two entries", report)
	}
	if report.Entries[1].Error != "anchor not found" {
		t.Errorf("Entries[1].Error = %q", report.Entries[1].Error)
	}
}
