// Package batch runs extraction over many pasted records.
package batch

import (
	"github.com/google/uuid"

	"github.com/coolbeans/marcx/pkg/extract"
)

// Entry statuses used in reports.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Job is one record to extract.
type Job struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Text   string `json:"-"`
}

// NewJob creates a job with a fresh identifier.
func NewJob(source, text string) Job {
	return Job{ID: uuid.NewString(), Source: source, Text: text}
}

// Config controls a Runner.
type Config struct {
	// Workers bounds the number of concurrent extractions. Values below one
	// mean one.
	Workers int

	// Display also renders each reconstructed record with marc.Format.
	Display bool
}

// Result is the outcome of one job. Record is extract.Blank() when Err is set.
type Result struct {
	ID      string         `json:"id"`
	Source  string         `json:"source"`
	Record  extract.Record `json:"record"`
	Display string         `json:"display,omitempty"`
	Err     error          `json:"-"`
}

// Status returns StatusOK or StatusFailed.
func (r Result) Status() string {
	if r.Err != nil {
		return StatusFailed
	}
	return StatusOK
}

// Report summarises a batch run.
type Report struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Entries   []ReportEntry `json:"entries"`
}

// ReportEntry is one line of a Report.
type ReportEntry struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Status string `json:"status"`
	// Found counts the slots with an OK status.
	Found int    `json:"found"`
	Error string `json:"error,omitempty"`
}

// NewReport builds a Report from results in order.
func NewReport(results []Result) *Report {
	report := &Report{Total: len(results)}
	for _, res := range results {
		entry := ReportEntry{ID: res.ID, Source: res.Source, Status: res.Status()}
		if res.Err != nil {
			entry.Error = res.Err.Error()
			report.Failed++
		} else {
			report.Succeeded++
			for _, f := range extract.AllFields() {
				if res.Record.Get(f).OK() {
					entry.Found++
				}
			}
		}
		report.Entries = append(report.Entries, entry)
	}
	return report
}
