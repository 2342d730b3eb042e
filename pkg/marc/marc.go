// Package marc reconstructs pasted catalog screens into MARC-like fields.
//
// The input is not an ISO 2709 record but the text a cataloguer copies out of
// a KOLIS-style record view: a leader block, then one field per line (or per
// group of lines) with subfields introduced by the ▼ glyph and fields
// terminated by ▲.
package marc

import (
	"sort"
	"strings"
)

const (
	// Delimiter introduces a subfield code inside field content.
	Delimiter = "▼"

	// EndMarker terminates a field in pasted content.
	EndMarker = "▲"

	// LeaderMarker and StatusMarker are the two consecutive lines that
	// anchor the start of a record.
	LeaderMarker = "LDR"
	StatusMarker = "상태"
)

// Fields maps a zero-padded three digit tag to its occurrences in source order.
type Fields map[string][]string

// Add appends one occurrence of tag.
func (f Fields) Add(tag, content string) {
	f[tag] = append(f[tag], content)
}

// Get returns every occurrence of tag, or nil.
func (f Fields) Get(tag string) []string {
	return f[tag]
}

// First returns the first occurrence of tag.
func (f Fields) First(tag string) (string, bool) {
	occurrences := f[tag]
	if len(occurrences) == 0 {
		return "", false
	}
	return occurrences[0], true
}

// Has reports whether tag has at least one occurrence.
func (f Fields) Has(tag string) bool {
	return len(f[tag]) > 0
}

// Tags returns the tags present in ascending order.
func (f Fields) Tags() []string {
	tags := make([]string, 0, len(f))
	for tag, occurrences := range f {
		if len(occurrences) > 0 {
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// Record is the result of reconstructing one pasted record.
type Record struct {
	// Leader holds the leader values found between the start anchor and the
	// first field, with label lines dropped.
	Leader string `json:"leader,omitempty"`
	Fields Fields `json:"fields"`
}

// SubField is one delimited (code, value) unit of a data field.
type SubField struct {
	Code  rune   `json:"code"`
	Value string `json:"value"`
}

// DataField is the structured view of one field occurrence.
type DataField struct {
	Tag        string     `json:"tag"`
	Indicator1 string     `json:"ind1"`
	Indicator2 string     `json:"ind2"`
	Subfields  []SubField `json:"subfields"`
}

// Values returns the values of every subfield with the given code, in order.
func (d DataField) Values(code rune) []string {
	var values []string
	for _, sf := range d.Subfields {
		if sf.Code == code {
			values = append(values, sf.Value)
		}
	}
	return values
}

// IsControlTag reports whether tag is a control field (001-009), which
// carries no indicators or subfields.
func IsControlTag(tag string) bool {
	return len(tag) == 3 && strings.HasPrefix(tag, "00")
}
