package extract

import (
	"strings"

	"github.com/coolbeans/marcx/pkg/marc"
)

// ISBN returns the first ISBN found in 020 with hyphens removed.
func (p *Pipeline) ISBN(fields marc.Fields) Slot {
	occurrences := fields.Get("020")
	if len(occurrences) == 0 {
		return p.notFound(ISBN, "020", "field not present")
	}
	for _, content := range occurrences {
		if m := p.isbnPattern.FindStringSubmatch(content); m != nil && m[1] != "" {
			return p.found(ISBN, "020", strings.ReplaceAll(m[1], "-", ""))
		}
	}
	return p.notFound(ISBN, "020", "no ISBN in field")
}

// Classification returns the first class number in subfield a of 082.
func (p *Pipeline) Classification(fields marc.Fields) Slot {
	occurrences := fields.Get("082")
	if len(occurrences) == 0 {
		return p.notFound(Classification, "082", "field not present")
	}
	for _, content := range occurrences {
		if m := p.classNumberPattern.FindStringSubmatch(content); m != nil {
			return p.found(Classification, "082", m[1])
		}
	}
	return p.notFound(Classification, "082", "no class number in field")
}
