package extract

import (
	"github.com/coolbeans/marcx/pkg/classify"
	"github.com/coolbeans/marcx/pkg/marc"
)

// Toolkit is the set of operations an Override may call. It exposes the
// helpers and the individual extractors, nothing else.
type Toolkit interface {
	Reconstruct(raw string) (*marc.Record, error)
	Subfield(content string, code rune) string
	HasCJK(text string) bool
	StripLeadingArticle(text string) string
	Classify(value string) classify.Result

	ISBN(fields marc.Fields) Slot
	AuthorSingle(fields marc.Fields) Slot
	AuthorFull(fields marc.Fields) Slot
	TitleRaw(fields marc.Fields) Slot
	TitleLatin(fields marc.Fields) Slot
	TitleTransliteration(fields marc.Fields) Slot
	OriginalTitle(fields marc.Fields) Slot
	OriginalTitleNoArticle(fields marc.Fields) Slot
	CallNumber(fields marc.Fields) Slot
	LocationCode(fields marc.Fields) Slot
	Classification(fields marc.Fields) Slot
}

// Partial holds the slots an Override replaces.
type Partial map[Field]Slot

// Override customizes extraction. It receives a copy of the reconstructed
// fields and returns the slots it wants to replace. An error discards the
// partial; extraction continues with the remaining overrides.
type Override interface {
	Name() string
	OverrideExtract(tk Toolkit, fields marc.Fields) (Partial, error)
}

// OverrideFunc adapts a function to the Override interface.
type OverrideFunc struct {
	Label string
	Fn    func(tk Toolkit, fields marc.Fields) (Partial, error)
}

func (o OverrideFunc) Name() string { return o.Label }

func (o OverrideFunc) OverrideExtract(tk Toolkit, fields marc.Fields) (Partial, error) {
	return o.Fn(tk, fields)
}

func cloneFields(fields marc.Fields) marc.Fields {
	out := make(marc.Fields, len(fields))
	for tag, occurrences := range fields {
		out[tag] = append([]string(nil), occurrences...)
	}
	return out
}
