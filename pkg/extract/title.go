package extract

import (
	"strings"
	"unicode"

	"github.com/coolbeans/marcx/pkg/marc"
)

const crossReferenceDelimiter = "=▼x"

// Title prefixes for 245 whose remainder is taken verbatim.
var titleIndicatorPrefixes = []string{"10▼a", "00▼a"}

// TitleRaw returns the first 245 occurrence with subfield delimiters kept.
func (p *Pipeline) TitleRaw(fields marc.Fields) Slot {
	content, ok := fields.First("245")
	if !ok {
		return p.notFound(TitleRaw, "245", "field not present")
	}

	for _, prefix := range titleIndicatorPrefixes {
		if rest, ok := strings.CutPrefix(content, prefix); ok {
			title := strings.TrimSpace(strings.ReplaceAll(rest, marc.EndMarker, ""))
			if title == "" {
				return p.notFound(TitleRaw, "245", "title is empty")
			}
			return p.found(TitleRaw, "245", title)
		}
	}

	m := p.subfieldAPattern.FindStringSubmatch(content)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return p.notFound(TitleRaw, "245", "no subfield a in field")
	}
	return p.found(TitleRaw, "245", strings.TrimSpace(m[1]))
}

// TitleLatin returns the Latin and numeric runs of the 245 title, joined by a
// space. A title without any such run yields an OK empty slot.
func (p *Pipeline) TitleLatin(fields marc.Fields) Slot {
	return p.titleLatin(p.TitleRaw(fields))
}

func (p *Pipeline) titleLatin(raw Slot) Slot {
	if !raw.OK() {
		return p.notFound(TitleLatin, "245", "no title to analyse")
	}

	text := raw.Value
	if i := strings.Index(text, crossReferenceDelimiter); i >= 0 {
		text = text[:i]
	}
	text = p.titleDelimiterPattern.ReplaceAllString(text, "")

	var runs []string
	for _, run := range p.latinRunPattern.FindAllString(text, -1) {
		if !marc.HasCJK(run) {
			runs = append(runs, run)
		}
	}
	return p.found(TitleLatin, "245", strings.Join(runs, " "))
}

// TitleTransliteration is reserved for a Hangul rendering of TitleLatin and
// is always Missing.
func (p *Pipeline) TitleTransliteration(marc.Fields) Slot {
	return NotFound(TitleTransliteration)
}

// OriginalTitle returns the 246 title with indicators 19, falling back to
// the first one with indicators 39.
func (p *Pipeline) OriginalTitle(fields marc.Fields) Slot {
	occurrences := fields.Get("246")
	if len(occurrences) == 0 {
		return p.notFound(OriginalTitle, "246", "field not present")
	}

	var original, translated string
	for _, content := range occurrences {
		title := p.variantTitle(content)
		if title == "" {
			continue
		}
		switch p.variantIndicators(content) {
		case "19":
			if original == "" {
				original = title
			}
		case "39":
			if translated == "" {
				translated = title
			}
		}
	}

	switch {
	case original != "":
		return p.found(OriginalTitle, "246", original)
	case translated != "":
		return p.found(OriginalTitle, "246", translated)
	default:
		return p.notFound(OriginalTitle, "246", "no 246 with indicators 19 or 39")
	}
}

func (p *Pipeline) variantIndicators(content string) string {
	m := p.indicatorPattern.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r == '#' || unicode.IsSpace(r) || unicode.Is(unicode.Z, r) {
			return -1
		}
		return r
	}, m[1])
}

func (p *Pipeline) variantTitle(content string) string {
	m := p.subfieldAPattern.FindStringSubmatch(content)
	if m == nil || m[1] == "" {
		return ""
	}
	title := strings.TrimSpace(m[1])
	if r := p.variantRefinePattern.FindStringSubmatch(title); r != nil && r[1] != "" {
		title = strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(r[1]), marc.EndMarker, ""))
	}
	return title
}

// OriginalTitleNoArticle returns OriginalTitle with a leading article removed.
func (p *Pipeline) OriginalTitleNoArticle(fields marc.Fields) Slot {
	return p.originalTitleNoArticle(p.OriginalTitle(fields))
}

func (p *Pipeline) originalTitleNoArticle(original Slot) Slot {
	if !original.OK() {
		return p.notFound(OriginalTitleNoArticle, "246", "no original title")
	}
	return p.found(OriginalTitleNoArticle, "246", marc.StripLeadingArticle(original.Value))
}
