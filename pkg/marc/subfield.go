package marc

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Subfield returns the trimmed value of the first subfield with the given
// code, or "" when absent. The value runs up to the next delimiter that is
// followed by a letter or digit, or to the end of content.
func Subfield(content string, code rune) string {
	marker := Delimiter + string(code)
	start := strings.Index(content, marker)
	if start < 0 {
		return ""
	}
	rest := content[start+len(marker):]
	return strings.TrimSpace(rest[:nextSubfield(rest)])
}

// nextSubfield returns the byte offset of the next delimiter that starts a
// subfield, or len(s).
func nextSubfield(s string) int {
	offset := 0
	for {
		i := strings.Index(s[offset:], Delimiter)
		if i < 0 {
			return len(s)
		}
		at := offset + i
		r, _ := utf8.DecodeRuneInString(s[at+len(Delimiter):])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return at
		}
		offset = at + len(Delimiter)
	}
}

// Subfields splits content into its subfields in source order. Text before
// the first delimiter (the indicators) is not part of any subfield. A
// trailing end marker is dropped; values are otherwise kept verbatim.
func Subfields(content string) []SubField {
	content = strings.TrimSuffix(strings.TrimSpace(content), EndMarker)
	start := strings.Index(content, Delimiter)
	if start < 0 {
		return nil
	}

	var subfields []SubField
	rest := content[start:]
	for len(rest) > 0 {
		body := rest[len(Delimiter):]
		end := nextSubfield(body)
		unit := body[:end]
		if unit != "" {
			code, size := utf8.DecodeRuneInString(unit)
			subfields = append(subfields, SubField{Code: code, Value: unit[size:]})
		}
		rest = body[end:]
	}
	return subfields
}

// Indicators returns the non-space characters preceding the first delimiter,
// with '#' (explicit blank) removed.
func Indicators(content string) string {
	prefix := content
	if i := strings.Index(content, Delimiter); i >= 0 {
		prefix = content[:i]
	}
	var b strings.Builder
	for _, r := range prefix {
		if unicode.IsSpace(r) || r == '#' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseDataField builds the structured view of one occurrence of tag.
// Missing or blank indicators are reported as a single space.
func ParseDataField(tag, content string) DataField {
	field := DataField{Tag: tag, Indicator1: " ", Indicator2: " "}

	prefix := content
	if i := strings.Index(content, Delimiter); i >= 0 {
		prefix = content[:i]
	}
	var indicators []string
	for _, r := range prefix {
		if unicode.IsSpace(r) {
			continue
		}
		if r == '#' {
			indicators = append(indicators, " ")
			continue
		}
		indicators = append(indicators, string(r))
	}
	if len(indicators) > 0 {
		field.Indicator1 = indicators[0]
	}
	if len(indicators) > 1 {
		field.Indicator2 = indicators[1]
	}

	field.Subfields = Subfields(content)
	return field
}
