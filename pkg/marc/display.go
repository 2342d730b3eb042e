package marc

import (
	"fmt"
	"strings"
)

// Format renders rec in the line-oriented MARCedit mnemonic style:
//
//	=LDR  cam   22     c 4500
//	=008  220801s2022    ulk
//	=245  10$a...$b...
//
// Blank indicators are written as a backslash. The output is a view of the
// reconstructed fields only; it carries no extraction logic.
func Format(rec *Record) string {
	if rec == nil {
		return ""
	}

	var b strings.Builder
	leader := strings.ReplaceAll(rec.Leader, " ", "")
	fmt.Fprintf(&b, "=LDR  %-5s 22     c 4500\n", leader)

	for _, tag := range rec.Fields.Tags() {
		for _, content := range rec.Fields.Get(tag) {
			if IsControlTag(tag) {
				fmt.Fprintf(&b, "=%s  %s\n", tag, strings.TrimSpace(content))
				continue
			}
			b.WriteString(FormatDataField(ParseDataField(tag, content)))
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatDataField renders one data field as "=TAG  I1I2$aValue$bValue".
func FormatDataField(field DataField) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=%s  %s%s", field.Tag, displayIndicator(field.Indicator1), displayIndicator(field.Indicator2))
	for _, sf := range field.Subfields {
		b.WriteByte('$')
		b.WriteRune(sf.Code)
		b.WriteString(sf.Value)
	}
	return b.String()
}

func displayIndicator(ind string) string {
	if strings.TrimSpace(ind) == "" {
		return `\`
	}
	return ind
}
