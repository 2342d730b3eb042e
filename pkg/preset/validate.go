package preset

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coolbeans/marcx/pkg/extract"
)

// ValidationError describes one problem in a preset document.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no errors"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(errs), strings.Join(messages, "\n  - "))
}

// ValidateRules reports every problem found in p.
func ValidateRules(p *Preset) ValidationErrors {
	var errs ValidationErrors

	if p.Name == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "required field is missing"})
	} else if !isValidName(p.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "must be lowercase alphanumeric with hyphens, starting with a letter",
			Value:   p.Name,
		})
	}

	if p.Version == "" {
		errs = append(errs, ValidationError{Field: "version", Message: "required field is missing"})
	} else if !isValidVersion(p.Version) {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: "must be semantic version (e.g., 1.0.0)",
			Value:   p.Version,
		})
	}

	if len(p.Rules) == 0 {
		errs = append(errs, ValidationError{Field: "rules", Message: "at least one rule is needed"})
	}
	for i := range p.Rules {
		errs = append(errs, validateRule(fmt.Sprintf("rules[%d]", i), &p.Rules[i])...)
	}

	return errs
}

func validateRule(field string, r *Rule) ValidationErrors {
	var errs ValidationErrors

	target, err := extract.ParseField(r.Field)
	if err != nil {
		errs = append(errs, ValidationError{Field: field + ".field", Message: "unknown slot", Value: r.Field})
	}

	if r.Tag == "" && r.Value == "" {
		errs = append(errs, ValidationError{Field: field, Message: "must specify either tag or value"})
	}
	if r.Tag != "" && !isValidTag(r.Tag) {
		errs = append(errs, ValidationError{Field: field + ".tag", Message: "must be three digits", Value: r.Tag})
	}

	if r.Tag == "" {
		for _, opt := range []struct {
			name string
			set  bool
		}{
			{"indicators", r.Indicators != ""},
			{"subfields", r.Subfields != ""},
			{"pattern", r.Pattern != ""},
		} {
			if opt.set {
				errs = append(errs, ValidationError{Field: field + "." + opt.name, Message: "requires tag"})
			}
		}
	}

	if n := len(normalizeIndicators(r.Indicators)); n > 2 {
		errs = append(errs, ValidationError{Field: field + ".indicators", Message: "at most two indicators", Value: r.Indicators})
	}

	for _, c := range r.Subfields {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')) {
			errs = append(errs, ValidationError{Field: field + ".subfields", Message: "subfield codes must be lowercase letters or digits", Value: r.Subfields})
			break
		}
	}

	if r.Pattern != "" {
		if _, err := regexp.Compile(r.Pattern); err != nil {
			errs = append(errs, ValidationError{Field: field + ".pattern", Message: "invalid regular expression", Value: err.Error()})
		}
	}

	switch r.Occurrence {
	case "", OccurrenceFirst, OccurrenceAll:
	default:
		errs = append(errs, ValidationError{Field: field + ".occurrence", Message: "must be first or all", Value: r.Occurrence})
	}

	if r.Classify && err == nil && target == extract.LocationCode {
		errs = append(errs, ValidationError{Field: field + ".classify", Message: "classify derives location_code and cannot target it"})
	}

	return errs
}

func isValidTag(tag string) bool {
	if len(tag) != 3 {
		return false
	}
	for _, c := range tag {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isValidName(name string) bool {
	if len(name) == 0 {
		return false
	}
	if name[0] < 'a' || name[0] > 'z' {
		return false
	}
	for _, c := range name[1:] {
		if !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-') {
			return false
		}
	}
	return true
}

func isValidVersion(v string) bool {
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return false
	}
	for _, part := range parts {
		if len(part) == 0 {
			return false
		}
		for _, c := range part {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}
