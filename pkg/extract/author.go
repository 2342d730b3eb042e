package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/coolbeans/marcx/pkg/marc"
)

const (
	originalAuthorLabel = "원저자명:"
	referenceMarker     = "참고정보"
)

var authorTags = []string{"100", "110", "700", "710"}

// AuthorSingle returns one author: a CJK original author name from a 500
// note when present, otherwise the surname (or corporate name) of the first
// 1XX/7XX heading.
func (p *Pipeline) AuthorSingle(fields marc.Fields) Slot {
	original, names := p.collectAuthors(fields)
	return p.authorSingle(original, names)
}

// AuthorFull returns every 1XX/7XX heading joined with ", ".
func (p *Pipeline) AuthorFull(fields marc.Fields) Slot {
	_, names := p.collectAuthors(fields)
	return p.authorFull(names)
}

func (p *Pipeline) authorSingle(original string, names []string) Slot {
	if original != "" && marc.HasCJK(original) {
		name, _, _ := strings.Cut(original, ",")
		name = strings.TrimSpace(p.parentheticalPattern.ReplaceAllString(name, ""))
		return p.found(AuthorSingle, "500", name)
	}
	if len(names) == 0 {
		return p.notFound(AuthorSingle, "1XX/7XX", "no author heading found")
	}
	first := names[0]
	if surname, _, ok := strings.Cut(first, ","); ok {
		return p.found(AuthorSingle, "1XX/7XX", strings.TrimSpace(surname))
	}
	return p.found(AuthorSingle, "1XX/7XX", first)
}

func (p *Pipeline) authorFull(names []string) Slot {
	if len(names) == 0 {
		return p.notFound(AuthorFull, "1XX/7XX", "no author heading found")
	}
	return p.found(AuthorFull, "1XX/7XX", strings.Join(names, ", "))
}

// collectAuthors returns the original author named in a 500 note and the
// headings of 100, 110, 700 and 710 in that tag order.
func (p *Pipeline) collectAuthors(fields marc.Fields) (string, []string) {
	var original string
	for _, content := range fields.Get("500") {
		if !strings.Contains(content, originalAuthorLabel) {
			continue
		}
		if m := p.originalAuthorPattern.FindStringSubmatch(content); m != nil && m[1] != "" {
			original = strings.TrimSpace(m[1])
			p.logger.Debug("original author note found", zap.String("tag", "500"), zap.String("name", original))
			break
		}
	}

	var names []string
	for _, tag := range authorTags {
		for _, content := range fields.Get(tag) {
			var name string
			switch tag {
			case "100", "700":
				name = p.personalName(content)
			case "110", "710":
				name = p.corporateName(content)
			}
			if name == "" || name == marc.EndMarker {
				continue
			}
			names = append(names, name)
		}
	}
	return original, names
}

func (p *Pipeline) personalName(content string) string {
	m := p.personalNamePattern.FindStringSubmatch(content)
	if m == nil || m[1] == "" {
		return ""
	}
	name := strings.TrimSpace(m[1])
	if before, _, ok := strings.Cut(name, referenceMarker); ok {
		name = strings.TrimSpace(before)
	}
	name = strings.TrimSuffix(name, ",")
	return strings.TrimSpace(strings.ReplaceAll(name, marc.EndMarker, ""))
}

func (p *Pipeline) corporateName(content string) string {
	m := p.corporateNamePattern.FindStringSubmatch(content)
	if m == nil || m[1] == "" {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(m[1]), marc.EndMarker, ""))
}
