// Package extract derives the eleven cataloguing slots from reconstructed
// MARC fields.
//
// Each extractor is independent and never fails: a slot that cannot be
// derived is returned with a Missing or Unparseable status and the legacy
// sentinel text. Only a missing record anchor in ExtractText is an error.
package extract

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/coolbeans/marcx/pkg/classify"
	"github.com/coolbeans/marcx/pkg/marc"
)

// Pipeline runs the extractors and any configured overrides. It is safe for
// concurrent use.
type Pipeline struct {
	logger        *zap.Logger
	classifier    *classify.Classifier
	reconstructor *marc.Reconstructor
	overrides     []Override

	isbnPattern           *regexp.Regexp
	originalAuthorPattern *regexp.Regexp
	personalNamePattern   *regexp.Regexp
	corporateNamePattern  *regexp.Regexp
	parentheticalPattern  *regexp.Regexp
	subfieldAPattern      *regexp.Regexp
	titleDelimiterPattern *regexp.Regexp
	latinRunPattern       *regexp.Regexp
	indicatorPattern      *regexp.Regexp
	variantRefinePattern  *regexp.Regexp
	classNumberPattern    *regexp.Regexp
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClassifier replaces the built-in shelving classifier.
func WithClassifier(c *classify.Classifier) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithOverrides appends overrides, applied in the order given.
func WithOverrides(overrides ...Override) Option {
	return func(p *Pipeline) {
		for _, o := range overrides {
			if o != nil {
				p.overrides = append(p.overrides, o)
			}
		}
	}
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:     zap.NewNop(),
		classifier: classify.Default(),

		// Whitespace classes include \p{Z} so NBSP and other Unicode spaces
		// pasted from web catalogues count as spaces.
		isbnPattern:           regexp.MustCompile(`(?i)▼a([\d\-X]{10,17})(?:[\s\p{Z}]*\(.*?\))?[\s\p{Z}]*(?:▼g|▲|$)`),
		originalAuthorPattern: regexp.MustCompile(`▼a원저자명:[\s\p{Z}]*([^▲]+)▲?`),
		personalNamePattern:   regexp.MustCompile(`▼a(.*?)(?:▼[^\s\p{Z}]|▲|$)`),
		corporateNamePattern:  regexp.MustCompile(`▼a([^▲]+)▲?`),
		parentheticalPattern:  regexp.MustCompile(`[\s\p{Z}]*\(.*?\)`),
		subfieldAPattern:      regexp.MustCompile(`▼a(.*?)(?:▼[^\s\p{Z}]|$)`),
		titleDelimiterPattern: regexp.MustCompile(`[:;/]?▼[a-z0-9]`),
		latinRunPattern:       regexp.MustCompile(`[A-Za-z0-9\x{00C0}-\x{017F}]+(?:[\- ]?[A-Za-z0-9\x{00C0}-\x{017F}]+)*|\d+(?:[\- ]?\d+)*`),
		indicatorPattern:      regexp.MustCompile(`^[\s\p{Z}]*([0-9#\s\p{Z}]{1,4})▼a`),
		variantRefinePattern:  regexp.MustCompile(`^(.*?)(?:[\s\p{Z}]*:▼b|[\s\p{Z}]*/▼d|[\s\p{Z}]*=[^\s\p{Z}]+|[\s\p{Z}]*:?[\s\p{Z}]*▲?$)`),
		classNumberPattern:    regexp.MustCompile(`▼a(\d+(?:\.\d+)?)`),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.reconstructor = marc.NewReconstructor(p.logger)
	return p
}

// Overrides returns the names of the configured overrides in order.
func (p *Pipeline) Overrides() []string {
	names := make([]string, 0, len(p.overrides))
	for _, o := range p.overrides {
		names = append(names, o.Name())
	}
	return names
}

// ExtractText reconstructs raw and extracts its slots. When the record anchor
// is missing it returns Blank() and an error wrapping marc.ErrAnchorNotFound.
func (p *Pipeline) ExtractText(raw string) (Record, error) {
	rec, err := p.reconstructor.Reconstruct(raw)
	if err != nil {
		return Blank(), fmt.Errorf("extracting record: %w", err)
	}
	return p.Extract(rec.Fields), nil
}

// Extract computes every slot from fields and then applies overrides.
func (p *Pipeline) Extract(fields marc.Fields) Record {
	var r Record

	r.ISBN = p.ISBN(fields)

	original, names := p.collectAuthors(fields)
	r.AuthorSingle = p.authorSingle(original, names)
	r.AuthorFull = p.authorFull(names)

	r.TitleRaw = p.TitleRaw(fields)
	r.TitleLatin = p.titleLatin(r.TitleRaw)
	r.TitleTransliteration = p.TitleTransliteration(fields)

	r.OriginalTitle = p.OriginalTitle(fields)
	r.OriginalTitleNoArticle = p.originalTitleNoArticle(r.OriginalTitle)

	r.CallNumber = p.CallNumber(fields)
	r.LocationCode = p.locationCode(r.CallNumber)
	r.Classification = p.Classification(fields)

	p.applyOverrides(&r, fields)
	return r
}

func (p *Pipeline) applyOverrides(r *Record, fields marc.Fields) {
	for _, o := range p.overrides {
		partial, err := p.runOverride(o, fields)
		if err != nil {
			p.logger.Warn("override failed; keeping built-in slots",
				zap.String("override", o.Name()),
				zap.Error(err),
			)
			continue
		}
		for f := range partial {
			if !f.Valid() {
				p.logger.Warn("override returned an unknown field",
					zap.String("override", o.Name()),
					zap.Int("field", int(f)),
				)
				delete(partial, f)
			}
		}
		r.Apply(partial)
		p.logger.Debug("override applied",
			zap.String("override", o.Name()),
			zap.Int("slots", len(partial)),
		)
	}
}

func (p *Pipeline) runOverride(o Override, fields marc.Fields) (partial Partial, err error) {
	defer func() {
		if v := recover(); v != nil {
			partial, err = nil, fmt.Errorf("override panicked: %v", v)
		}
	}()
	return o.OverrideExtract(p, cloneFields(fields))
}

// Reconstruct implements Toolkit.
func (p *Pipeline) Reconstruct(raw string) (*marc.Record, error) {
	return p.reconstructor.Reconstruct(raw)
}

// Subfield implements Toolkit.
func (p *Pipeline) Subfield(content string, code rune) string {
	return marc.Subfield(content, code)
}

// HasCJK implements Toolkit.
func (p *Pipeline) HasCJK(text string) bool {
	return marc.HasCJK(text)
}

// StripLeadingArticle implements Toolkit.
func (p *Pipeline) StripLeadingArticle(text string) string {
	return marc.StripLeadingArticle(text)
}

// Classify implements Toolkit.
func (p *Pipeline) Classify(value string) classify.Result {
	return p.classifier.Classify(value)
}

func (p *Pipeline) found(f Field, tag, value string) Slot {
	p.logger.Debug("slot extracted",
		zap.String("slot", f.Key()),
		zap.String("tag", tag),
		zap.String("value", value),
	)
	return Found(value)
}

func (p *Pipeline) notFound(f Field, tag, reason string) Slot {
	p.logger.Warn(reason,
		zap.String("slot", f.Key()),
		zap.String("tag", tag),
	)
	return NotFound(f)
}
