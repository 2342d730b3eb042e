package marc

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// ErrAnchorNotFound is returned when the pasted text has no leader/status
// anchor. It is the only hard failure of reconstruction.
var ErrAnchorNotFound = errors.New("record start anchor not found")

// lineKind classifies one trimmed input line.
type lineKind int

const (
	lineContinuation lineKind = iota
	lineControlNumber
	lineEndOfRecord
	lineTagStart
)

func (k lineKind) String() string {
	switch k {
	case lineControlNumber:
		return "control-number"
	case lineEndOfRecord:
		return "end-of-record"
	case lineTagStart:
		return "tag-start"
	default:
		return "continuation"
	}
}

// Reconstructor groups pasted lines into fields. It is safe for concurrent use.
type Reconstructor struct {
	logger *zap.Logger

	controlNumberPattern *regexp.Regexp
	endOfRecordPattern   *regexp.Regexp
	endMarkerTagPattern  *regexp.Regexp
	tagStartPattern      *regexp.Regexp
}

// NewReconstructor creates a Reconstructor. A nil logger discards diagnostics.
func NewReconstructor(logger *zap.Logger) *Reconstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconstructor{
		logger:               logger,
		controlNumberPattern: regexp.MustCompile(`^\d{9,10}$`),
		endOfRecordPattern:   regexp.MustCompile(`^▲[^\d\s]`),
		endMarkerTagPattern:  regexp.MustCompile(`^▲\d{3}`),
		tagStartPattern:      regexp.MustCompile(`^(\d{2,3})`),
	}
}

var defaultReconstructor = NewReconstructor(nil)

// Reconstruct parses raw with a Reconstructor that discards diagnostics.
func Reconstruct(raw string) (*Record, error) {
	return defaultReconstructor.Reconstruct(raw)
}

// classify returns the kind of line and, for tag-start lines, the raw tag
// token. Kinds are checked in priority order: a nine digit line is a control
// number even though it also starts with digits.
func (r *Reconstructor) classify(line string) (lineKind, string) {
	if r.controlNumberPattern.MatchString(line) {
		return lineControlNumber, ""
	}
	if r.isEndOfRecord(line) {
		return lineEndOfRecord, ""
	}
	if m := r.tagStartPattern.FindStringSubmatch(line); m != nil {
		return lineTagStart, m[1]
	}
	return lineContinuation, ""
}

func (r *Reconstructor) isEndOfRecord(line string) bool {
	if r.endOfRecordPattern.MatchString(line) {
		return true
	}
	return strings.HasPrefix(line, EndMarker) &&
		utf8.RuneCountInString(line) < 5 &&
		!r.endMarkerTagPattern.MatchString(line)
}

// Reconstruct scans raw line by line and groups the lines following the
// start anchor into fields.
func (r *Reconstructor) Reconstruct(raw string) (*Record, error) {
	lines := splitLines(strings.Map(foldRune, norm.NFC.String(raw)))

	start := findAnchor(lines)
	if start < 0 {
		r.logger.Warn("record start anchor not found; skipping extraction",
			zap.String("leader_marker", LeaderMarker),
			zap.String("status_marker", StatusMarker),
			zap.Int("lines", len(lines)),
		)
		return nil, fmt.Errorf("%w: expected a %q line followed by %q", ErrAnchorNotFound, LeaderMarker, StatusMarker)
	}

	acc := &accumulator{fields: make(Fields)}
	var leader []string
	inLeader := true

scan:
	for _, line := range lines[start+2:] {
		kind, tag := r.classify(line)
		switch kind {
		case lineControlNumber:
			inLeader = false
			acc.flush()
			acc.reset()

		case lineEndOfRecord:
			r.logger.Info("end of record marker found; stopping reconstruction", zap.String("line", line))
			acc.flush()
			break scan

		case lineTagStart:
			inLeader = false
			acc.flush()
			acc.tag = padTag(tag)
			acc.parts = []string{line[len(tag):]}

		case lineContinuation:
			if acc.tag != "" {
				acc.parts = append(acc.parts, line)
				continue
			}
			if inLeader && !hasHangul(line) {
				leader = append(leader, line)
			}
		}
	}
	acc.flush()

	r.logger.Debug("record reconstructed", zap.Int("tags", len(acc.fields)))
	return &Record{Leader: strings.Join(leader, " "), Fields: acc.fields}, nil
}

// accumulator collects the fragments of the field currently being read.
type accumulator struct {
	tag    string
	parts  []string
	fields Fields
}

func (a *accumulator) flush() {
	if a.tag == "" || len(a.parts) == 0 {
		return
	}
	content := strings.TrimSuffix(strings.TrimSpace(strings.Join(a.parts, "")), EndMarker)
	a.parts = nil
	if content == "" {
		return
	}
	a.fields.Add(a.tag, content)
}

func (a *accumulator) reset() {
	a.tag = ""
	a.parts = nil
}

// foldRune maps Unicode spaces to an ASCII space and full-width digits to
// ASCII digits, so line classification and the extractors' patterns see the
// forms they match.
func foldRune(r rune) rune {
	switch {
	case r < utf8.RuneSelf:
		return r
	case unicode.IsSpace(r) || unicode.Is(unicode.Z, r):
		return ' '
	case unicode.IsDigit(r):
		if narrow := width.LookupRune(r).Narrow(); narrow != 0 {
			return narrow
		}
	}
	return r
}

func splitLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func findAnchor(lines []string) int {
	for i := 0; i+1 < len(lines); i++ {
		if lines[i] == LeaderMarker && lines[i+1] == StatusMarker {
			return i
		}
	}
	return -1
}

func padTag(tag string) string {
	for len(tag) < 3 {
		tag = "0" + tag
	}
	return tag
}
