package extract

import (
	"errors"
	"fmt"
	"strings"
)

// Field identifies one of the eleven extracted slots.
type Field int

const (
	ISBN Field = iota
	AuthorSingle
	AuthorFull
	TitleRaw
	TitleLatin
	TitleTransliteration
	OriginalTitle
	OriginalTitleNoArticle
	CallNumber
	LocationCode
	Classification

	fieldCount
)

// Sentinel values written into a slot that could not be extracted. The
// strings are part of the interchange format and must not change.
const (
	SentinelISBN                   = "(ISBN 추출 실패)"
	SentinelAuthor                 = "(저자 추출 실패)"
	SentinelTitleRaw               = "(245 필드 추출 실패)"
	SentinelTitleTransliteration   = "추후 알파벳/숫자 to 한글 변환기능 추가"
	SentinelOriginalTitle          = "(원서명 추출 실패)"
	SentinelOriginalTitleNoArticle = "(정관사 제거 원서명 추출 실패)"
	SentinelCallNumber             = "(청구기호 추출 실패)"
	SentinelNoCallNumber           = "(청구기호 없음)"
)

type fieldInfo struct {
	key      string
	slug     string
	label    string
	sentinel string
}

var fieldTable = [fieldCount]fieldInfo{
	ISBN:                   {"F1_ISBN", "isbn", "ISBN", SentinelISBN},
	AuthorSingle:           {"F2_Author_SurnameOrCorporate", "author_single", "Author (surname or corporate)", SentinelAuthor},
	AuthorFull:             {"F3_Author_FullOrMultiple", "author_full", "Author (full or multiple)", SentinelAuthor},
	TitleRaw:               {"F4_245_Unprocessed", "title_raw", "Title (245, unprocessed)", SentinelTitleRaw},
	TitleLatin:             {"F5_LatinNumericDetection", "title_latin", "Latin and numeric runs of the title", ""},
	TitleTransliteration:   {"F6_LatinNumericToKorean", "title_transliteration", "Latin and numeric runs in Hangul", SentinelTitleTransliteration},
	OriginalTitle:          {"F7_OriginalTitle_WithArticle", "original_title", "Original title", SentinelOriginalTitle},
	OriginalTitleNoArticle: {"F8_OriginalTitle_WithoutArticle", "original_title_no_article", "Original title without article", SentinelOriginalTitleNoArticle},
	CallNumber:             {"F9_CallNumber", "call_number", "Call number", SentinelCallNumber},
	LocationCode:           {"F10_SpecialCallNumber", "location_code", "Special shelving location", SentinelNoCallNumber},
	Classification:         {"F11_DDC", "classification", "DDC classification", ""},
}

// ErrUnknownField is returned by ParseField for names that match no slot.
var ErrUnknownField = errors.New("unknown field")

// AllFields returns every field in slot order.
func AllFields() []Field {
	fields := make([]Field, fieldCount)
	for i := range fields {
		fields[i] = Field(i)
	}
	return fields
}

// Valid reports whether f names a slot.
func (f Field) Valid() bool {
	return f >= 0 && f < fieldCount
}

// Key returns the interchange key, for example "F1_ISBN".
func (f Field) Key() string {
	if !f.Valid() {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldTable[f].key
}

// Slug returns the snake_case name used in presets and on the command line.
func (f Field) Slug() string {
	if !f.Valid() {
		return ""
	}
	return fieldTable[f].slug
}

// Label returns a short human readable description.
func (f Field) Label() string {
	if !f.Valid() {
		return ""
	}
	return fieldTable[f].label
}

// Sentinel returns the value written when the slot is Missing.
func (f Field) Sentinel() string {
	if !f.Valid() {
		return ""
	}
	return fieldTable[f].sentinel
}

func (f Field) String() string {
	return f.Key()
}

// ParseField accepts an interchange key or a slug, case-insensitively.
func ParseField(name string) (Field, error) {
	name = strings.TrimSpace(name)
	for i, info := range fieldTable {
		if strings.EqualFold(name, info.key) || strings.EqualFold(name, info.slug) {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Status tells whether a slot holds extracted data.
type Status int

const (
	OK Status = iota
	Missing
	Unparseable
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Missing:
		return "missing"
	case Unparseable:
		return "unparseable"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ok":
		*s = OK
	case "missing":
		*s = Missing
	case "unparseable":
		*s = Unparseable
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Slot is the result of one extractor. When Status is not OK, Value holds
// the field's sentinel so flat consumers still see the legacy text.
type Slot struct {
	Value  string `json:"value" yaml:"value"`
	Status Status `json:"status" yaml:"status"`
}

// OK reports whether the slot holds extracted data.
func (s Slot) OK() bool {
	return s.Status == OK
}

// Found returns an OK slot holding value.
func Found(value string) Slot {
	return Slot{Value: value, Status: OK}
}

// NotFound returns a Missing slot holding f's sentinel.
func NotFound(f Field) Slot {
	return Slot{Value: f.Sentinel(), Status: Missing}
}

// Record holds the eleven slots extracted from one bibliographic record.
type Record struct {
	ISBN                   Slot `json:"F1_ISBN" yaml:"F1_ISBN"`
	AuthorSingle           Slot `json:"F2_Author_SurnameOrCorporate" yaml:"F2_Author_SurnameOrCorporate"`
	AuthorFull             Slot `json:"F3_Author_FullOrMultiple" yaml:"F3_Author_FullOrMultiple"`
	TitleRaw               Slot `json:"F4_245_Unprocessed" yaml:"F4_245_Unprocessed"`
	TitleLatin             Slot `json:"F5_LatinNumericDetection" yaml:"F5_LatinNumericDetection"`
	TitleTransliteration   Slot `json:"F6_LatinNumericToKorean" yaml:"F6_LatinNumericToKorean"`
	OriginalTitle          Slot `json:"F7_OriginalTitle_WithArticle" yaml:"F7_OriginalTitle_WithArticle"`
	OriginalTitleNoArticle Slot `json:"F8_OriginalTitle_WithoutArticle" yaml:"F8_OriginalTitle_WithoutArticle"`
	CallNumber             Slot `json:"F9_CallNumber" yaml:"F9_CallNumber"`
	LocationCode           Slot `json:"F10_SpecialCallNumber" yaml:"F10_SpecialCallNumber"`
	Classification         Slot `json:"F11_DDC" yaml:"F11_DDC"`
}

// Blank returns a record with every slot Missing.
func Blank() Record {
	var r Record
	for _, f := range AllFields() {
		r.Set(f, NotFound(f))
	}
	return r
}

func (r *Record) slot(f Field) *Slot {
	switch f {
	case ISBN:
		return &r.ISBN
	case AuthorSingle:
		return &r.AuthorSingle
	case AuthorFull:
		return &r.AuthorFull
	case TitleRaw:
		return &r.TitleRaw
	case TitleLatin:
		return &r.TitleLatin
	case TitleTransliteration:
		return &r.TitleTransliteration
	case OriginalTitle:
		return &r.OriginalTitle
	case OriginalTitleNoArticle:
		return &r.OriginalTitleNoArticle
	case CallNumber:
		return &r.CallNumber
	case LocationCode:
		return &r.LocationCode
	case Classification:
		return &r.Classification
	default:
		return nil
	}
}

// Get returns the slot for f. Unknown fields yield a zero Slot.
func (r Record) Get(f Field) Slot {
	if s := r.slot(f); s != nil {
		return *s
	}
	return Slot{}
}

// Set replaces the slot for f. Unknown fields are ignored.
func (r *Record) Set(f Field, s Slot) {
	if p := r.slot(f); p != nil {
		*p = s
	}
}

// Apply overwrites the slots named in p.
func (r *Record) Apply(p Partial) {
	for _, f := range AllFields() {
		if s, ok := p[f]; ok {
			r.Set(f, s)
		}
	}
}

// Strings flattens the record to the legacy key/value form.
func (r Record) Strings() map[string]string {
	out := make(map[string]string, fieldCount)
	for _, f := range AllFields() {
		out[f.Key()] = r.Get(f).Value
	}
	return out
}

// Values returns slot values in slot order.
func (r Record) Values() []string {
	values := make([]string, 0, fieldCount)
	for _, f := range AllFields() {
		values = append(values, r.Get(f).Value)
	}
	return values
}

// Keys returns the interchange keys in slot order.
func Keys() []string {
	keys := make([]string, 0, fieldCount)
	for _, f := range AllFields() {
		keys = append(keys, f.Key())
	}
	return keys
}
