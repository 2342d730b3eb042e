package marc

import (
	"strings"
	"testing"
)

func TestFormatSampleRecord(t *testing.T) {
	rec, err := Reconstruct(loadRecord(t, "malibu.txt"))
	if err != nil {
		t.Fatalf("Reconstruct() error = %v", err)
	}

	out := Format(rec)
	lines := strings.Split(out, "\n")

	if lines[0] != "=LDR  cam   22     c 4500" {
		t.Errorf("leader line = %q", lines[0])
	}

	wantLines := []string{
		"=007  ta",
		"=082  04$a813.6$223",
		"=090  \\\\$a823.92$bR353m한",
		"=100  1\\$aReid, Taylor Jenkins",
		"=246  19$aMalibu rising",
		"=700  1\\$a이경아,$e역",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want+"\n") && !strings.HasSuffix(out, want) {
			t.Errorf("Format() missing line %q in:\n%s", want, out)
		}
	}

	// Tags are rendered in ascending order.
	prev := ""
	for _, line := range lines[1:] {
		tag := line[1:4]
		if tag < prev {
			t.Errorf("tag %s rendered after %s", tag, prev)
		}
		prev = tag
	}
}

func TestFormatNil(t *testing.T) {
	if got := Format(nil); got != "" {
		t.Errorf("Format(nil) = %q, want empty", got)
	}
}

func TestFormatDataField(t *testing.T) {
	field := DataField{
		Tag:        "245",
		Indicator1: "0",
		Indicator2: " ",
		Subfields:  []SubField{{Code: 'a', Value: "Title :"}, {Code: 'b', Value: "subtitle"}},
	}
	if got, want := FormatDataField(field), `=245  0\$aTitle :$bsubtitle`; got != want {
		t.Errorf("FormatDataField() = %q, want %q", got, want)
	}
}
