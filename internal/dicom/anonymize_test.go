package dicom

import (
	"bytes"
	"testing"

	"github.com/suyashkumar/dicom/pkg/tag"
)

var (
	patientName     = tag.Tag{Group: 0x0010, Element: 0x0010}
	institutionName = tag.Tag{Group: 0x0008, Element: 0x0080}
	admissionID     = tag.Tag{Group: 0x0038, Element: 0x0010}
)

func TestRedactSyntheticIndex(t *testing.T) {
	tests := []struct {
		name    string
		element Element
		before  string
		want    string
	}{
		{
			name:    "value fills element",
			element: Element{Value: "DOE^JANE", HasValue: true, Offset: 4, Length: 8},
			before:  "DOE^JANE",
			want:    "00000000",
		},
		{
			name:    "padded value",
			element: Element{Value: "SMITH", HasValue: true, Offset: 4, Length: 6},
			before:  "SMITH ",
			want:    "00000 ",
		},
		{
			name:    "no string value",
			element: Element{Offset: 4, Length: 4},
			before:  "\x01\x02\x03\x04",
			want:    "    ",
		},
		{
			name:    "empty element",
			element: Element{Offset: 4, Length: 0},
			before:  "",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte("HEAD" + tt.before + "TAIL")
			orig := append([]byte(nil), data...)

			got := Redact(data, TagIndex{patientName: tt.element})

			if len(got) != len(orig) {
				t.Fatalf("length changed: %d -> %d", len(orig), len(got))
			}
			if string(got[4:4+tt.element.Length]) != tt.want {
				t.Errorf("redacted = %q, want %q", got[4:4+tt.element.Length], tt.want)
			}
			if !bytes.Equal(got[:4], orig[:4]) || !bytes.Equal(got[4+tt.element.Length:], orig[4+tt.element.Length:]) {
				t.Errorf("bytes outside the element changed: %q", got)
			}
		})
	}
}

func TestRedactIgnoresUnlistedTags(t *testing.T) {
	data := []byte("1.2.840.99")
	index := TagIndex{tag.StudyInstanceUID: {Value: "1.2.840.99", HasValue: true, Offset: 0, Length: 10}}
	Redact(data, index)
	if string(data) != "1.2.840.99" {
		t.Errorf("unlisted tag was modified: %q", data)
	}
}

func TestRedactOutOfRangeSkipped(t *testing.T) {
	data := []byte("short")
	Redact(data, TagIndex{patientName: {Value: "X", HasValue: true, Offset: 3, Length: 10}})
	if string(data) != "short" {
		t.Errorf("out of range element was written: %q", data)
	}
}

func TestRedactEncodedFile(t *testing.T) {
	data, err := sampleFixture().Bytes()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	index, err := Codec{}.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	orig := append([]byte(nil), data...)

	redacted := Redact(data, index)
	if len(redacted) != len(orig) {
		t.Fatalf("length changed: %d -> %d", len(orig), len(redacted))
	}

	inRedacted := make([]bool, len(orig))
	for _, info := range RedactedTags {
		e, ok := index[info.Tag]
		if !ok {
			continue
		}
		for i := 0; i < e.Length; i++ {
			inRedacted[e.Offset+i] = true
			want := byte(' ')
			if i < len(e.Value) {
				want = '0'
			}
			if redacted[e.Offset+i] != want {
				t.Errorf("%s byte %d = %q, want %q", info.Name, i, redacted[e.Offset+i], want)
			}
		}
	}
	for i := range orig {
		if !inRedacted[i] && redacted[i] != orig[i] {
			t.Fatalf("byte %d outside redacted ranges changed", i)
		}
	}

	after, err := Codec{}.Decode(redacted)
	if err != nil {
		t.Fatalf("Decode() after redaction error = %v", err)
	}
	for _, tg := range []tag.Tag{patientName, institutionName} {
		if after[tg].Length != index[tg].Length {
			t.Errorf("%s length %d -> %d", TagName(tg), index[tg].Length, after[tg].Length)
		}
	}
	if got, _ := after.String(patientName); got != "0000000000" {
		t.Errorf("PatientName after redaction = %q", got)
	}
	if got, _ := after.String(tag.StudyInstanceUID); got != "1.2.3.4" {
		t.Errorf("StudyInstanceUID after redaction = %q", got)
	}
	if !Redacted(redacted, after) {
		t.Error("Redacted() = false after Redact")
	}
	if Redacted(orig, index) {
		t.Error("Redacted() = true for original bytes")
	}
}

func TestRedactedTagsOrder(t *testing.T) {
	if len(RedactedTags) != 12 {
		t.Fatalf("len(RedactedTags) = %d, want 12", len(RedactedTags))
	}
	if RedactedTags[0].Tag != patientName || RedactedTags[8].Tag != admissionID {
		t.Errorf("unexpected order: %v", RedactedTags)
	}
}
