package dicom

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	undefinedLength = 0xFFFFFFFF
	// Large enough that the parser's own bufio wrapping reuses our reader,
	// keeping Buffered() an exact measure of unread bytes.
	readBufferSize = 64 << 10
)

// Element is one decoded top-level data element: its string value and the
// position of its value bytes in the original file.
type Element struct {
	Value    string
	HasValue bool
	Offset   int
	Length   int
}

// TagIndex maps tags to the decoded elements of a single file.
type TagIndex map[tag.Tag]Element

// String returns the trimmed string value of t. The second result is false
// when the element is absent or carries no string.
func (ix TagIndex) String(t tag.Tag) (string, bool) {
	e, ok := ix[t]
	if !ok || !e.HasValue {
		return "", false
	}
	return e.Value, true
}

// StringOr returns the value of t or def when it has none.
func (ix TagIndex) StringOr(t tag.Tag, def string) string {
	if v, ok := ix.String(t); ok {
		return v
	}
	return def
}

// Decoder turns file bytes into a TagIndex.
type Decoder interface {
	Decode(data []byte) (TagIndex, error)
}

// Codec is the Decoder backed by github.com/suyashkumar/dicom. Pixel data
// is skipped; every other top-level element with a defined length is
// indexed with its value offset.
type Codec struct{}

// Decode parses data and locates the value bytes of each element.
func (Codec) Decode(data []byte) (index TagIndex, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decode: parser panic: %v", r)
		}
	}()

	counter := &countingReader{r: bytes.NewReader(data)}
	br := bufio.NewReaderSize(counter, readBufferSize)
	p, err := dicom.NewParser(br, int64(len(data)), nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	index = make(TagIndex)
	for {
		elem, err := p.Next()
		if errors.Is(err, dicom.ErrorEndOfDICOM) || errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		if elem == nil || elem.ValueLength == undefinedLength {
			continue
		}
		switch elem.Value.ValueType() {
		case dicom.Sequences, dicom.SequenceItem, dicom.PixelData:
			continue
		}

		end := int(counter.n) - br.Buffered()
		offset, ok := locate(data, elem.Tag, end, int(elem.ValueLength))
		if !ok {
			return nil, fmt.Errorf("decode: cannot locate value of %s", TagName(elem.Tag))
		}
		e := Element{Offset: offset, Length: int(elem.ValueLength)}
		if elem.Value.ValueType() == dicom.Strings && e.Length > 0 {
			e.Value = textValue(data[offset : offset+e.Length])
			e.HasValue = true
		}
		index[elem.Tag] = e
	}
	return index, nil
}

// locate checks that the value ending at end is preceded by the element
// header of t, in either the short or the long explicit VR form, or the
// implicit VR form.
func locate(data []byte, t tag.Tag, end, length int) (int, bool) {
	start := end - length
	if start < 0 || end > len(data) {
		return 0, false
	}
	for _, header := range []int{8, 12} {
		h := start - header
		if h < 0 {
			continue
		}
		if binary.LittleEndian.Uint16(data[h:]) == t.Group && binary.LittleEndian.Uint16(data[h+2:]) == t.Element {
			return start, true
		}
	}
	return 0, false
}

// textValue cuts at the first NUL and trims padding.
func textValue(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(string(raw))
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
