package dicom

// Redact overwrites, in place, the value bytes of every RedactedTags element
// present in index and returns data. For an element whose string value has
// length L, the first L bytes become '0' and the rest of the element becomes
// spaces; an element without a string value is blanked entirely. The file
// length and every byte outside the redacted ranges are left untouched.
func Redact(data []byte, index TagIndex) []byte {
	for _, info := range RedactedTags {
		e, ok := index[info.Tag]
		if !ok || e.Offset < 0 || e.Offset+e.Length > len(data) {
			continue
		}
		n := 0
		if e.HasValue {
			n = len(e.Value)
		}
		for i := 0; i < e.Length; i++ {
			if i < n {
				data[e.Offset+i] = '0'
			} else {
				data[e.Offset+i] = ' '
			}
		}
	}
	return data
}

// Redacted reports whether every RedactedTags element in index holds only
// '0' and space bytes. The receiver uses it to refuse identifiable uploads.
func Redacted(data []byte, index TagIndex) bool {
	for _, info := range RedactedTags {
		e, ok := index[info.Tag]
		if !ok {
			continue
		}
		if e.Offset < 0 || e.Offset+e.Length > len(data) {
			return false
		}
		for _, b := range data[e.Offset : e.Offset+e.Length] {
			if b != '0' && b != ' ' {
				return false
			}
		}
	}
	return true
}
