package corruption

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// BrokenLength is the value length written by PatchMalformedLength: odd,
// and past the end of any small file.
const BrokenLength = 0xFFFF

// Identifiers are the tags MissingIdentifiers chooses from.
var Identifiers = []tag.Tag{tag.StudyInstanceUID, tag.SeriesInstanceUID, tag.Modality}

// PickIdentifier chooses the identifier an instance loses.
func PickIdentifier(rng *rand.Rand) tag.Tag {
	return Identifiers[rng.IntN(len(Identifiers))]
}

// PatchMalformedLength rewrites, in place, the value length of the first
// explicit VR "UI" element t in data to BrokenLength. The parser then either
// runs off the end of the file or swallows the elements that follow, so the
// instance never yields a complete set of identifiers. It reports whether
// the element was found.
func PatchMalformedLength(data []byte, t tag.Tag) bool {
	for i := 0; i+8 <= len(data); i++ {
		if binary.LittleEndian.Uint16(data[i:]) != t.Group ||
			binary.LittleEndian.Uint16(data[i+2:]) != t.Element ||
			string(data[i+4:i+6]) != "UI" {
			continue
		}
		binary.LittleEndian.PutUint16(data[i+6:i+8], BrokenLength)
		return true
	}
	return false
}
