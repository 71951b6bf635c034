package corruption

import (
	"encoding/binary"
	"math/rand/v2"
	"testing"

	"github.com/suyashkumar/dicom/pkg/tag"
)

func TestPatchMalformedLength(t *testing.T) {
	// (0008,0018) UI then (0020,000D) UI, explicit VR little endian short form.
	data := []byte{
		0x08, 0x00, 0x18, 0x00, 'U', 'I', 0x04, 0x00, '1', '.', '2', 0x00,
		0x20, 0x00, 0x0D, 0x00, 'U', 'I', 0x04, 0x00, '1', '.', '3', 0x00,
	}
	if !PatchMalformedLength(data, tag.StudyInstanceUID) {
		t.Fatal("PatchMalformedLength() did not find StudyInstanceUID")
	}
	if vl := binary.LittleEndian.Uint16(data[18:20]); vl != BrokenLength {
		t.Errorf("StudyInstanceUID length = %#x, want %#x", vl, BrokenLength)
	}
	if vl := binary.LittleEndian.Uint16(data[6:8]); vl != 4 {
		t.Errorf("SOPInstanceUID length changed to %d", vl)
	}
}

func TestPatchMalformedLengthNotFound(t *testing.T) {
	data := []byte{0x20, 0x00, 0x0D, 0x00, 'L', 'O', 0x02, 0x00, 'x', 'y'}
	if PatchMalformedLength(data, tag.StudyInstanceUID) {
		t.Error("PatchMalformedLength() patched an element with the wrong VR")
	}
	if PatchMalformedLength(nil, tag.StudyInstanceUID) {
		t.Error("PatchMalformedLength(nil) = true")
	}
}

func TestPickIdentifier(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	seen := map[tag.Tag]bool{}
	for i := 0; i < 50; i++ {
		seen[PickIdentifier(rng)] = true
	}
	if len(seen) != len(Identifiers) {
		t.Errorf("PickIdentifier() covered %d of %d identifiers", len(seen), len(Identifiers))
	}
}

func TestPrivateElements(t *testing.T) {
	elements := PrivateElements(rand.New(rand.NewPCG(1, 1)))
	if len(elements) != 7 {
		t.Fatalf("PrivateElements() returned %d elements, want 7", len(elements))
	}
	for _, e := range elements {
		if e.Tag.Group%2 != 1 {
			t.Errorf("%v is not a private tag", e.Tag)
		}
	}
}
