package corruption

import (
	"fmt"
	"math/rand/v2"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// mustNewPrivateElement creates an element with a private tag and explicit VR.
// dicom.NewElement refuses tags missing from the dictionary.
func mustNewPrivateElement(t tag.Tag, rawVR string, data any) *dicom.Element {
	value, err := dicom.NewValue(data)
	if err != nil {
		panic(fmt.Sprintf("create value for private element %v: %v", t, err))
	}
	return &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, rawVR),
		RawValueRepresentation: rawVR,
		Value:                  value,
	}
}

// PrivateElements returns GE GEMS private tags and a Philips private
// sequence, as real scanners write them. Writing them needs
// dicom.SkipVRVerification and dicom.SkipValueTypeVerification.
func PrivateElements(rng *rand.Rand) []*dicom.Element {
	softwareVersion := fmt.Sprintf("DV%d.%d_%d_M5", rng.IntN(10)+20, rng.IntN(10), rng.IntN(100))
	diffusion := make([]string, 4)
	for i := range diffusion {
		diffusion[i] = fmt.Sprintf("%d", rng.IntN(1000))
	}
	item := []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x0011}, "LO", []string{"Philips MR Imaging DD 005"}),
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x1100}, "DS", []string{fmt.Sprintf("%.10f", rng.Float64()*100+1)}),
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x1101}, "DS", []string{fmt.Sprintf("%.10f", rng.Float64()*10-5)}),
	}

	return []*dicom.Element{
		mustNewPrivateElement(tag.Tag{Group: 0x0009, Element: 0x0010}, "LO", []string{"GEMS_IDEN_01"}),
		mustNewPrivateElement(tag.Tag{Group: 0x0009, Element: 0x10E3}, "LO", []string{softwareVersion}),
		mustNewPrivateElement(tag.Tag{Group: 0x0043, Element: 0x0010}, "LO", []string{"GEMS_PARM_01"}),
		mustNewPrivateElement(tag.Tag{Group: 0x0043, Element: 0x1039}, "IS", diffusion),
		mustNewPrivateElement(tag.Tag{Group: 0x2001, Element: 0x0010}, "LO", []string{"Philips Imaging DD 001"}),
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x0010}, "LO", []string{"Philips MR Imaging DD 001"}),
		mustNewPrivateElement(tag.Tag{Group: 0x2005, Element: 0x100E}, "SQ", [][]*dicom.Element{item}),
	}
}
