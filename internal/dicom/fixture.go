package dicom

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomsend/internal/dicom/modalities"
)

// Fixture describes a synthetic instance. Empty string fields are omitted
// from the written file, which lets tests produce files with missing tags.
type Fixture struct {
	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPInstanceUID    string
	Modality          string
	StudyDate         string
	StudyDescription  string
	SeriesDescription string

	PatientName        string
	PatientAge         string
	PatientComments    string
	InstitutionName    string
	InstitutionAddress string
	DeviceSerialNumber string

	// CharacterSet is written as SpecificCharacterSet when set.
	CharacterSet          string
	Manufacturer          string
	ManufacturerModelName string
	BodyPartExamined      string
	// Private elements are appended as is; their VRs are not verified.
	Private []*dicom.Element

	// Rows and Columns size an 8-bit monochrome frame; zero writes no pixel data.
	Rows    int
	Columns int
	// Overlay is burned into the frame when set.
	Overlay string
}

func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("create element %s: %v", TagName(t), err))
	}
	return elem
}

// Dataset builds the dataset for f with elements sorted by tag.
func (f Fixture) Dataset() dicom.Dataset {
	sopClass := modalities.SOPClassUID(f.Modality)

	elements := []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.MediaStorageSOPClassUID, []string{sopClass}),
		mustNewElement(tag.SOPClassUID, []string{sopClass}),
	}
	strs := []struct {
		t tag.Tag
		v string
	}{
		{tag.MediaStorageSOPInstanceUID, f.SOPInstanceUID},
		{tag.SOPInstanceUID, f.SOPInstanceUID},
		{tag.StudyInstanceUID, f.StudyInstanceUID},
		{tag.SeriesInstanceUID, f.SeriesInstanceUID},
		{tag.Modality, f.Modality},
		{tag.StudyDate, f.StudyDate},
		{tag.StudyDescription, f.StudyDescription},
		{tag.SeriesDescription, f.SeriesDescription},
		{tag.PatientName, f.PatientName},
		{tag.PatientAge, f.PatientAge},
		{tag.PatientComments, f.PatientComments},
		{tag.InstitutionName, f.InstitutionName},
		{tag.InstitutionAddress, f.InstitutionAddress},
		{tag.DeviceSerialNumber, f.DeviceSerialNumber},
		{tag.SpecificCharacterSet, f.CharacterSet},
		{tag.Manufacturer, f.Manufacturer},
		{tag.ManufacturerModelName, f.ManufacturerModelName},
		{tag.BodyPartExamined, f.BodyPartExamined},
	}
	for _, s := range strs {
		if s.v != "" {
			elements = append(elements, mustNewElement(s.t, []string{s.v}))
		}
	}

	if f.Rows > 0 && f.Columns > 0 {
		pixels := f.Rows * f.Columns
		nativeFrame := frame.NewNativeFrame[uint8](8, f.Rows, f.Columns, pixels, 1)
		fillGradient(nativeFrame.RawData, f.Columns, f.Rows)
		if f.Overlay != "" {
			drawOverlay(nativeFrame.RawData, f.Columns, f.Rows, f.Overlay)
		}
		elements = append(elements,
			mustNewElement(tag.Rows, []int{f.Rows}),
			mustNewElement(tag.Columns, []int{f.Columns}),
			mustNewElement(tag.BitsAllocated, []int{8}),
			mustNewElement(tag.BitsStored, []int{8}),
			mustNewElement(tag.HighBit, []int{7}),
			mustNewElement(tag.PixelRepresentation, []int{0}),
			mustNewElement(tag.SamplesPerPixel, []int{1}),
			mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
			mustNewElement(tag.PixelData, dicom.PixelDataInfo{
				Frames: []*frame.Frame{{Encapsulated: false, NativeData: nativeFrame}},
			}),
		)
	}

	elements = append(elements, f.Private...)

	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Tag.Group != elements[j].Tag.Group {
			return elements[i].Tag.Group < elements[j].Tag.Group
		}
		return elements[i].Tag.Element < elements[j].Tag.Element
	})
	return dicom.Dataset{Elements: elements}
}

// Write encodes f as a Part 10 file.
func (f Fixture) Write(w io.Writer) error {
	var opts []dicom.WriteOption
	if len(f.Private) > 0 {
		opts = append(opts, dicom.SkipVRVerification(), dicom.SkipValueTypeVerification())
	}
	return dicom.Write(w, f.Dataset(), opts...)
}

// Bytes encodes f in memory.
func (f Fixture) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("encode fixture: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile encodes f to path, creating parent directories.
func (f Fixture) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := f.Write(out); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}

// DeterministicUID derives a stable 2.25 UID from seed.
func DeterministicUID(seed string) string {
	h := fnv.New64a()
	h.Write([]byte(seed))
	return "2.25." + strconv.FormatUint(h.Sum64(), 10)
}

func fillGradient(px []uint8, width, height int) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px[y*width+x] = uint8((x + y) * 255 / max(1, width+height-2))
		}
	}
}
