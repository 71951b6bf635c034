// Package dicom decodes, redacts and synthesizes DICOM Part 10 files.
package dicom

import (
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// TagInfo pairs a tag with the keyword used in logs and configuration.
type TagInfo struct {
	Name string
	Tag  tag.Tag
}

// RedactedTags is the fixed, ordered list of identifying elements that
// Redact overwrites. Tags are spelled out numerically so the list does not
// depend on the dictionary shipped with the parser.
var RedactedTags = []TagInfo{
	{Name: "PatientName", Tag: tag.Tag{Group: 0x0010, Element: 0x0010}},
	{Name: "PatientAge", Tag: tag.Tag{Group: 0x0010, Element: 0x1010}},
	{Name: "InstitutionAddress", Tag: tag.Tag{Group: 0x0008, Element: 0x0081}},
	{Name: "PatientDeathDateInAlternativeCalendar", Tag: tag.Tag{Group: 0x0010, Element: 0x0034}},
	{Name: "PatientComments", Tag: tag.Tag{Group: 0x0010, Element: 0x4000}},
	{Name: "PersonAddress", Tag: tag.Tag{Group: 0x0040, Element: 0x1102}},
	{Name: "InstitutionName", Tag: tag.Tag{Group: 0x0008, Element: 0x0080}},
	{Name: "ResponsiblePerson", Tag: tag.Tag{Group: 0x0010, Element: 0x2297}},
	{Name: "AdmissionID", Tag: tag.Tag{Group: 0x0038, Element: 0x0010}},
	{Name: "DeviceSerialNumber", Tag: tag.Tag{Group: 0x0018, Element: 0x1000}},
	{Name: "DeviceDescription", Tag: tag.Tag{Group: 0x0050, Element: 0x0020}},
	{Name: "PersonTelephoneNumbers", Tag: tag.Tag{Group: 0x0040, Element: 0x1103}},
}

// Tags the catalog and the send pipeline read from every file.
var (
	StudyInstanceUID  = TagInfo{Name: "StudyInstanceUID", Tag: tag.StudyInstanceUID}
	SeriesInstanceUID = TagInfo{Name: "SeriesInstanceUID", Tag: tag.SeriesInstanceUID}
	SOPInstanceUID    = TagInfo{Name: "SOPInstanceUID", Tag: tag.SOPInstanceUID}
	Modality          = TagInfo{Name: "Modality", Tag: tag.Modality}
	StudyDate         = TagInfo{Name: "StudyDate", Tag: tag.StudyDate}
	StudyDescription  = TagInfo{Name: "StudyDescription", Tag: tag.StudyDescription}
	SeriesDescription = TagInfo{Name: "SeriesDescription", Tag: tag.SeriesDescription}
)

// TagName returns the keyword of a known tag, or its (gggg,eeee) form.
func TagName(t tag.Tag) string {
	for _, info := range RedactedTags {
		if info.Tag == t {
			return info.Name
		}
	}
	for _, info := range []TagInfo{StudyInstanceUID, SeriesInstanceUID, SOPInstanceUID, Modality, StudyDate, StudyDescription, SeriesDescription} {
		if info.Tag == t {
			return info.Name
		}
	}
	return fmt.Sprintf("(%04X,%04X)", t.Group, t.Element)
}

// ParseModalities splits a comma-separated modality list into upper-case
// codes, dropping blanks and duplicates. An empty input yields nil, which
// means "no restriction".
func ParseModalities(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, p := range strings.Split(input, ",") {
		m := strings.ToUpper(strings.TrimSpace(p))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
