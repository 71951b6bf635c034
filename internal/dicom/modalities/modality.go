// Package modalities describes the imaging modalities sample trees can hold.
package modalities

import (
	"math/rand/v2"
	"slices"
)

// Modality is a DICOM Modality code.
type Modality string

const (
	CT Modality = "CT" // Computed Tomography
	MR Modality = "MR" // Magnetic Resonance
	CR Modality = "CR" // Computed Radiography
	US Modality = "US" // Ultrasound
	PT Modality = "PT" // Positron Emission Tomography
)

// SecondaryCapture is the SOP class used for modalities without a profile.
const SecondaryCapture = "1.2.840.10008.5.1.4.1.1.7"

// Scanner is the device a series claims to come from.
type Scanner struct {
	Manufacturer string
	Model        string
}

// Profile is what a synthetic series of one modality carries.
type Profile struct {
	Modality    Modality
	SOPClassUID string
	Scanners    []Scanner
	BodyParts   []string
}

var profiles = []Profile{
	{
		Modality:    CT,
		SOPClassUID: "1.2.840.10008.5.1.4.1.1.2",
		Scanners: []Scanner{
			{Manufacturer: "SIEMENS", Model: "SOMATOM Force"},
			{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Revolution CT"},
			{Manufacturer: "PHILIPS", Model: "Brilliance iCT"},
			{Manufacturer: "CANON", Model: "Aquilion ONE"},
		},
		BodyParts: []string{"HEAD", "CHEST", "ABDOMEN", "PELVIS"},
	},
	{
		Modality:    MR,
		SOPClassUID: "1.2.840.10008.5.1.4.1.1.4",
		Scanners: []Scanner{
			{Manufacturer: "SIEMENS", Model: "MAGNETOM Vida"},
			{Manufacturer: "GE MEDICAL SYSTEMS", Model: "SIGNA Premier"},
			{Manufacturer: "PHILIPS", Model: "Ingenia"},
		},
		BodyParts: []string{"BRAIN", "KNEE", "SPINE"},
	},
	{
		Modality:    CR,
		SOPClassUID: "1.2.840.10008.5.1.4.1.1.1",
		Scanners: []Scanner{
			{Manufacturer: "FUJIFILM", Model: "FCR PROFECT CS"},
			{Manufacturer: "CARESTREAM", Model: "DRX-Evolution"},
		},
		BodyParts: []string{"CHEST", "HAND", "FOOT"},
	},
	{
		Modality:    US,
		SOPClassUID: "1.2.840.10008.5.1.4.1.1.6.1",
		Scanners: []Scanner{
			{Manufacturer: "GE HEALTHCARE", Model: "LOGIQ E10"},
			{Manufacturer: "SIEMENS", Model: "ACUSON Sequoia"},
		},
		BodyParts: []string{"ABDOMEN", "NECK", "BREAST"},
	},
	{
		Modality:    PT,
		SOPClassUID: "1.2.840.10008.5.1.4.1.1.128",
		Scanners: []Scanner{
			{Manufacturer: "SIEMENS", Model: "Biograph Vision"},
			{Manufacturer: "GE MEDICAL SYSTEMS", Model: "Discovery MI"},
		},
		BodyParts: []string{"WHOLEBODY"},
	},
}

// All returns the modalities with a profile, in a stable order.
func All() []Modality {
	out := make([]Modality, len(profiles))
	for i, p := range profiles {
		out[i] = p.Modality
	}
	return out
}

// IsValid reports whether m has a profile.
func IsValid(m string) bool {
	return slices.Contains(All(), Modality(m))
}

// Lookup returns the profile of m.
func Lookup(m string) (Profile, bool) {
	for _, p := range profiles {
		if string(p.Modality) == m {
			return p, true
		}
	}
	return Profile{}, false
}

// SOPClassUID returns the storage SOP class for m, or SecondaryCapture.
func SOPClassUID(m string) string {
	if p, ok := Lookup(m); ok {
		return p.SOPClassUID
	}
	return SecondaryCapture
}

// Pick draws a scanner and a body part for one series.
func (p Profile) Pick(rng *rand.Rand) (Scanner, string) {
	return p.Scanners[rng.IntN(len(p.Scanners))], p.BodyParts[rng.IntN(len(p.BodyParts))]
}
