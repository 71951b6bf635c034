// Package util holds small helpers for generating synthetic identities.
package util

import (
	"fmt"
	"math/rand/v2"
	"time"
)

var defaultRNG = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

var (
	firstNames = []string{
		"James", "Mary", "Robert", "Patricia", "Michael", "Jennifer", "David", "Linda",
		"Thomas", "Sarah", "Daniel", "Emily", "Lucas", "Camille", "Hugo", "Chloé",
		"Louis", "Manon", "Jules", "Léa",
	}
	lastNames = []string{
		"SMITH", "JOHNSON", "WILLIAMS", "BROWN", "JONES", "MILLER", "DAVIS", "WILSON",
		"MARTIN", "BERNARD", "DUBOIS", "THOMAS", "ROBERT", "PETIT", "DURAND", "LEROY",
	}
	institutions = []string{
		"Saint Mary Hospital", "General Hospital", "University Medical Center",
		"Hôpital Pitié-Salpêtrière", "Clinique du Parc", "Regional Imaging Center",
	}
	streets = []string{
		"Main Street", "Oak Avenue", "Rue de Rivoli", "Boulevard Haussmann", "Elm Road",
	}
)

// Identity is the set of identifying values written into synthetic files.
type Identity struct {
	PatientName        string
	PatientAge         string
	InstitutionName    string
	InstitutionAddress string
	DeviceSerialNumber string
	PatientComments    string
}

// NewIdentity draws a plausible identity from rng, or from a shared
// generator when rng is nil. Names use the DICOM "LAST^FIRST" form.
func NewIdentity(rng *rand.Rand) Identity {
	if rng == nil {
		rng = defaultRNG
	}
	last := lastNames[rng.IntN(len(lastNames))]
	first := firstNames[rng.IntN(len(firstNames))]
	return Identity{
		PatientName:        last + "^" + first,
		PatientAge:         fmt.Sprintf("%03dY", 18+rng.IntN(70)),
		InstitutionName:    institutions[rng.IntN(len(institutions))],
		InstitutionAddress: fmt.Sprintf("%d %s", 1+rng.IntN(200), streets[rng.IntN(len(streets))]),
		DeviceSerialNumber: fmt.Sprintf("SN%06d", rng.IntN(1000000)),
		PatientComments:    "Referred by Dr " + lastNames[rng.IntN(len(lastNames))],
	}
}
