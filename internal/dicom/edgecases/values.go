package edgecases

import (
	"math/rand/v2"
	"strings"
)

// UTF8 is the SpecificCharacterSet declared for values outside ASCII.
const UTF8 = "ISO_IR 192"

// LOMaxLength is the maximum length of LO and PN component groups.
const LOMaxLength = 64

// Values are the per-instance strings an Applicator varies. An empty value
// is left out of the written file.
type Values struct {
	PatientName        string
	PatientAge         string
	PatientComments    string
	InstitutionName    string
	InstitutionAddress string
	DeviceSerialNumber string
	StudyDescription   string
	SeriesDescription  string
	// CharacterSet is set when a value is not plain ASCII.
	CharacterSet string
}

var (
	specialFirstNames = []string{
		"Jean-Pierre", "François", "André", "José", "Søren", "Björn",
		"Łukasz", "Jürgen", "Éléonore", "Siân", "Zoë", "Hélène",
	}
	specialLastNames = []string{
		"Müller-Schmidt", "O'Connor", "D'Agostino", "García-López",
		"Østergaard", "Çelik", "Škvorecký", "Pérez-Rodríguez",
	}
	specialInstitutions = []string{
		"Hôpital Pitié-Salpêtrière", "Universitätsklinikum Köln",
		"Szpital Wojewódzki w Łodzi", "Hospital Clínic de Barcelona",
	}
	specialStreets = []string{
		"Rue de l'Église", "Königstraße", "Calle de Alcalá", "Ulica Żelazna",
	}

	longLastNames = []string{
		"ALEXANDROPOULOSWILLIAMSONBERG",
		"VANDENBERGHEMONTGOMERYSMITH",
		"CHRISTODOULOPOULOSSMITHBAUER",
	}
	longFirstNames = []string{
		"ALEXANDERMAXIMILIANWILLIAM",
		"ELIZABETHCATHERINEANNAMARIE",
		"MARGARETISABELLAVICTORIAJANE",
	}
	longInstitutions = []string{
		"CENTRE HOSPITALIER UNIVERSITAIRE DE MONTPELLIER SITE LAPEYRONIE",
		"UNIVERSITY HOSPITALS OF NORTH MIDLANDS NHS TRUST ROYAL STOKE",
	}
	longDescriptions = []string{
		"MRI BRAIN WITH AND WITHOUT CONTRAST DETAILED EXAMINATION FOR SUSPECTED LESION",
		"CT ABDOMEN PELVIS WITH CONTRAST COMPREHENSIVE EVALUATION FOLLOW UP EXAMINATION",
	}

	// optional lists the values MissingTags may drop. Study, series and
	// modality identifiers are never among them.
	optional = []func(*Values){
		func(v *Values) { v.PatientName = "" },
		func(v *Values) { v.PatientAge = "" },
		func(v *Values) { v.PatientComments = "" },
		func(v *Values) { v.InstitutionName = "" },
		func(v *Values) { v.InstitutionAddress = "" },
		func(v *Values) { v.DeviceSerialNumber = "" },
		func(v *Values) { v.StudyDescription = "" },
		func(v *Values) { v.SeriesDescription = "" },
	}
)

func pick(rng *rand.Rand, from []string) string {
	return from[rng.IntN(len(from))]
}

// truncateOdd cuts s to at most n bytes and to an odd length without
// trailing spaces, so the writer has to pad the value.
func truncateOdd(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	s = strings.TrimRight(s, " ")
	for len(s) > 0 && len(s)%2 == 0 {
		s = strings.TrimRight(s[:len(s)-1], " ")
	}
	return s
}

func applySpecialChars(v *Values, rng *rand.Rand) {
	v.PatientName = pick(rng, specialLastNames) + "^" + pick(rng, specialFirstNames)
	v.InstitutionName = pick(rng, specialInstitutions)
	v.InstitutionAddress = pick(rng, specialStreets) + " " + strings.Repeat("1", 1+rng.IntN(3))
	v.PatientComments = "Adressé par Dr " + pick(rng, specialLastNames)
	v.CharacterSet = UTF8
}

func applyLongNames(v *Values, rng *rand.Rand) {
	v.PatientName = truncateOdd(pick(rng, longLastNames)+"^"+pick(rng, longFirstNames), LOMaxLength)
	v.InstitutionName = truncateOdd(pick(rng, longInstitutions), LOMaxLength)
	v.StudyDescription = truncateOdd(pick(rng, longDescriptions), LOMaxLength)
	v.DeviceSerialNumber = truncateOdd(strings.Repeat("SN0123456789", 6), LOMaxLength)
}

func applyMissingTags(v *Values, rng *rand.Rand) {
	n := 1 + rng.IntN(3)
	for _, i := range rng.Perm(len(optional))[:n] {
		optional[i](v)
	}
}
