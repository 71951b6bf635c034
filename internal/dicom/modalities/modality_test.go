package modalities

import (
	"math/rand/v2"
	"slices"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"CT", true},
		{"MR", true},
		{"US", true},
		{"CR", true},
		{"PT", true},
		{"ct", false},
		{"OT", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValid(tt.input); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSOPClassUID(t *testing.T) {
	if got := SOPClassUID("CT"); got != "1.2.840.10008.5.1.4.1.1.2" {
		t.Errorf("SOPClassUID(CT) = %s", got)
	}
	if got := SOPClassUID("XA"); got != SecondaryCapture {
		t.Errorf("SOPClassUID(XA) = %s, want secondary capture", got)
	}
}

func TestProfilesComplete(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range All() {
		p, ok := Lookup(string(m))
		if !ok {
			t.Fatalf("Lookup(%s) missing", m)
		}
		if len(p.Scanners) == 0 || len(p.BodyParts) == 0 {
			t.Errorf("%s profile has no scanners or body parts", m)
		}
		if seen[p.SOPClassUID] {
			t.Errorf("%s reuses SOP class %s", m, p.SOPClassUID)
		}
		seen[p.SOPClassUID] = true
	}
}

func TestPick(t *testing.T) {
	p, _ := Lookup("MR")
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 20; i++ {
		scanner, part := p.Pick(rng)
		if !slices.Contains(p.Scanners, scanner) {
			t.Errorf("Pick() scanner %+v not in profile", scanner)
		}
		if !slices.Contains(p.BodyParts, part) {
			t.Errorf("Pick() body part %q not in profile", part)
		}
	}
}
