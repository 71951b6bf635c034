// Package corruption damages synthetic instances so that scanning meets
// files it must not catalog, and vendor data it must carry through.
package corruption

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
)

// Type is a category of damage.
type Type string

const (
	// MalformedLengths breaks an element length so the file no longer decodes.
	MalformedLengths Type = "malformed-lengths"
	// MissingIdentifiers drops one of the study, series or modality tags.
	MissingIdentifiers Type = "missing-identifiers"
	// VendorPrivate adds GE and Philips private blocks; the file stays valid.
	VendorPrivate Type = "vendor-private"
)

// AllTypes returns every corruption type.
func AllTypes() []Type {
	return []Type{MalformedLengths, MissingIdentifiers, VendorPrivate}
}

// Config holds corruption settings.
type Config struct {
	Count int // number of instances to damage
	Types []Type
}

// ParseTypes parses comma-separated corruption types. The special value
// "all" enables every type.
func ParseTypes(input string) ([]Type, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	var result []Type
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if p == "all" {
			return AllTypes(), nil
		}
		t := Type(p)
		if !slices.Contains(AllTypes(), t) {
			return nil, fmt.Errorf("unknown corruption type %q, valid types: %v (or 'all')", p, AllTypes())
		}
		if !slices.Contains(result, t) {
			result = append(result, t)
		}
	}
	return result, nil
}

// Validate checks the count and that enabled corruption names a type.
func (c Config) Validate() error {
	if c.Count < 0 {
		return fmt.Errorf("corrupt count must not be negative, got %d", c.Count)
	}
	if c.Count > 0 && len(c.Types) == 0 {
		return fmt.Errorf("corruption enabled but no types specified")
	}
	return nil
}

// IsEnabled returns true if corruption is enabled.
func (c Config) IsEnabled() bool {
	return c.Count > 0 && len(c.Types) > 0
}

// Plan picks min(Count, n) distinct instance indexes out of n and assigns
// them types in turn. A disabled Config returns nil without drawing from rng.
func (c Config) Plan(n int, rng *rand.Rand) map[int]Type {
	if !c.IsEnabled() || n <= 0 {
		return nil
	}
	plan := make(map[int]Type, min(c.Count, n))
	for i, idx := range rng.Perm(n)[:min(c.Count, n)] {
		plan[idx] = c.Types[i%len(c.Types)]
	}
	return plan
}

// Catalogs reports whether an instance damaged with t is still a study
// instance once scanned.
func (t Type) Catalogs() bool {
	return t == VendorPrivate
}
