// Package edgecases varies the identifying values of synthetic instances so
// that redaction meets awkward input.
package edgecases

import (
	"fmt"
	"slices"
	"strings"
)

// Type is a category of edge case.
type Type string

const (
	SpecialChars Type = "special-chars"
	LongNames    Type = "long-names"
	MissingTags  Type = "missing-tags"
)

// AllTypes returns every edge case type.
func AllTypes() []Type {
	return []Type{SpecialChars, LongNames, MissingTags}
}

// Config holds edge case generation settings.
type Config struct {
	Percentage int // 0-100, share of instances receiving an edge case
	Types      []Type
}

// ParseTypes parses comma-separated edge case types.
func ParseTypes(input string) ([]Type, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	var result []Type
	for _, p := range strings.Split(input, ",") {
		t := Type(strings.TrimSpace(p))
		if !slices.Contains(AllTypes(), t) {
			return nil, fmt.Errorf("unknown edge case type %q, valid types: %v", p, AllTypes())
		}
		if !slices.Contains(result, t) {
			result = append(result, t)
		}
	}
	return result, nil
}

// Validate checks the percentage range and that enabled edge cases name a type.
func (c Config) Validate() error {
	if c.Percentage < 0 || c.Percentage > 100 {
		return fmt.Errorf("edge-cases percentage must be 0-100, got %d", c.Percentage)
	}
	if c.Percentage > 0 && len(c.Types) == 0 {
		return fmt.Errorf("edge-cases enabled but no types specified")
	}
	return nil
}

// IsEnabled returns true if edge cases are enabled.
func (c Config) IsEnabled() bool {
	return c.Percentage > 0 && len(c.Types) > 0
}
