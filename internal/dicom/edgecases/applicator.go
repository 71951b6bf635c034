package edgecases

import "math/rand/v2"

// Applicator applies edge cases to generated values.
type Applicator struct {
	config Config
	rng    *rand.Rand
}

// NewApplicator creates a new edge case applicator drawing from rng.
func NewApplicator(config Config, rng *rand.Rand) *Applicator {
	return &Applicator{config: config, rng: rng}
}

// Apply may rewrite v and returns the edge case used, or "" when the
// instance was left alone. A disabled Applicator never draws from its rng.
func (a *Applicator) Apply(v *Values) Type {
	if !a.config.IsEnabled() || a.rng.IntN(100) >= a.config.Percentage {
		return ""
	}
	t := a.config.Types[a.rng.IntN(len(a.config.Types))]
	switch t {
	case SpecialChars:
		applySpecialChars(v, a.rng)
	case LongNames:
		applyLongNames(v, a.rng)
	case MissingTags:
		applyMissingTags(v, a.rng)
	}
	return t
}
