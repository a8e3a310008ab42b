package knowledge

import (
	"fmt"
	"strings"
)

// AtomType classifies what kind of knowledge an atom carries.
type AtomType string

const (
	TypeSignal      AtomType = "signal"
	TypeHeuristic   AtomType = "heuristic"
	TypeFailureMode AtomType = "failure_mode"
	TypePattern     AtomType = "pattern"
	TypeExample     AtomType = "example"
	TypeQuote       AtomType = "quote"
)

// Lens is one of the three fixed evaluation perspectives.
type Lens string

const (
	LensCustomer    Lens = "customer"
	LensBusiness    Lens = "business"
	LensFeasibility Lens = "feasibility"
)

// Lenses returns the three perspectives in their fixed order.
func Lenses() []Lens {
	return []Lens{LensCustomer, LensBusiness, LensFeasibility}
}

// Strength grades how well-established an atom's claim is.
type Strength string

const (
	StrengthHigh   Strength = "high"
	StrengthMedium Strength = "medium"
	StrengthLow    Strength = "low"
)

// Outcome records how an example-type atom turned out.
type Outcome string

const (
	OutcomeWorked Outcome = "worked"
	OutcomeFailed Outcome = "failed"
	OutcomeMixed  Outcome = "mixed"
)

// Atom is a single reusable unit of decision knowledge. Atoms are loaded
// once at startup and never mutated afterwards.
type Atom struct {
	ID          string   `yaml:"id" json:"id"`
	Type        AtomType `yaml:"type" json:"type"`
	Purpose     string   `yaml:"purpose" json:"purpose"`
	Claim       string   `yaml:"claim" json:"claim"`
	Rationale   string   `yaml:"rationale,omitempty" json:"rationale,omitempty"`
	Lenses      []Lens   `yaml:"lenses" json:"lenses"`
	Level       Level    `yaml:"level" json:"level"`
	Dimension   string   `yaml:"dimension,omitempty" json:"dimension,omitempty"`
	AppliesWhen []string `yaml:"applies_when,omitempty" json:"applies_when,omitempty"`
	BreaksWhen  []string `yaml:"breaks_when,omitempty" json:"breaks_when,omitempty"`
	Strength    Strength `yaml:"strength,omitempty" json:"strength,omitempty"`
	Outcome     Outcome  `yaml:"outcome,omitempty" json:"outcome,omitempty"`
	Timeframe   string   `yaml:"timeframe,omitempty" json:"timeframe,omitempty"`
}

var validTypes = map[AtomType]bool{
	TypeSignal:      true,
	TypeHeuristic:   true,
	TypeFailureMode: true,
	TypePattern:     true,
	TypeExample:     true,
	TypeQuote:       true,
}

var validLenses = map[Lens]bool{
	LensCustomer:    true,
	LensBusiness:    true,
	LensFeasibility: true,
}

var validStrengths = map[Strength]bool{
	StrengthHigh:   true,
	StrengthMedium: true,
	StrengthLow:    true,
}

var validOutcomes = map[Outcome]bool{
	OutcomeWorked: true,
	OutcomeFailed: true,
	OutcomeMixed:  true,
}

// EligibleFor reports whether the atom may appear in the given lens's pack.
func (a *Atom) EligibleFor(lens Lens) bool {
	for _, l := range a.Lenses {
		if l == lens {
			return true
		}
	}
	return false
}

// Global reports whether the atom applies to every dimension at its level.
func (a *Atom) Global() bool {
	return a.Dimension == ""
}

// Validate checks the atom against the corpus shape. It collects every
// violation rather than stopping at the first, so loader diagnostics can
// list all problems with a record at once.
func (a *Atom) Validate() error {
	var problems []string

	if strings.TrimSpace(a.ID) == "" {
		problems = append(problems, "id is required")
	}
	if !validTypes[a.Type] {
		problems = append(problems, fmt.Sprintf("unknown type %q", a.Type))
	}
	if strings.TrimSpace(a.Claim) == "" {
		problems = append(problems, "claim is required")
	}
	if len(a.Lenses) == 0 {
		problems = append(problems, "at least one lens is required")
	}
	for _, l := range a.Lenses {
		if !validLenses[l] {
			problems = append(problems, fmt.Sprintf("unknown lens %q", l))
		}
	}
	if !ValidLevel(a.Level) {
		problems = append(problems, fmt.Sprintf("unknown level %q", a.Level))
	} else if a.Dimension != "" && !ValidDimension(a.Level, a.Dimension) {
		problems = append(problems, fmt.Sprintf("dimension %q is not valid for level %q", a.Dimension, a.Level))
	}
	if a.Strength != "" && !validStrengths[a.Strength] {
		problems = append(problems, fmt.Sprintf("unknown strength %q", a.Strength))
	}
	if a.Outcome != "" && !validOutcomes[a.Outcome] {
		problems = append(problems, fmt.Sprintf("unknown outcome %q", a.Outcome))
	}
	if a.Outcome != "" && a.Type != TypeExample {
		problems = append(problems, "outcome is only valid on example atoms")
	}

	if len(problems) > 0 {
		return &InvalidAtomError{ID: a.ID, Problems: problems}
	}
	return nil
}
