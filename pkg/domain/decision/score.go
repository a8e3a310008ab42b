package decision

import "github.com/verdictlabs/verdict/pkg/domain/knowledge"

// Relevance scoring weights. The base score reflects that every atom
// reaching the scorer has already passed the hard level filter.
const (
	scoreBase           = 100
	scorePrimaryDim     = 35
	scoreSecondaryDim   = 20
	scoreGlobalDim      = 10
	scoreAppliesTag     = 15
	scoreBreaksTag      = -25
	scoreStrengthHigh   = 10
	scoreStrengthMedium = 5
)

// ScoredAtom annotates an atom with its relevance for one classification.
// Scores are ephemeral: recomputed per request, never persisted.
type ScoredAtom struct {
	Atom  knowledge.Atom `json:"atom"`
	Score int            `json:"score"`
}

// Score rates one atom against one classification. Pure and deterministic;
// the result can be negative after penalties, no floor is applied here.
//
// The primary and secondary dimension checks are deliberately independent
// statements, not an if/else chain. Both inspect the same field, so only one
// can fire for a well-formed classification; the structure is kept anyway so
// the scoring terms stay order-faithful and individually auditable.
func Score(atom *knowledge.Atom, c *Classification) int {
	score := scoreBase

	if atom.Dimension == c.Dimension {
		score += scorePrimaryDim
	}
	if atom.Dimension != "" && c.HasSecondary(atom.Dimension) {
		score += scoreSecondaryDim
	}
	if atom.Global() {
		score += scoreGlobalDim
	}
	for _, tag := range atom.AppliesWhen {
		if c.HasTag(tag) {
			score += scoreAppliesTag
		}
	}
	for _, tag := range atom.BreaksWhen {
		if c.HasTag(tag) {
			score += scoreBreaksTag
		}
	}
	switch atom.Strength {
	case knowledge.StrengthHigh:
		score += scoreStrengthHigh
	case knowledge.StrengthMedium:
		score += scoreStrengthMedium
	}

	return score
}
