package decision

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
)

// Word budgets on the pattern statement and precedent counts.
const (
	maxPrincipleWords = 35
	maxMechanismWords = 40
	maxPrecedents     = 3
)

// Precedent cites one example atom as a worked or failed instance of the
// recommended pattern.
type Precedent struct {
	AtomID    string `json:"atom_id"`
	Summary   string `json:"summary"`
	Timeframe string `json:"timeframe,omitempty"`
}

// PatternMatch is the precedent analysis of a recommendation: a general
// principle, the mechanism behind it, and concrete worked/failed cases.
type PatternMatch struct {
	Principle string      `json:"principle"`
	Mechanism string      `json:"mechanism"`
	Worked    []Precedent `json:"worked,omitempty"`
	Failed    []Precedent `json:"failed,omitempty"`
	Fallback  bool        `json:"fallback,omitempty"`
}

// Validate enforces the pattern contract: word budgets, precedent caps, and
// that every precedent cites an atom from the supplied example subset.
func (p *PatternMatch) Validate(examples []ScoredAtom) error {
	if p.Principle == "" {
		return fmt.Errorf("pattern: principle is required")
	}
	if n := WordCount(p.Principle); n > maxPrincipleWords {
		return fmt.Errorf("pattern: principle has %d words, budget is %d", n, maxPrincipleWords)
	}
	if p.Mechanism == "" {
		return fmt.Errorf("pattern: mechanism is required")
	}
	if n := WordCount(p.Mechanism); n > maxMechanismWords {
		return fmt.Errorf("pattern: mechanism has %d words, budget is %d", n, maxMechanismWords)
	}
	if len(p.Worked) > maxPrecedents || len(p.Failed) > maxPrecedents {
		return fmt.Errorf("pattern: at most %d worked and %d failed precedents", maxPrecedents, maxPrecedents)
	}
	known := make(map[string]bool, len(examples))
	for i := range examples {
		known[examples[i].Atom.ID] = true
	}
	for _, pr := range append(append([]Precedent{}, p.Worked...), p.Failed...) {
		if !known[pr.AtomID] {
			return fmt.Errorf("pattern: precedent cites unknown atom %q", pr.AtomID)
		}
	}
	return nil
}

// RankExamples selects and orders the example atoms offered to the pattern
// call. Scoring is keyword overlap with the recommendation text plus
// dimension and context-tag affinity with the classification; level
// filtering already happened upstream of the supplied pool.
func RankExamples(pool []ScoredAtom, c *Classification, recommendation string) []ScoredAtom {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(recommendation)) {
		w = strings.Trim(w, ".,;:!?()'\"")
		if len(w) > 3 {
			words[w] = true
		}
	}

	var ranked []ScoredAtom
	for i := range pool {
		a := pool[i].Atom
		if a.Type != knowledge.TypeExample {
			continue
		}
		score := 0
		for _, w := range strings.Fields(strings.ToLower(a.Claim + " " + a.Purpose)) {
			w = strings.Trim(w, ".,;:!?()'\"")
			if words[w] {
				score += 2
			}
		}
		if a.Dimension == c.Dimension {
			score += 5
		}
		for _, tag := range a.AppliesWhen {
			if c.HasTag(tag) {
				score += 3
			}
		}
		ranked = append(ranked, ScoredAtom{Atom: a, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Atom.ID < ranked[j].Atom.ID
	})
	return ranked
}

// FallbackPattern builds a deterministic pattern match directly from the
// first available worked and failed example atoms when the external call
// keeps returning nothing usable. Constructing this substitute is the
// pipeline's own responsibility.
func FallbackPattern(examples []ScoredAtom) PatternMatch {
	pm := PatternMatch{
		Principle: "Comparable decisions succeed when the underlying constraint is named before committing to a direction.",
		Mechanism: "Precedents below share the same structure as this decision; their outcomes indicate which conditions made the difference.",
		Fallback:  true,
	}
	for i := range examples {
		a := examples[i].Atom
		switch a.Outcome {
		case knowledge.OutcomeWorked:
			if len(pm.Worked) == 0 {
				pm.Worked = append(pm.Worked, Precedent{AtomID: a.ID, Summary: a.Claim, Timeframe: a.Timeframe})
			}
		case knowledge.OutcomeFailed:
			if len(pm.Failed) == 0 {
				pm.Failed = append(pm.Failed, Precedent{AtomID: a.ID, Summary: a.Claim, Timeframe: a.Timeframe})
			}
		}
		if len(pm.Worked) > 0 && len(pm.Failed) > 0 {
			break
		}
	}
	return pm
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// ClampWords truncates s to at most n words, appending an ellipsis when
// anything was dropped.
func ClampWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) <= n {
		return s
	}
	return strings.Join(fields[:n], " ") + "…"
}
