package decision_test

import (
	"strings"
	"testing"

	"github.com/verdictlabs/verdict/pkg/domain/decision"
	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
)

func exampleAtom(id, claim string, outcome knowledge.Outcome) decision.ScoredAtom {
	return decision.ScoredAtom{Atom: knowledge.Atom{
		ID:      id,
		Type:    knowledge.TypeExample,
		Purpose: "precedent",
		Claim:   claim,
		Lenses:  knowledge.Lenses(),
		Level:   knowledge.LevelProduct,
		Outcome: outcome,
	}}
}

func TestPatternValidate(t *testing.T) {
	examples := []decision.ScoredAtom{
		exampleAtom("ex-a", "a marketplace added annual billing and retention improved", knowledge.OutcomeWorked),
	}

	valid := decision.PatternMatch{
		Principle: "Reduce friction before reducing price",
		Mechanism: "Billing friction shows up as churn that price cuts cannot fix",
		Worked:    []decision.Precedent{{AtomID: "ex-a", Summary: "annual billing"}},
	}
	if err := valid.Validate(examples); err != nil {
		t.Errorf("valid pattern rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*decision.PatternMatch)
	}{
		{"empty principle", func(p *decision.PatternMatch) { p.Principle = "" }},
		{"principle over budget", func(p *decision.PatternMatch) { p.Principle = strings.Repeat("word ", 36) }},
		{"empty mechanism", func(p *decision.PatternMatch) { p.Mechanism = "" }},
		{"mechanism over budget", func(p *decision.PatternMatch) { p.Mechanism = strings.Repeat("word ", 41) }},
		{"unknown citation", func(p *decision.PatternMatch) {
			p.Worked = []decision.Precedent{{AtomID: "ex-unknown", Summary: "x"}}
		}},
		{"too many precedents", func(p *decision.PatternMatch) {
			p.Worked = []decision.Precedent{
				{AtomID: "ex-a"}, {AtomID: "ex-a"}, {AtomID: "ex-a"}, {AtomID: "ex-a"},
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if err := p.Validate(examples); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestRankExamples(t *testing.T) {
	c := &decision.Classification{
		Level:       knowledge.LevelProduct,
		Dimension:   "monetization",
		ContextTags: []string{"b2b"},
	}
	pool := []decision.ScoredAtom{
		exampleAtom("ex-overlap", "switching to annual pricing stabilised revenue", knowledge.OutcomeWorked),
		exampleAtom("ex-plain", "a redesign shipped on time", knowledge.OutcomeMixed),
	}
	// Non-example atoms never rank.
	pool = append(pool, decision.ScoredAtom{Atom: knowledge.Atom{
		ID: "heu-a", Type: knowledge.TypeHeuristic, Claim: "annual pricing helps",
		Lenses: knowledge.Lenses(), Level: knowledge.LevelProduct,
	}})
	dimMatch := exampleAtom("ex-dim", "unrelated story", knowledge.OutcomeFailed)
	dimMatch.Atom.Dimension = "monetization"
	dimMatch.Atom.AppliesWhen = []string{"b2b"}
	pool = append(pool, dimMatch)

	ranked := decision.RankExamples(pool, c, "move to annual pricing for the b2b segment")

	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked examples, got %d", len(ranked))
	}
	for _, sa := range ranked {
		if sa.Atom.Type != knowledge.TypeExample {
			t.Errorf("non-example atom ranked: %s", sa.Atom.ID)
		}
	}
	// ex-dim: dimension +5, tag +3 = 8. ex-overlap: "annual","pricing" overlap = 4.
	if ranked[0].Atom.ID != "ex-dim" || ranked[1].Atom.ID != "ex-overlap" || ranked[2].Atom.ID != "ex-plain" {
		ids := []string{ranked[0].Atom.ID, ranked[1].Atom.ID, ranked[2].Atom.ID}
		t.Errorf("unexpected ranking order: %v", ids)
	}
}

func TestFallbackPattern(t *testing.T) {
	examples := []decision.ScoredAtom{
		exampleAtom("ex-w1", "first worked case", knowledge.OutcomeWorked),
		exampleAtom("ex-f1", "first failed case", knowledge.OutcomeFailed),
		exampleAtom("ex-w2", "second worked case", knowledge.OutcomeWorked),
	}

	pm := decision.FallbackPattern(examples)
	if !pm.Fallback {
		t.Errorf("fallback flag must be set")
	}
	if err := pm.Validate(examples); err != nil {
		t.Errorf("fallback pattern must satisfy its own contract: %v", err)
	}
	if len(pm.Worked) != 1 || pm.Worked[0].AtomID != "ex-w1" {
		t.Errorf("expected first worked example cited, got %+v", pm.Worked)
	}
	if len(pm.Failed) != 1 || pm.Failed[0].AtomID != "ex-f1" {
		t.Errorf("expected first failed example cited, got %+v", pm.Failed)
	}
}

func TestFallbackPatternWithoutOutcomes(t *testing.T) {
	pm := decision.FallbackPattern(nil)
	if len(pm.Worked) != 0 || len(pm.Failed) != 0 {
		t.Errorf("no examples means no precedents, got %+v / %+v", pm.Worked, pm.Failed)
	}
	if pm.Principle == "" || pm.Mechanism == "" {
		t.Errorf("fallback must still carry principle and mechanism")
	}
}

func TestClampWords(t *testing.T) {
	if got := decision.ClampWords("one two three", 5); got != "one two three" {
		t.Errorf("short text must pass through unchanged, got %q", got)
	}
	got := decision.ClampWords("one two three four five six", 3)
	if got != "one two three…" {
		t.Errorf("ClampWords = %q", got)
	}
}
