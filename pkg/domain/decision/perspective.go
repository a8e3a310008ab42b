package decision

import (
	"fmt"

	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
)

// Stance is a perspective's overall position on the question.
type Stance string

const (
	StanceSupport Stance = "support"
	StanceOppose  Stance = "oppose"
	StanceMixed   Stance = "mixed"
	StanceUnclear Stance = "unclear"
)

// ConfidenceLabel is the coarse self-reported confidence of one perspective.
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "high"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceLow    ConfidenceLabel = "low"
)

// EvidencePoint is one argument made by a perspective, citing pack atoms.
type EvidencePoint struct {
	Text    string   `json:"text"`
	AtomIDs []string `json:"atom_ids,omitempty"`
}

// PerspectiveOutput is the structured result of one lens's evaluation call.
// Exactly three are produced per run, one per lens.
type PerspectiveOutput struct {
	Lens               knowledge.Lens  `json:"lens"`
	Stance             Stance          `json:"stance"`
	Summary            string          `json:"summary"`
	SupportingPoints   []EvidencePoint `json:"supporting_points,omitempty"`
	CounterPoints      []EvidencePoint `json:"counter_points,omitempty"`
	Assumptions        []string        `json:"assumptions,omitempty"`
	DisconfirmingTests []string        `json:"disconfirming_tests"`
	OpenQuestions      []string        `json:"open_questions,omitempty"`
	ExamplesInPack     []string        `json:"examples_in_pack,omitempty"`
	Confidence         ConfidenceLabel `json:"confidence"`
	Fallback           bool            `json:"fallback,omitempty"`
}

var validStances = map[Stance]bool{
	StanceSupport: true,
	StanceOppose:  true,
	StanceMixed:   true,
	StanceUnclear: true,
}

var validConfidences = map[ConfidenceLabel]bool{
	ConfidenceHigh:   true,
	ConfidenceMedium: true,
	ConfidenceLow:    true,
}

// Validate enforces the perspective contract. The governor depends on
// disconfirming tests being present, so an empty list fails here and the
// caller substitutes the lens fallback instead.
func (p *PerspectiveOutput) Validate() error {
	if !validStances[p.Stance] {
		return fmt.Errorf("%w: unknown stance %q", ErrInvalidPerspective, p.Stance)
	}
	if p.Summary == "" {
		return fmt.Errorf("%w: summary is required", ErrInvalidPerspective)
	}
	if len(p.DisconfirmingTests) == 0 {
		return fmt.Errorf("%w: at least one disconfirming test is required", ErrInvalidPerspective)
	}
	if !validConfidences[p.Confidence] {
		return fmt.Errorf("%w: unknown confidence %q", ErrInvalidPerspective, p.Confidence)
	}
	return nil
}

// FallbackPerspective is the fixed substitute used when one lens's
// evaluation fails. Failure is isolated per lens: the other two outputs are
// never affected.
func FallbackPerspective(lens knowledge.Lens) PerspectiveOutput {
	return PerspectiveOutput{
		Lens:    lens,
		Stance:  StanceUnclear,
		Summary: fmt.Sprintf("The %s evaluation did not complete; no position is taken from this angle.", lens),
		DisconfirmingTests: []string{
			"Re-run the evaluation once the evidence review completes and compare its stance against the synthesized recommendation.",
		},
		Confidence: ConfidenceLow,
		Fallback:   true,
	}
}
