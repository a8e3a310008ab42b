package decision

import (
	"fmt"

	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
)

// DecisionMode is what kind of question the user is asking.
type DecisionMode string

const (
	ModeChoose   DecisionMode = "choose"
	ModeDiagnose DecisionMode = "diagnose"
	ModePlan     DecisionMode = "plan"
)

// Classification is the structured reading of a question, produced by the
// external reasoning service and consumed read-only by the pipeline.
type Classification struct {
	Level               knowledge.Level `json:"level"`
	Dimension           string          `json:"dimension"`
	SecondaryDimensions []string        `json:"secondary_dimensions,omitempty"`
	DecisionMode        DecisionMode    `json:"decision_mode"`
	ContextTags         []string        `json:"context_tags,omitempty"`
	RiskFlags           []string        `json:"risk_flags,omitempty"`
	Confidence          float64         `json:"confidence"`
	FollowUpQuestions   []string        `json:"follow_up_questions"`
}

var validModes = map[DecisionMode]bool{
	ModeChoose:   true,
	ModeDiagnose: true,
	ModePlan:     true,
}

// Validate enforces the classification invariants: the dimension and every
// secondary dimension must belong to the level's fixed vocabulary, and at
// most two secondaries are allowed. Violations are rejected, never repaired.
func (c *Classification) Validate() error {
	if !knowledge.ValidLevel(c.Level) {
		return fmt.Errorf("%w: unknown level %q", ErrInvalidClassification, c.Level)
	}
	if !knowledge.ValidDimension(c.Level, c.Dimension) {
		return fmt.Errorf("%w: dimension %q is not in the %s vocabulary", ErrInvalidClassification, c.Dimension, c.Level)
	}
	if len(c.SecondaryDimensions) > 2 {
		return fmt.Errorf("%w: at most 2 secondary dimensions, got %d", ErrInvalidClassification, len(c.SecondaryDimensions))
	}
	for _, d := range c.SecondaryDimensions {
		if !knowledge.ValidDimension(c.Level, d) {
			return fmt.Errorf("%w: secondary dimension %q is not in the %s vocabulary", ErrInvalidClassification, d, c.Level)
		}
	}
	if !validModes[c.DecisionMode] {
		return fmt.Errorf("%w: unknown decision mode %q", ErrInvalidClassification, c.DecisionMode)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidClassification, c.Confidence)
	}
	if n := len(c.FollowUpQuestions); n < 3 || n > 6 {
		return fmt.Errorf("%w: 3-6 follow-up questions required, got %d", ErrInvalidClassification, n)
	}
	return nil
}

// HasTag reports whether tag is among the classification's context tags.
func (c *Classification) HasTag(tag string) bool {
	for _, t := range c.ContextTags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasSecondary reports whether dim is listed as a secondary dimension.
func (c *Classification) HasSecondary(dim string) bool {
	for _, d := range c.SecondaryDimensions {
		if d == dim {
			return true
		}
	}
	return false
}
