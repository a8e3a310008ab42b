package decision

import "fmt"

// Structural caps on the synthesized recommendation. The external reasoning
// call must stay inside these; validation rejects anything larger.
const (
	maxSynthesisReasons   = 5
	maxSynthesisTradeOffs = 4
	maxSynthesisRisks     = 4
	maxSynthesisNextSteps = 5
	maxSynthesisChoiceLen = 300
	maxSynthesisItemLen   = 400
)

// EscapeHatch names the condition under which the recommendation should be
// abandoned, and what to do instead.
type EscapeHatch struct {
	Condition string `json:"condition"`
	Action    string `json:"action"`
}

// Synthesis is the drafted recommendation record, produced externally from
// the perspectives and the governor grade.
type Synthesis struct {
	RecommendedChoice string      `json:"recommended_choice"`
	ConfidenceLabel   string      `json:"confidence_label"`
	ConfidenceScore   float64     `json:"confidence_score"`
	Reasons           []string    `json:"reasons"`
	TradeOffs         []string    `json:"trade_offs,omitempty"`
	Risks             []string    `json:"risks,omitempty"`
	EscapeHatch       EscapeHatch `json:"escape_hatch"`
	NextSteps         []string    `json:"next_steps"`
}

// Validate enforces the synthesis contract's array and string caps.
func (s *Synthesis) Validate() error {
	if s.RecommendedChoice == "" {
		return fmt.Errorf("synthesis: recommended choice is required")
	}
	if len(s.RecommendedChoice) > maxSynthesisChoiceLen {
		return fmt.Errorf("synthesis: recommended choice exceeds %d characters", maxSynthesisChoiceLen)
	}
	if len(s.Reasons) == 0 {
		return fmt.Errorf("synthesis: at least one reason is required")
	}
	if s.ConfidenceScore < 0 || s.ConfidenceScore > 1 {
		return fmt.Errorf("synthesis: confidence score %v outside [0,1]", s.ConfidenceScore)
	}
	if s.EscapeHatch.Condition == "" || s.EscapeHatch.Action == "" {
		return fmt.Errorf("synthesis: escape hatch condition and action are required")
	}
	lists := []struct {
		name  string
		items []string
		max   int
	}{
		{"reasons", s.Reasons, maxSynthesisReasons},
		{"trade_offs", s.TradeOffs, maxSynthesisTradeOffs},
		{"risks", s.Risks, maxSynthesisRisks},
		{"next_steps", s.NextSteps, maxSynthesisNextSteps},
	}
	for _, l := range lists {
		if len(l.items) > l.max {
			return fmt.Errorf("synthesis: %s exceeds %d entries", l.name, l.max)
		}
		for _, item := range l.items {
			if len(item) > maxSynthesisItemLen {
				return fmt.Errorf("synthesis: %s entry exceeds %d characters", l.name, maxSynthesisItemLen)
			}
		}
	}
	return nil
}
