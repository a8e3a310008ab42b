package decision

// Word budgets for the rendered card fields.
const (
	cardHeadlineWords  = 25
	cardRationaleWords = 60
	cardCaveatWords    = 30
	cardPatternWords   = 35
	cardStepWords      = 20
	cardMaxSteps       = 3
)

// Card is the fixed-field display record derived from the synthesis and
// pattern outputs. Rendering is deterministic: the same inputs always yield
// the same card.
type Card struct {
	Headline   string   `json:"headline"`
	Confidence string   `json:"confidence"`
	Posture    string   `json:"posture"`
	Rationale  string   `json:"rationale"`
	Caveat     string   `json:"caveat,omitempty"`
	Pattern    string   `json:"pattern,omitempty"`
	NextSteps  []string `json:"next_steps,omitempty"`
}

// RenderCard maps the synthesized recommendation, the governor grade and the
// pattern match onto the card's fixed fields, clamping every field to its
// word budget.
func RenderCard(s *Synthesis, g *GovernorOutput, p *PatternMatch) Card {
	card := Card{
		Headline:   ClampWords(s.RecommendedChoice, cardHeadlineWords),
		Confidence: string(g.Tier),
		Posture:    string(g.Posture),
	}

	if len(s.Reasons) > 0 {
		card.Rationale = ClampWords(joinSentences(s.Reasons), cardRationaleWords)
	}
	if len(s.Risks) > 0 {
		card.Caveat = ClampWords(s.Risks[0], cardCaveatWords)
	} else if s.EscapeHatch.Condition != "" {
		card.Caveat = ClampWords("Escape hatch: "+s.EscapeHatch.Condition, cardCaveatWords)
	}
	if p != nil && p.Principle != "" {
		card.Pattern = ClampWords(p.Principle, cardPatternWords)
	}
	for i, step := range s.NextSteps {
		if i == cardMaxSteps {
			break
		}
		card.NextSteps = append(card.NextSteps, ClampWords(step, cardStepWords))
	}
	return card
}

func joinSentences(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += " "
		}
		out += item
		if n := len(item); n > 0 && item[n-1] != '.' {
			out += "."
		}
	}
	return out
}
