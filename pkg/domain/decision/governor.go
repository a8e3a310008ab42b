package decision

import (
	"fmt"
	"strings"
)

// ConfidenceTier is the graded strength of the evidence behind an answer.
type ConfidenceTier string

const (
	TierExploratory ConfidenceTier = "exploratory"
	TierDirectional ConfidenceTier = "directional"
	TierSupported   ConfidenceTier = "supported"
	TierHigh        ConfidenceTier = "high"
)

// Posture is the recommended stance toward acting on the decision.
type Posture string

const (
	PostureExplore           Posture = "explore"
	PostureTest              Posture = "test"
	PostureProceedCautiously Posture = "proceed_cautiously"
	PostureProceed           Posture = "proceed"
	PostureHold              Posture = "hold"
)

// GovernorOutput grades the three perspective outputs into a confidence
// score, tier and commitment posture. Computed once per run, never mutated
// afterwards.
type GovernorOutput struct {
	ConfidenceScore float64        `json:"confidence_score"`
	Tier            ConfidenceTier `json:"confidence_tier"`
	Posture         Posture        `json:"commitment_posture"`
	TriggerRound2   bool           `json:"trigger_round_2"`
	Reasons         []string       `json:"reasons"`
}

// ReasonsText renders the audit trail as one reproducible block. Identical
// inputs always yield byte-identical text.
func (g *GovernorOutput) ReasonsText() string {
	return strings.Join(g.Reasons, "\n")
}

// Confidence arithmetic runs in integer hundredths so threshold comparisons
// are exact and the rendered deltas never pick up float noise.
const (
	baseConfidence = 50

	penaltyUnclear      = -15
	penaltyConflict     = -20
	penaltyRiskFlags    = -10
	penaltyMissingTests = -10
	penaltyAssumptions  = -5
	bonusUnanimous      = 15

	assumptionBudget = 6
)

// Tier lower bounds, inclusive.
const (
	tierHighMin        = 75
	tierSupportedMin   = 55
	tierDirectionalMin = 35
)

const round2Threshold = 40

// Govern combines the three perspective outputs and the classification into
// a confidence grade. Pure and deterministic: no I/O, no randomness. Every
// adjustment that matches is applied independently and appended to the
// reasons trail in rule order.
//
// Under this rule set the high tier is unreachable (the best attainable
// score from the neutral base is 0.65). That ceiling is a deliberate
// property of the grading, not a gap to close with extra bonuses.
func Govern(perspectives []PerspectiveOutput, c *Classification) GovernorOutput {
	score := baseConfidence
	var reasons []string

	adjust := func(delta int, cause string) {
		score += delta
		reasons = append(reasons, fmt.Sprintf("%+.2f %s", float64(delta)/100, cause))
	}

	anyUnclear := false
	hasSupport := false
	hasOppose := false
	allSupport := len(perspectives) == 3
	missingTests := false
	assumptions := 0
	for i := range perspectives {
		p := &perspectives[i]
		switch p.Stance {
		case StanceUnclear:
			anyUnclear = true
		case StanceSupport:
			hasSupport = true
		case StanceOppose:
			hasOppose = true
		}
		if p.Stance != StanceSupport {
			allSupport = false
		}
		if len(p.DisconfirmingTests) == 0 {
			missingTests = true
		}
		assumptions += len(p.Assumptions)
	}
	// Mixed alone never counts as conflict; only support against oppose.
	conflict := hasSupport && hasOppose

	if anyUnclear {
		adjust(penaltyUnclear, "at least one perspective returned an unclear stance")
	}
	if conflict {
		adjust(penaltyConflict, "perspectives conflict: support and oppose are both present")
	}
	if len(c.RiskFlags) > 0 {
		adjust(penaltyRiskFlags, fmt.Sprintf("classification carries %d risk flag(s)", len(c.RiskFlags)))
	}
	if missingTests {
		adjust(penaltyMissingTests, "a perspective supplied no disconfirming tests")
	}
	if assumptions > assumptionBudget {
		adjust(penaltyAssumptions, fmt.Sprintf("%d assumptions across perspectives exceed the budget of %d", assumptions, assumptionBudget))
	}
	if allSupport {
		adjust(bonusUnanimous, "all three perspectives support the direction")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var tier ConfidenceTier
	switch {
	case score >= tierHighMin:
		tier = TierHigh
	case score >= tierSupportedMin:
		tier = TierSupported
	case score >= tierDirectionalMin:
		tier = TierDirectional
	default:
		tier = TierExploratory
	}

	posture := postureFor(tier, c.DecisionMode)
	trigger := score < round2Threshold || conflict

	out := GovernorOutput{
		ConfidenceScore: float64(score) / 100,
		Tier:            tier,
		Posture:         posture,
		TriggerRound2:   trigger,
		Reasons:         reasons,
	}
	out.Reasons = append(out.Reasons, fmt.Sprintf(
		"final: score=%.2f tier=%s posture=%s round_2=%t",
		out.ConfidenceScore, tier, posture, trigger,
	))
	return out
}

func postureFor(tier ConfidenceTier, mode DecisionMode) Posture {
	// Diagnosis always ends in testing, whatever the tier says.
	if mode == ModeDiagnose {
		return PostureTest
	}
	switch tier {
	case TierHigh:
		return PostureProceed
	case TierSupported:
		return PostureProceedCautiously
	case TierDirectional:
		return PostureTest
	default:
		return PostureExplore
	}
}
