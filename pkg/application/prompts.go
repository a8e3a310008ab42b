package application

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/verdictlabs/verdict/pkg/domain/decision"
	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
)

// Prompt builders for the four reasoning calls. Each asks for JSON only; the
// structured-call layer extracts, validates and retries with a repair
// instruction when the answer strays.

func classifySystem() string {
	return "You are a decision analyst. You read a decision question and classify it. You return only a JSON object matching the requested shape."
}

func classifyPrompt(question string, inputContext map[string]any) string {
	var b strings.Builder
	b.WriteString("Classify this decision question.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", question)
	writeContext(&b, inputContext)

	b.WriteString("\nPick exactly one level and one dimension from this vocabulary:\n")
	for _, level := range knowledge.Levels() {
		fmt.Fprintf(&b, "- %s: %s\n", level, strings.Join(knowledge.DimensionsFor(level), ", "))
	}

	b.WriteString(`
Return a JSON object:
{
  "level": "...",
  "dimension": "...",
  "secondary_dimensions": ["up to 2, same level"],
  "decision_mode": "choose|diagnose|plan",
  "context_tags": ["short lowercase tags describing the situation"],
  "risk_flags": ["flags for irreversibility, regulation, safety, money at stake"],
  "confidence": 0.0,
  "follow_up_questions": ["3 to 6 questions that would sharpen the decision"]
}`)
	return b.String()
}

func evaluateSystem(lens knowledge.Lens) string {
	angle := map[knowledge.Lens]string{
		knowledge.LensCustomer:    "what the customer gains, loses, and actually does",
		knowledge.LensBusiness:    "revenue, cost, positioning, and strategic consequence",
		knowledge.LensFeasibility: "whether the organisation can build and operate it",
	}[lens]
	return fmt.Sprintf("You argue the %s perspective of a decision: %s. Ground every point in the provided evidence references and cite their ids. Return only a JSON object matching the requested shape.", lens, angle)
}

func evaluatePrompt(question string, inputContext map[string]any, c *decision.Classification, pack *decision.LensPack) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", question)
	writeContext(&b, inputContext)
	fmt.Fprintf(&b, "\nClassified as %s / %s (%s).\n", c.Level, c.Dimension, c.DecisionMode)

	b.WriteString("\nEvidence references for your perspective:\n")
	b.WriteString(renderReferences(pack))

	b.WriteString(`
Return a JSON object:
{
  "stance": "support|oppose|mixed|unclear",
  "summary": "...",
  "supporting_points": [{"text": "...", "atom_ids": ["..."]}],
  "counter_points": [{"text": "...", "atom_ids": ["..."]}],
  "assumptions": ["..."],
  "disconfirming_tests": ["at least one concrete test that would prove you wrong"],
  "open_questions": ["..."],
  "examples_in_pack": ["ids of example references you leaned on"],
  "confidence": "high|medium|low"
}`)
	return b.String()
}

// renderReferences normalizes a pack into the reference list handed to the
// evaluation call: id, type, purpose, claim, rationale, applicability and
// relevance score per atom.
func renderReferences(pack *decision.LensPack) string {
	var b strings.Builder
	for i := range pack.Atoms {
		sa := &pack.Atoms[i]
		a := &sa.Atom
		fmt.Fprintf(&b, "[%s] (%s, relevance %d) %s\n", a.ID, a.Type, sa.Score, a.Claim)
		if a.Purpose != "" {
			fmt.Fprintf(&b, "  purpose: %s\n", a.Purpose)
		}
		if a.Rationale != "" {
			fmt.Fprintf(&b, "  rationale: %s\n", a.Rationale)
		}
		if len(a.AppliesWhen) > 0 {
			fmt.Fprintf(&b, "  applies when: %s\n", strings.Join(a.AppliesWhen, ", "))
		}
		if len(a.BreaksWhen) > 0 {
			fmt.Fprintf(&b, "  breaks when: %s\n", strings.Join(a.BreaksWhen, ", "))
		}
	}
	return b.String()
}

func synthesizeSystem() string {
	return "You draft a single decision recommendation from three perspective evaluations and a confidence grade. Be concrete and direct. Never mention internal machinery (lenses, packs, governors, classifiers). Return only a JSON object matching the requested shape."
}

func synthesizePrompt(question string, inputContext map[string]any, perspectives []decision.PerspectiveOutput, gov *decision.GovernorOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", question)
	writeContext(&b, inputContext)

	b.WriteString("\nPerspective evaluations:\n")
	for i := range perspectives {
		p := &perspectives[i]
		fmt.Fprintf(&b, "- %s: stance=%s confidence=%s. %s\n", p.Lens, p.Stance, p.Confidence, p.Summary)
	}
	fmt.Fprintf(&b, "\nEvidence grade: %s (%.2f), recommended posture %s.\n", gov.Tier, gov.ConfidenceScore, gov.Posture)

	b.WriteString(`
Return a JSON object:
{
  "recommended_choice": "one clear sentence, max 300 characters",
  "confidence_label": "...",
  "confidence_score": 0.0,
  "reasons": ["1-5 entries"],
  "trade_offs": ["up to 4"],
  "risks": ["up to 4"],
  "escape_hatch": {"condition": "when to abandon this", "action": "what to do instead"},
  "next_steps": ["up to 5"]
}`)
	return b.String()
}

func patternSystem() string {
	return "You connect a recommendation to precedents. Cite only the example ids supplied; never invent one. Return only a JSON object matching the requested shape."
}

func patternPrompt(c *decision.Classification, recommendation string, examples []decision.ScoredAtom) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommendation: %s\n", recommendation)
	fmt.Fprintf(&b, "Decision area: %s / %s\n", c.Level, c.Dimension)

	b.WriteString("\nAvailable precedents:\n")
	for i := range examples {
		a := &examples[i].Atom
		outcome := string(a.Outcome)
		if outcome == "" {
			outcome = "unknown"
		}
		fmt.Fprintf(&b, "[%s] (%s) %s", a.ID, outcome, a.Claim)
		if a.Timeframe != "" {
			fmt.Fprintf(&b, " (%s)", a.Timeframe)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Return a JSON object:
{
  "principle": "general principle, at most 35 words",
  "mechanism": "why it holds, at most 40 words",
  "worked": [{"atom_id": "...", "summary": "...", "timeframe": "..."}],
  "failed": [{"atom_id": "...", "summary": "...", "timeframe": "..."}]
}
Up to 3 worked and 3 failed precedents, each citing a listed id.`)
	return b.String()
}

func writeContext(b *strings.Builder, inputContext map[string]any) {
	if len(inputContext) == 0 {
		return
	}
	data, err := json.MarshalIndent(inputContext, "", "  ")
	if err != nil {
		return
	}
	fmt.Fprintf(b, "Context:\n%s\n", data)
}
