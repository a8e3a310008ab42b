package application

import (
	"context"
	"sync"

	"github.com/verdictlabs/verdict/pkg/domain/decision"
	"github.com/verdictlabs/verdict/pkg/domain/reasoning"
	reasoningcall "github.com/verdictlabs/verdict/pkg/reasoning"
)

// evaluatePerspectives dispatches the three lens evaluations concurrently
// and waits for all of them to settle. A failing lens gets the fixed
// fallback output; one lens's failure never cancels or taints its siblings,
// and the stage itself cannot fail.
func (s *PipelineService) evaluatePerspectives(ctx context.Context, question string, inputContext map[string]any, c *decision.Classification, packs []decision.LensPack) []decision.PerspectiveOutput {
	results := make([]decision.PerspectiveOutput, len(packs))

	var wg sync.WaitGroup
	for i := range packs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = s.evaluateLens(ctx, question, inputContext, c, &packs[idx])
		}(i)
	}
	wg.Wait()

	return results
}

// evaluateLens runs one perspective call end to end: structured call,
// contract validation, citation check, fallback on any failure.
func (s *PipelineService) evaluateLens(ctx context.Context, question string, inputContext map[string]any, c *decision.Classification, pack *decision.LensPack) decision.PerspectiveOutput {
	var out decision.PerspectiveOutput

	req := reasoning.Request{
		Model:       s.options.Model,
		System:      evaluateSystem(pack.Lens),
		Messages:    []reasoning.Message{{Role: reasoning.RoleUser, Content: evaluatePrompt(question, inputContext, c, pack)}},
		Temperature: s.options.Temperature,
		MaxTokens:   s.options.MaxTokens,
	}

	err := reasoningcall.StructuredCall(ctx, s.provider, req, perspectiveSchema, &out)
	if err == nil {
		out.Lens = pack.Lens
		if verr := out.Validate(); verr != nil {
			err = verr
		}
	}
	if err != nil {
		s.auditQuietly("", "perspective.fallback", map[string]any{
			"lens":  string(pack.Lens),
			"cause": err.Error(),
		})
		return decision.FallbackPerspective(pack.Lens)
	}

	dropUnknownCitations(&out, pack)
	return out
}

// dropUnknownCitations strips atom ids the pack does not contain. Citations
// are advisory; a noisy id is not worth discarding an otherwise valid
// evaluation.
func dropUnknownCitations(p *decision.PerspectiveOutput, pack *decision.LensPack) {
	filterPoints := func(points []decision.EvidencePoint) {
		for i := range points {
			var kept []string
			for _, id := range points[i].AtomIDs {
				if pack.Contains(id) {
					kept = append(kept, id)
				}
			}
			points[i].AtomIDs = kept
		}
	}
	filterPoints(p.SupportingPoints)
	filterPoints(p.CounterPoints)

	var examples []string
	for _, id := range p.ExamplesInPack {
		if pack.Contains(id) {
			examples = append(examples, id)
		}
	}
	p.ExamplesInPack = examples
}
