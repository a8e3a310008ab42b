package decision

import (
	"time"
)

// RunStatus is the lifecycle state of one decision run.
type RunStatus string

const (
	StatusRunning  RunStatus = "running"
	StatusComplete RunStatus = "complete"
	StatusPartial  RunStatus = "partial"
	StatusFailed   RunStatus = "failed"
)

// Step names the pipeline stages as reported to callers. The vocabulary is
// part of the external contract.
type Step string

const (
	StepClassifying  Step = "classifying"
	StepCompiling    Step = "compiling"
	StepEvaluating   Step = "evaluating"
	StepGoverning    Step = "governing"
	StepSynthesising Step = "synthesising"
	StepMatching     Step = "matching"
	StepRendering    Step = "rendering"
)

// Steps returns the pipeline stages in execution order.
func Steps() []Step {
	return []Step{
		StepClassifying,
		StepCompiling,
		StepEvaluating,
		StepGoverning,
		StepSynthesising,
		StepMatching,
		StepRendering,
	}
}

// Run is the overall unit of work: the question, its context, and every
// intermediate artifact, persisted incrementally as stages complete.
type Run struct {
	ID             string              `json:"id"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
	Status         RunStatus           `json:"status"`
	Question       string              `json:"question"`
	InputContext   map[string]any      `json:"input_context,omitempty"`
	Classification *Classification     `json:"classification,omitempty"`
	Packs          []LensPack          `json:"packs,omitempty"`
	Perspectives   []PerspectiveOutput `json:"perspectives,omitempty"`
	Governor       *GovernorOutput     `json:"governor,omitempty"`
	Synthesis      *Synthesis          `json:"synthesis,omitempty"`
	Pattern        *PatternMatch       `json:"pattern,omitempty"`
	Card           *Card               `json:"card,omitempty"`
	Error          string              `json:"error,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
}

// Terminal reports whether the run has reached a final status.
func (r *Run) Terminal() bool {
	return r.Status == StatusComplete || r.Status == StatusFailed
}
