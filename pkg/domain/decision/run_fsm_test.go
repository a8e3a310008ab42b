package decision_test

import (
	"errors"
	"testing"

	"github.com/verdictlabs/verdict/pkg/domain/decision"
)

func TestRunStateMachineAdvancesInOrder(t *testing.T) {
	sm, err := decision.NewRunStateMachine("run-1")
	if err != nil {
		t.Fatalf("NewRunStateMachine failed: %v", err)
	}

	for _, step := range decision.Steps() {
		stage, running := sm.Stage()
		if !running {
			t.Fatalf("machine terminal before %s", step)
		}
		if stage != step {
			t.Fatalf("expected stage %s, got %s", step, stage)
		}
		if err := sm.Advance(); err != nil {
			t.Fatalf("advance from %s failed: %v", step, err)
		}
	}

	if !sm.Terminal() {
		t.Errorf("machine should be terminal after the last stage")
	}
	if sm.Current() != string(decision.StatusComplete) {
		t.Errorf("expected complete, got %s", sm.Current())
	}
}

func TestRunStateMachineFailFromAnyStage(t *testing.T) {
	sm, err := decision.NewRunStateMachine("run-2")
	if err != nil {
		t.Fatalf("NewRunStateMachine failed: %v", err)
	}
	if err := sm.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if err := sm.Advance(); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	if err := sm.Fail(); err != nil {
		t.Fatalf("fail failed: %v", err)
	}
	if sm.Current() != string(decision.StatusFailed) {
		t.Errorf("expected failed, got %s", sm.Current())
	}
}

func TestRunStateMachineTerminalStatesAbsorb(t *testing.T) {
	sm, _ := decision.NewRunStateMachine("run-3")
	if err := sm.Fail(); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	err := sm.Advance()
	if err == nil {
		t.Fatalf("advancing a failed run must be rejected")
	}
	var te *decision.TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %T", err)
	}
	if !errors.Is(err, decision.ErrInvalidTransition) {
		t.Errorf("error must match ErrInvalidTransition")
	}
	if te.RunID != "run-3" {
		t.Errorf("transition error carries run id, got %q", te.RunID)
	}

	if err := sm.Fail(); err == nil {
		t.Errorf("failing a failed run must be rejected")
	}
}
