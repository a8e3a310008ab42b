package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/verdictlabs/verdict/internal/infrastructure/wiring"
	"github.com/verdictlabs/verdict/pkg/application"
	"github.com/verdictlabs/verdict/pkg/domain/decision"
	"github.com/verdictlabs/verdict/pkg/domain/events"
)

var (
	decideContext    []string
	decideContextRaw string
	decideIdemKey    string
	decidePlain      bool
)

var decideCmd = &cobra.Command{
	Use:   "decide <question>",
	Short: "Run a decision question through the evidence pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")

		inputContext, err := parseInputContext()
		if err != nil {
			return err
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		services, err := wiring.Build(cwd)
		if err != nil {
			return err
		}
		for _, w := range services.CorpusWarnings {
			fmt.Fprintf(os.Stderr, "corpus: dropped %v\n", w)
		}

		run, started, err := services.Pipeline.Submit(context.Background(), question, inputContext, decideIdemKey)
		if err != nil {
			return err
		}
		if !started {
			if run.Terminal() {
				printRun(run)
				return nil
			}
			fmt.Printf("Run %s is already in progress for this idempotency key.\n", run.ID)
			return nil
		}

		if decidePlain {
			return decidePlainRun(services, run)
		}
		return decideInteractiveRun(services, run)
	},
}

// decidePlainRun prints step lines as they happen; no TUI.
func decidePlainRun(services *wiring.Services, run *decision.Run) error {
	services.Publisher.Subscribe(func(e *events.ProgressEvent) error {
		if e.RunID != run.ID || e.Terminal {
			return nil
		}
		fmt.Printf("  %s: %s\n", e.Step, e.Message)
		return nil
	})

	result, err := services.Pipeline.Execute(context.Background(), run)
	if err != nil {
		fmt.Println(application.SanitizeFailure(application.GenericFailureMessage))
		return fmt.Errorf("run %s failed", result.ID)
	}
	printRun(result)
	return nil
}

// decideInteractiveRun shows a live step list while the pipeline works.
func decideInteractiveRun(services *wiring.Services, run *decision.Run) error {
	m := newProgressModel(run.ID)
	p := tea.NewProgram(m)

	services.Publisher.Subscribe(func(e *events.ProgressEvent) error {
		if e.RunID == run.ID {
			p.Send(progressMsg{event: e})
		}
		return nil
	})

	var result *decision.Run
	var runErr error
	go func() {
		result, runErr = services.Pipeline.Execute(context.Background(), run)
		p.Send(finishedMsg{})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("progress view failed: %w", err)
	}

	if runErr != nil {
		fmt.Println(application.SanitizeFailure(application.GenericFailureMessage))
		return fmt.Errorf("run %s failed", run.ID)
	}
	printRun(result)
	return nil
}

func printRun(run *decision.Run) {
	if run.Status == decision.StatusFailed {
		fmt.Println(application.SanitizeFailure(application.GenericFailureMessage))
		return
	}
	if run.Card == nil {
		fmt.Printf("Run %s: %s\n", run.ID, run.Status)
		return
	}
	fmt.Println(renderCardView(run.Card))
	fmt.Printf("\nrun id: %s\n", run.ID)
}

func parseInputContext() (map[string]any, error) {
	inputContext := map[string]any{}
	if decideContextRaw != "" {
		if err := json.Unmarshal([]byte(decideContextRaw), &inputContext); err != nil {
			return nil, fmt.Errorf("--context-json is not valid JSON: %w", err)
		}
	}
	for _, pair := range decideContext {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("--context entries must be key=value, got %q", pair)
		}
		inputContext[k] = v
	}
	return inputContext, nil
}

func init() {
	decideCmd.Flags().StringArrayVar(&decideContext, "context", nil, "Situational context as key=value (repeatable)")
	decideCmd.Flags().StringVar(&decideContextRaw, "context-json", "", "Situational context as a JSON object")
	decideCmd.Flags().StringVar(&decideIdemKey, "idempotency-key", "", "Client idempotency key; re-submitting returns the original run")
	decideCmd.Flags().BoolVar(&decidePlain, "plain", false, "Print step lines instead of the interactive view")
	RootCmd.AddCommand(decideCmd)
}
