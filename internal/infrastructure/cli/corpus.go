package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/verdictlabs/verdict/internal/infrastructure/watch"
	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
	"github.com/verdictlabs/verdict/pkg/storage"
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect and validate the knowledge corpus",
}

var corpusValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every corpus record and report the rejects",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		repo := storage.NewFilesystemRepository(cwd)
		report, ok := validateCorpus(repo.CorpusPath())
		fmt.Print(report)
		if !ok {
			return fmt.Errorf("corpus has invalid records")
		}
		return nil
	},
}

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus composition by type",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		repo := storage.NewFilesystemRepository(cwd)
		corpus, warnings, err := storage.LoadCorpus(repo.CorpusPath(), knowledge.Lenient)
		if err != nil {
			return err
		}

		fmt.Printf("%d valid atoms (%d dropped)\n", corpus.Len(), len(warnings))
		for t, n := range corpus.CountByType() {
			fmt.Printf("  %-13s %d\n", t, n)
		}
		return nil
	},
}

var corpusWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-validate the corpus whenever its files change",
	Long: `Watches .verdict/corpus and re-runs validation after edits settle.
The running pipeline's corpus is immutable; this reports what the next
process start would load.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		repo := storage.NewFilesystemRepository(cwd)
		dir := repo.CorpusPath()

		report, _ := validateCorpus(dir)
		fmt.Print(report)

		watcher := watch.NewCorpusWatcher(dir, func() {
			report, _ := validateCorpus(dir)
			fmt.Print("\ncorpus changed:\n" + report)
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Println("watching for changes (ctrl+c to stop)...")
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func validateCorpus(dir string) (string, bool) {
	corpus, warnings, err := storage.LoadCorpus(dir, knowledge.Lenient)
	if err != nil {
		return fmt.Sprintf("corpus load failed: %v\n", err), false
	}

	out := fmt.Sprintf("%d valid atoms, %d rejected\n", corpus.Len(), len(warnings))
	for _, w := range warnings {
		out += fmt.Sprintf("  reject: %v\n", w)
	}
	return out, len(warnings) == 0
}

func init() {
	corpusCmd.AddCommand(corpusValidateCmd)
	corpusCmd.AddCommand(corpusStatsCmd)
	corpusCmd.AddCommand(corpusWatchCmd)
	RootCmd.AddCommand(corpusCmd)
}
