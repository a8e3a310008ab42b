package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/verdictlabs/verdict/internal/infrastructure/config"
	"github.com/verdictlabs/verdict/pkg/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a verdict workspace in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		repo := storage.NewFilesystemRepository(cwd)
		if repo.IsInitialized() {
			return fmt.Errorf("workspace already initialized")
		}
		if err := repo.Initialize(); err != nil {
			return err
		}
		if err := config.Save(cwd, config.Default()); err != nil {
			return err
		}
		if err := writeStarterCorpus(repo.CorpusPath()); err != nil {
			return err
		}

		fmt.Println("Initialized .verdict workspace.")
		fmt.Println("Add corpus atoms under .verdict/corpus/ and set ANTHROPIC_API_KEY (or configure another provider).")
		return nil
	},
}

// writeStarterCorpus seeds one example file so 'verdict corpus validate'
// has something to show.
func writeStarterCorpus(dir string) error {
	const starter = `# Corpus atoms. One file may hold any number of atoms.
atoms:
  - id: heuristic-reversible-first
    type: heuristic
    purpose: Bias toward options that preserve optionality.
    claim: Prefer the reversible option when evidence is thin.
    lenses: [customer, business, feasibility]
    level: product
    strength: high
  - id: example-pilot-win
    type: example
    purpose: Show a pilot paying off.
    claim: A two-week pilot surfaced a blocking integration issue before the full rollout.
    lenses: [feasibility]
    level: product
    dimension: platform
    outcome: worked
    timeframe: "2023"
`
	return os.WriteFile(filepath.Join(dir, "starter.yaml"), []byte(starter), 0600)
}

func init() {
	RootCmd.AddCommand(initCmd)
}
