package cli

import (
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "verdict",
	Version: Version,
	Short:   "Evidence-graded answers to decision questions",
	Long: `Verdict turns a free-form decision question into a structured,
evidence-graded recommendation. It assembles evidence from a fixed
knowledge corpus, argues three perspectives in parallel, grades the
strength of the answer deterministically, and renders the result as a
decision card.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return RootCmd.Execute()
}
