package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/groundwork-io/groundwork/internal/logging"
)

var (
	logLevel  string
	logFormat string

	backendType   string
	backendConfig map[string]string

	// exitCode carries the run outcome of apply/destroy so partial
	// failures exit 2 while validation errors exit 1.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "groundwork",
	Short: "Declarative resource graph orchestration",
	Long: `Groundwork converges declared resources to reality.

It reads a declarative configuration, diffs it against the last-known
state, and executes the resulting plan in dependency order with bounded
parallelism. Independent resources run concurrently; a failure is
contained to its dependency branch.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel, logFormat)
	},
	SilenceUsage: true,
}

// Execute runs the root command and returns the process exit code:
// 0 success, 1 usage or validation error, 2 partial run failure.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return exitCode
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&backendType, "backend", "local", "State backend (local, s3)")
	rootCmd.PersistentFlags().StringToStringVar(&backendConfig, "backend-config", nil, "Backend settings (format: key=value)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(taintCmd)
	rootCmd.AddCommand(untaintCmd)
	rootCmd.AddCommand(versionCmd)
}
