package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groundwork-io/groundwork/internal/config"
	"github.com/groundwork-io/groundwork/internal/engine"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate the configuration",
	Long: `Validates the declared resources without contacting any provider.

Checks that every resource address is unique, every reference points to
a declared resource, and the dependency graph is acyclic.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath, err := resolveConfigPath(args)
	if err != nil {
		return err
	}

	fmt.Printf("Checking %s... ", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Println("FAILED")
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, err := engine.Build(cfg.Resources); err != nil {
		fmt.Println("FAILED")
		return fmt.Errorf("validation failed: %w", err)
	}
	fmt.Println("OK")

	fmt.Printf("\nConfiguration is valid: %d resource(s).\n", len(cfg.Resources))
	return nil
}
