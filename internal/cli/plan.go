package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/groundwork-io/groundwork/internal/config"
	"github.com/groundwork-io/groundwork/internal/engine"
	"github.com/groundwork-io/groundwork/internal/provider"
)

var (
	planOutFile string
	planTargets []string
)

var planCmd = &cobra.Command{
	Use:   "plan [path]",
	Short: "Generate an execution plan",
	Long: `Generates an execution plan showing what actions groundwork will take
to reach the declared state.

The plan shows:
  - Resources to be created
  - Resources to be updated (with diff)
  - Resources to be replaced or deleted`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planOutFile, "out", "o", "", "Write the plan to a file for a later apply")
	planCmd.Flags().StringSliceVar(&planTargets, "target", nil, "Limit planning to the given resource addresses (repeatable)")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	configPath, err := resolveConfigPath(args)
	if err != nil {
		return err
	}

	fmt.Print("Loading configuration... ")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Println("FAILED")
		return fmt.Errorf("failed to load config: %w", err)
	}
	fmt.Println("OK")

	store, err := newStore(configPath)
	if err != nil {
		return err
	}
	st, err := store.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	registry := provider.NewRegistry()
	if err := loadRequiredProviders(ctx, registry, cfg); err != nil {
		return err
	}
	if err := loadStateProviders(ctx, registry, st); err != nil {
		return err
	}

	graph, err := engine.Build(cfg.Resources)
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}

	fmt.Print("Calculating plan... ")
	plan, err := engine.NewPlanner(registry).PlanTargets(graph, st, planTargets)
	if err != nil {
		fmt.Println("FAILED")
		return fmt.Errorf("plan generation failed: %w", err)
	}
	plan.Outputs = cfg.Outputs
	fmt.Println("OK")

	if !plan.HasChanges() {
		fmt.Println("\nNo changes. Infrastructure is up-to-date.")
		return nil
	}

	fmt.Println("\nGroundwork will perform the following actions:")
	renderPlanChanges(plan)
	renderPlanSummary(plan)

	if planOutFile != "" {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
		if err := os.WriteFile(planOutFile, data, 0o644); err != nil {
			return fmt.Errorf("failed to write plan file: %w", err)
		}
		fmt.Printf("\nPlan written to %s\n", planOutFile)
	}

	return nil
}
