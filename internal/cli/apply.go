package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/groundwork-io/groundwork/internal/config"
	"github.com/groundwork-io/groundwork/internal/engine"
	"github.com/groundwork-io/groundwork/internal/ir"
	"github.com/groundwork-io/groundwork/internal/provider"
)

var (
	applyAutoApprove bool
	applyParallelism int
	applyPlanFile    string
	applyTargets     []string
)

var applyCmd = &cobra.Command{
	Use:   "apply [path]",
	Short: "Apply a configuration",
	Long: `Builds or changes resources according to the declared configuration.

Independent resources are applied concurrently. A provider failure stops
the failed resource's dependents but lets unrelated branches finish.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyAutoApprove, "auto-approve", false, "Skip interactive approval of plan before applying")
	applyCmd.Flags().IntVar(&applyParallelism, "parallelism", 0, "Maximum number of concurrent resource operations")
	applyCmd.Flags().StringVar(&applyPlanFile, "plan", "", "Apply a previously saved plan file")
	applyCmd.Flags().StringSliceVar(&applyTargets, "target", nil, "Limit the run to the given resource addresses (repeatable)")
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	var plan *ir.Plan
	if applyPlanFile != "" {
		plan, err = readPlanFile(applyPlanFile)
		if err != nil {
			return err
		}
	} else {
		graph, err := engine.Build(cfg.Resources)
		if err != nil {
			return fmt.Errorf("failed to build graph: %w", err)
		}

		fmt.Print("Calculating plan... ")
		plan, err = engine.NewPlanner(registry).PlanTargets(graph, st, applyTargets)
		if err != nil {
			fmt.Println("FAILED")
			return fmt.Errorf("plan generation failed: %w", err)
		}
		plan.Outputs = cfg.Outputs
		fmt.Println("OK")
	}

	if !plan.HasChanges() {
		fmt.Println("No changes. Infrastructure is up-to-date.")
		return nil
	}

	fmt.Println("\nGroundwork will perform the following actions:")
	renderPlanChanges(plan)
	renderPlanSummary(plan)

	if !applyAutoApprove {
		fmt.Print("\nDo you want to perform these actions? (y/n): ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "yes" {
			fmt.Println("Apply cancelled.")
			return nil
		}
	}

	fmt.Printf("\nApplying %d change(s)...\n\n", len(plan.Changes()))

	executor := engine.NewExecutor(registry, store)
	if applyParallelism > 0 {
		executor.Parallelism = applyParallelism
	}
	executor.Callback = progressCallback()

	report, err := executor.Apply(ctx, plan)
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	renderReport(report)
	exitCode = report.ExitCode()

	if report.Status == ir.RunSuccess {
		printOutputs(store)
	}
	return nil
}

// progressCallback prints one line per started and finished action.
func progressCallback() engine.Callback {
	return func(ev engine.Event) {
		switch ev.Status {
		case "started":
			fmt.Printf("%s: %s...\n", ev.Address, actionVerb(ev.Action))
		case "completed":
			fmt.Printf("%s: done (%s)\n", ev.Address, ev.Duration.Round(time.Millisecond))
		case "failed":
			fmt.Printf("%s: error: %v\n", ev.Address, ev.Err)
		}
	}
}

func actionVerb(action ir.ActionType) string {
	switch action {
	case ir.ActionCreate:
		return "creating"
	case ir.ActionUpdate:
		return "updating"
	case ir.ActionReplace:
		return "replacing"
	case ir.ActionDelete:
		return "destroying"
	}
	return "processing"
}

func readPlanFile(path string) (*ir.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	var plan ir.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}
	return &plan, nil
}

func printOutputs(store stateViewer) {
	store.View(func(s *ir.State) {
		if len(s.Outputs) == 0 {
			return
		}
		fmt.Println("\nOutputs:")
		keys := make([]string, 0, len(s.Outputs))
		for k := range s.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s = %v\n", k, s.Outputs[k])
		}
	})
}

type stateViewer interface {
	View(read func(*ir.State))
}
