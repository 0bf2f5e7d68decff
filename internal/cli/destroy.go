package cli

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/groundwork-io/groundwork/internal/engine"
	"github.com/groundwork-io/groundwork/internal/ir"
	"github.com/groundwork-io/groundwork/internal/provider"
)

var (
	destroyAutoApprove bool
	destroyParallelism int
)

var destroyCmd = &cobra.Command{
	Use:   "destroy [path]",
	Short: "Destroy all managed resources",
	Long: `Deletes every resource tracked in state, in the strict reverse of the
order they were applied.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().BoolVar(&destroyAutoApprove, "auto-approve", false, "Skip interactive approval before destroying")
	destroyCmd.Flags().IntVar(&destroyParallelism, "parallelism", 0, "Maximum number of concurrent resource operations")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath, err := resolveConfigPath(args)
	if err != nil {
		return err
	}

	store, err := newStore(configPath)
	if err != nil {
		return err
	}
	st, err := store.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	if len(st.Resources) == 0 {
		fmt.Println("No resources in state. Nothing to destroy.")
		return nil
	}

	registry := provider.NewRegistry()
	if err := loadStateProviders(ctx, registry, st); err != nil {
		return err
	}

	fmt.Printf("Groundwork will destroy %d resource(s):\n\n", len(st.Resources))
	for _, addr := range destroyOrder(st) {
		fmt.Printf("\033[31m  - %s\033[0m\n", addr)
	}

	if !destroyAutoApprove {
		fmt.Print("\nDo you really want to destroy all resources? (y/n): ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "yes" {
			fmt.Println("Destroy cancelled.")
			return nil
		}
	}

	fmt.Println("\nDestroying...")

	executor := engine.NewExecutor(registry, store)
	if destroyParallelism > 0 {
		executor.Parallelism = destroyParallelism
	}
	executor.Callback = progressCallback()

	report, err := executor.Destroy(ctx)
	if err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}

	renderReport(report)
	exitCode = report.ExitCode()
	return nil
}

// destroyOrder previews the deletion order without executing anything.
func destroyOrder(st *ir.State) []string {
	graph, err := engine.BuildFromState(st)
	if err != nil {
		addrs := make([]string, 0, len(st.Resources))
		for addr := range st.Resources {
			addrs = append(addrs, addr)
		}
		sort.Strings(addrs)
		return addrs
	}
	return graph.ReverseOrder()
}
