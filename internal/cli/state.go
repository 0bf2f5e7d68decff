package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/groundwork-io/groundwork/internal/ir"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and modify state",
	Long:  `Commands for inspecting and modifying groundwork state.`,
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resources in state",
	RunE:  runStateList,
}

var stateShowCmd = &cobra.Command{
	Use:   "show <address>",
	Short: "Show attributes of a single resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateShow,
}

var stateRmCmd = &cobra.Command{
	Use:   "rm <address>",
	Short: "Remove a resource from state (does not destroy)",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateRm,
}

func init() {
	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateRmCmd)
}

func runStateList(cmd *cobra.Command, args []string) error {
	store, err := newStore(defaultConfigFile)
	if err != nil {
		return err
	}
	st, err := store.Read(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	if len(st.Resources) == 0 {
		fmt.Println("No resources in state.")
		return nil
	}

	fmt.Printf("State version: %d, serial: %d, lineage: %s\n\n", st.Version, st.Serial, st.Lineage)
	addrs := make([]string, 0, len(st.Resources))
	for addr := range st.Resources {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		entry := st.Resources[addr]
		fmt.Printf("  %s (provider: %s, status: %s)\n", addr, entry.Provider, entry.Status)
	}
	fmt.Printf("\nTotal: %d resource(s)\n", len(st.Resources))
	return nil
}

func runStateShow(cmd *cobra.Command, args []string) error {
	store, err := newStore(defaultConfigFile)
	if err != nil {
		return err
	}
	st, err := store.Read(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	target := args[0]
	entry := st.Entry(target)
	if entry == nil {
		return fmt.Errorf("resource %s not found in state", target)
	}

	fmt.Printf("# %s\n", target)
	fmt.Printf("  provider = %s\n", entry.Provider)
	fmt.Printf("  kind     = %s\n", entry.Kind)
	fmt.Printf("  name     = %s\n", entry.Name)
	fmt.Printf("  status   = %s\n", entry.Status)

	if len(entry.Attributes) > 0 {
		fmt.Println("\n  Attributes:")
		keys := make([]string, 0, len(entry.Attributes))
		for k := range entry.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %s = %v\n", k, entry.Attributes[k])
		}
	}

	if len(entry.Outputs) > 0 {
		fmt.Println("\n  Outputs:")
		keys := make([]string, 0, len(entry.Outputs))
		for k := range entry.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %s = %v\n", k, entry.Outputs[k])
		}
	}

	if len(entry.Dependencies) > 0 {
		fmt.Println("\n  Dependencies:")
		for _, dep := range entry.Dependencies {
			fmt.Printf("    - %s\n", dep)
		}
	}

	if entry.Error != "" {
		fmt.Printf("\n  error = %s\n", entry.Error)
	}
	return nil
}

func runStateRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := newStore(defaultConfigFile)
	if err != nil {
		return err
	}

	if err := store.Lock(ctx); err != nil {
		return err
	}
	defer store.Unlock(ctx)

	st, err := store.Reload(ctx)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	target := args[0]
	if st.Entry(target) == nil {
		return fmt.Errorf("resource %s not found in state", target)
	}

	if err := store.Commit(ctx, func(s *ir.State) {
		s.Remove(target)
	}); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	fmt.Printf("Removed %s from state (resource was NOT destroyed)\n", target)
	return nil
}
