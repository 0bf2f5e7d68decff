package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groundwork-io/groundwork/internal/ir"
)

var taintCmd = &cobra.Command{
	Use:   "taint <address>",
	Short: "Mark a resource for recreation",
	Long: `Marks a resource as tainted, forcing it to be replaced on the next
apply even when its attributes are unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runTaint,
}

var untaintCmd = &cobra.Command{
	Use:   "untaint <address>",
	Short: "Remove taint from a resource",
	Long:  `Removes the taint mark from a resource, preventing forced recreation.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runUntaint,
}

func runTaint(cmd *cobra.Command, args []string) error {
	if err := setTaint(cmd, args[0], ir.StatusTainted); err != nil {
		return err
	}
	fmt.Printf("Resource %s has been tainted. It will be replaced on next apply.\n", args[0])
	return nil
}

func runUntaint(cmd *cobra.Command, args []string) error {
	if err := setTaint(cmd, args[0], ir.StatusApplied); err != nil {
		return err
	}
	fmt.Printf("Resource %s has been untainted.\n", args[0])
	return nil
}

func setTaint(cmd *cobra.Command, target string, status ir.Status) error {
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

	if st.Entry(target) == nil {
		return fmt.Errorf("resource %s not found in state", target)
	}

	return store.Commit(ctx, func(s *ir.State) {
		if entry := s.Entry(target); entry != nil {
			entry.Status = status
		}
	})
}
