package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Show the current state",
	Long:  `Displays a human-readable view of the current state.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
}

func runShow(cmd *cobra.Command, args []string) error {
	configPath, err := resolveConfigPath(args)
	if err != nil {
		return err
	}

	store, err := newStore(configPath)
	if err != nil {
		return err
	}
	st, err := store.Read(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	if showJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal state: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("State: version=%d serial=%d lineage=%s\n", st.Version, st.Serial, st.Lineage)
	fmt.Printf("Resources: %d\n\n", len(st.Resources))

	addrs := make([]string, 0, len(st.Resources))
	for addr := range st.Resources {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		entry := st.Resources[addr]
		fmt.Printf("# %s\n", addr)
		fmt.Printf("  provider = %s\n", entry.Provider)
		fmt.Printf("  status   = %s\n", entry.Status)

		keys := make([]string, 0, len(entry.Outputs))
		for k := range entry.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s = %v\n", k, entry.Outputs[k])
		}
		fmt.Println()
	}

	if len(st.Outputs) > 0 {
		fmt.Println("Outputs:")
		keys := make([]string, 0, len(st.Outputs))
		for k := range st.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s = %v\n", k, st.Outputs[k])
		}
	}

	return nil
}
