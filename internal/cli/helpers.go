package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/groundwork-io/groundwork/internal/config"
	"github.com/groundwork-io/groundwork/internal/ir"
	"github.com/groundwork-io/groundwork/internal/provider"
	"github.com/groundwork-io/groundwork/internal/state"
)

const defaultConfigFile = "groundwork.yaml"

// resolveConfigPath maps an optional positional argument to the config
// file: a directory selects its groundwork.yaml, a file is taken as-is.
func resolveConfigPath(args []string) (string, error) {
	if len(args) == 0 {
		return defaultConfigFile, nil
	}

	absPath, err := filepath.Abs(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", args[0], err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat path %s: %w", args[0], err)
	}
	if info.IsDir() {
		return filepath.Join(absPath, defaultConfigFile), nil
	}
	return absPath, nil
}

// newStore builds the state store from the backend flags. The local
// backend keeps state next to the configuration unless a path is set.
func newStore(configPath string) (*state.Store, error) {
	cfg := &state.BackendConfig{
		Type:   backendType,
		Config: backendConfig,
	}
	if cfg.Config == nil {
		cfg.Config = map[string]string{}
	}
	if cfg.Type == "local" && cfg.Config["path"] == "" {
		cfg.Config["path"] = filepath.Join(filepath.Dir(configPath), ".groundwork", "state.json")
	}

	backend, err := state.NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return state.NewStore(backend), nil
}

// loadRequiredProviders auto-loads all providers referenced by config resources.
func loadRequiredProviders(ctx context.Context, registry *provider.Registry, cfg *ir.Config) error {
	for _, name := range config.Providers(cfg) {
		if err := registry.LoadProvider(ctx, name); err != nil {
			return fmt.Errorf("failed to load provider %s: %w", name, err)
		}
	}
	return nil
}

// loadStateProviders auto-loads all providers referenced by state resources (needed for DELETE).
func loadStateProviders(ctx context.Context, registry *provider.Registry, st *ir.State) error {
	seen := make(map[string]bool)
	for _, entry := range st.Resources {
		if entry.Provider != "" && !seen[entry.Provider] {
			seen[entry.Provider] = true
			if err := registry.LoadProvider(ctx, entry.Provider); err != nil {
				return fmt.Errorf("failed to load provider %s: %w", entry.Provider, err)
			}
		}
	}
	return nil
}

// renderPlanChanges prints the detailed change list for a plan.
func renderPlanChanges(plan *ir.Plan) {
	for _, action := range plan.Changes() {
		symbol := "~"
		switch action.Type {
		case ir.ActionCreate:
			symbol = "+"
		case ir.ActionDelete:
			symbol = "-"
		case ir.ActionReplace:
			symbol = "-/+"
		}

		color := "\033[0m"
		switch action.Type {
		case ir.ActionCreate:
			color = "\033[32m"
		case ir.ActionDelete:
			color = "\033[31m"
		case ir.ActionUpdate, ir.ActionReplace:
			color = "\033[33m"
		}

		var kind, name string
		if action.Desired != nil {
			kind = action.Desired.Kind
			name = action.Desired.Name
		} else if action.Prior != nil {
			kind = action.Prior.Kind
			name = action.Prior.Name
		}

		fmt.Printf("\n%s  # %s will be %s%s\n", color, action.Address, action.Type, "\033[0m")
		fmt.Printf("%s  %s resource \"%s\" \"%s\" {\n", color, symbol, kind, name)
		renderAttributeDiff(action, color)
		fmt.Printf("%s    }%s\n", color, "\033[0m")
	}
}

// renderAttributeDiff prints per-attribute changes in stable key order.
func renderAttributeDiff(action *ir.Action, color string) {
	if len(action.Diff) == 0 {
		fmt.Printf("%s      ...\n", color)
		return
	}

	keys := make([]string, 0, len(action.Diff))
	for k := range action.Diff {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		diff := action.Diff[key]
		switch diff.Op {
		case "create":
			fmt.Printf("\033[32m      + %s = %v\033[0m\n", key, formatValue(diff.After))
		case "delete":
			fmt.Printf("\033[31m      - %s = %v\033[0m\n", key, formatValue(diff.Before))
		case "update":
			fmt.Printf("\033[33m      ~ %s = %v -> %v\033[0m\n", key, formatValue(diff.Before), formatValue(diff.After))
		default:
			fmt.Printf("%s        %s = %v\n", color, key, formatValue(diff.After))
		}
	}
}

// formatValue returns a human-readable representation of a value.
func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// renderPlanSummary prints the plan summary counts.
func renderPlanSummary(plan *ir.Plan) {
	fmt.Println("\nPlan Summary:")
	fmt.Printf("  Create:  %d\n", plan.Summary.Create)
	fmt.Printf("  Update:  %d\n", plan.Summary.Update)
	fmt.Printf("  Delete:  %d\n", plan.Summary.Delete)
	fmt.Printf("  Replace: %d\n", plan.Summary.Replace)
	fmt.Printf("  NoOp:    %d\n", plan.Summary.NoOp)
}

// renderReport prints every per-resource outcome and the run totals.
func renderReport(report *ir.ExecutionReport) {
	for _, res := range report.Results {
		switch res.Status {
		case ir.ResultApplied, ir.ResultDestroyed:
			fmt.Printf("\033[32m  %s: %s (%s)\033[0m\n", res.Address, res.Status, res.Duration.Round(time.Millisecond))
		case ir.ResultFailed:
			fmt.Printf("\033[31m  %s: failed: %s\033[0m\n", res.Address, res.Error)
		case ir.ResultBlocked:
			fmt.Printf("\033[33m  %s: blocked (upstream failure)\033[0m\n", res.Address)
		case ir.ResultCancelled:
			fmt.Printf("  %s: cancelled\n", res.Address)
		}
	}

	fmt.Printf("\nRun %s: %d applied, %d destroyed, %d failed, %d blocked, %d cancelled.\n",
		report.Status, report.Applied, report.Destroyed, report.Failed, report.Blocked, report.Cancelled)
}
