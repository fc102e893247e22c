package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyassist/internal/log"
	"github.com/l3aro/pyassist/pkg/introspect"
)

// snapshotCmd represents the snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot [module...]",
	Short: "Record an introspection snapshot of system modules",
	Long: `Runs the configured interpreter once over the given modules (by default the
dir-unsafe modules and the ones in the built-in table) and saves their
attribute names. The snapshot answers introspection queries whenever the
interpreter is unavailable; point snapshot_path at it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Python == "" {
			return fmt.Errorf("no interpreter configured (set python in the config)")
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = cfg.SnapshotPath
		}
		if output == "" {
			output = filepath.Join(".pyassist", "snapshot.msgpack")
		}

		names := args
		if len(names) == 0 {
			names = defaultSnapshotModules(cfg.DirUnsafeModules)
		}

		spinner := log.NewProgressSpinner(fmt.Sprintf("Introspecting %d modules with %s...", len(names), cfg.Python))
		spinner.Start()
		snap, err := recordSnapshot(cmd.Context(), introspect.NewInterpreter(cfg.Python, cfg.IntrospectTimeout(), logger), names)
		spinner.Stop()
		if err != nil {
			return err
		}

		if err := snap.Save(output); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %d of %d modules (Python %s) to %s\n",
			len(snap.Modules), len(names), snap.Env.Version, output)
		return nil
	},
}

// snapshotter is the part of introspect.Interpreter the command needs.
type snapshotter interface {
	Snapshot(ctx context.Context, names []string) (*introspect.Snapshot, error)
}

func recordSnapshot(ctx context.Context, s snapshotter, names []string) (*introspect.Snapshot, error) {
	snap, err := s.Snapshot(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("recording snapshot: %w", err)
	}
	for _, name := range names {
		if _, ok := snap.Modules[name]; !ok {
			logger.Warn("module could not be introspected", "module", name)
		}
	}
	return snap, nil
}

// defaultSnapshotModules returns the built-in table's modules plus extra,
// sorted and without duplicates.
func defaultSnapshotModules(extra []string) []string {
	seen := make(map[string]bool)
	for name := range introspect.DefaultSnapshot().Modules {
		seen[name] = true
	}
	for _, name := range extra {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	snapshotCmd.Flags().StringP("output", "o", "", "Snapshot file (default: snapshot_path or .pyassist/snapshot.msgpack)")
	RootCmd.AddCommand(snapshotCmd)
}
