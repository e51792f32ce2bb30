package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pcswitcher/pcswitcher/pkg/config"
	"github.com/pcswitcher/pcswitcher/pkg/exec"
	"github.com/pcswitcher/pcswitcher/pkg/snapshot"
)

// snapshotRoot is the fixed directory every host's btrfs snapshots live
// under, per spec.md §6.
const snapshotRoot = "/.snapshots/pc-switcher"

var rollbackOpts struct {
	ConfigPath string
	SessionID  string
}

// NewRollbackCmd builds the `rollback` command, per spec.md §6:
// `rollback --session <id>`, exit 0 success / 1 failure. Operates on
// this host's own subvolumes and snapshots, matching how `sync` and
// `cleanup-snapshots` are always run against the local machine's
// /.snapshots/pc-switcher tree.
func NewRollbackCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Restore this host's subvolumes to a session's pre-sync snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(app)
		},
	}

	cmd.Flags().StringVar(&rollbackOpts.ConfigPath, "config", "", "path to config.yaml (overrides the persistent --config flag)")
	cmd.Flags().StringVar(&rollbackOpts.SessionID, "session", "", "session id to roll back to")
	cmd.MarkFlagRequired("session")

	return cmd
}

func runRollback(app *App) error {
	configPath := rollbackOpts.ConfigPath
	if configPath == "" {
		configPath = app.configPath
	}

	cfg, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	executor := exec.NewLocalExecutor(false)
	manager := snapshot.NewManager(executor, snapshotRoot, cfg.BtrfsSnapshots.Subvolumes, cfg.BtrfsSnapshots.KeepRecent, nil)

	ctx := context.Background()
	for _, subvolume := range cfg.BtrfsSnapshots.Subvolumes {
		if err := manager.RollbackToPresync(ctx, rollbackOpts.SessionID, subvolume); err != nil {
			fmt.Fprintf(os.Stderr, "CRITICAL: rollback %s: %v\n", subvolume, err)
			return err
		}
		fmt.Printf("rolled back %s to session %s\n", subvolume, rollbackOpts.SessionID)
	}
	return nil
}
