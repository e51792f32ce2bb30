package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pcswitcher/pcswitcher/pkg/config"
	"github.com/pcswitcher/pcswitcher/pkg/exec"
	"github.com/pcswitcher/pcswitcher/pkg/snapshot"
)

var cleanupOpts struct {
	ConfigPath string
	OlderThan  string
	KeepRecent int
}

// NewCleanupSnapshotsCmd builds the `cleanup-snapshots` command, per
// spec.md §6: `cleanup-snapshots [--older-than <duration>]
// [--keep-recent <N>]`, exit 0 success / 1 failure.
func NewCleanupSnapshotsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup-snapshots",
		Short: "Prune old btrfs snapshots on this host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanupSnapshots(app)
		},
	}

	cmd.Flags().StringVar(&cleanupOpts.ConfigPath, "config", "", "path to config.yaml (overrides the persistent --config flag)")
	cmd.Flags().StringVar(&cleanupOpts.OlderThan, "older-than", "", `prune snapshots older than this (e.g. "30d", "2w", or a bare day count); overrides config.yaml's max_age_days`)
	cmd.Flags().IntVar(&cleanupOpts.KeepRecent, "keep-recent", 0, "always keep this many most-recent sync sessions; overrides config.yaml's keep_recent when > 0")

	return cmd
}

func runCleanupSnapshots(app *App) error {
	configPath := cleanupOpts.ConfigPath
	if configPath == "" {
		configPath = app.configPath
	}

	cfg, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	keepRecent := cfg.BtrfsSnapshots.KeepRecent
	if cleanupOpts.KeepRecent > 0 {
		keepRecent = cleanupOpts.KeepRecent
	}

	var maxAge *time.Duration
	switch {
	case cleanupOpts.OlderThan != "":
		d, err := config.ParseDuration(cleanupOpts.OlderThan)
		if err != nil {
			return fmt.Errorf("--older-than: %w", err)
		}
		maxAge = &d
	case cfg.BtrfsSnapshots.MaxAgeDays != nil:
		d := time.Duration(*cfg.BtrfsSnapshots.MaxAgeDays) * 24 * time.Hour
		maxAge = &d
	}

	executor := exec.NewLocalExecutor(false)
	manager := snapshot.NewManager(executor, snapshotRoot, cfg.BtrfsSnapshots.Subvolumes, keepRecent, maxAge)

	removedSnapshots, removedFolders, err := manager.Cleanup(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: %v\n", err)
		return err
	}

	if len(removedSnapshots) == 0 {
		fmt.Println("no snapshots pruned")
		return nil
	}
	for _, path := range removedSnapshots {
		fmt.Printf("removed %s\n", path)
	}
	fmt.Printf("removed %d empty session folder(s)\n", len(removedFolders))
	return nil
}
