// Package cmd assembles pc-switcher's cobra command tree: one Job
// framework call site per verb in spec.md §6 (sync, logs, rollback,
// cleanup-snapshots, init, self update), wired through a shared App the
// way RevCBH-choo/internal/cli/cli.go wires its own subcommands, since
// the teacher's own cmd/root_commands.go and main.go depend on private
// grove-core modules unavailable to this module.
package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// App carries the state shared across every subcommand: the persistent
// --config flag and build-time version metadata, mirroring the shape of
// RevCBH-choo's App (rootCmd plus version/commit/date, set post-construction
// via SetVersion so main.go's ldflags vars don't have to exist at
// cobra-tree-build time).
type App struct {
	rootCmd *cobra.Command

	configPath string

	version string
	commit  string
	date    string
}

// New builds the full pc-switcher command tree.
func New() *App {
	app := &App{version: "0.0.0"}
	app.setupRootCmd()
	return app
}

// Execute runs the CLI, honoring ctx for cancellation (SIGINT during
// `sync` maps to exit code 130, per spec.md §6).
func (a *App) Execute(ctx context.Context) error {
	return a.rootCmd.ExecuteContext(ctx)
}

// SetVersion records the build-time version metadata for `self update`
// and the root command's --version flag.
func (a *App) SetVersion(version, commit, date string) {
	a.version = version
	a.commit = commit
	a.date = date
	a.rootCmd.Version = version
}

func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:   "pc-switcher",
		Short: "Uni-directional desktop-to-desktop sync orchestrator",
		Long: `pc-switcher copies a defined set of state from one desktop (the
source, where it runs) to another (the target, reached over SSH),
bracketing the sync with btrfs snapshots on both machines so a bad sync
can always be rolled back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.rootCmd.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath(), "path to config.yaml")

	a.rootCmd.AddCommand(
		NewSyncCmd(a),
		NewLogsCmd(a),
		NewRollbackCmd(a),
		NewCleanupSnapshotsCmd(a),
		NewInitCmd(a),
		NewSelfCmd(a),
	)
}

// defaultConfigPath returns ~/.config/pc-switcher/config.yaml, per
// spec.md §6.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "pc-switcher", "config.yaml")
}

// defaultSSHKeyPath returns ~/.ssh/id_ed25519, the key pc-switcher tries
// by default when --ssh-key is not given.
func defaultSSHKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "id_ed25519")
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return ""
}
