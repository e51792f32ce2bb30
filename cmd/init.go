package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initOpts struct {
	Force bool
}

// defaultConfigTemplate mirrors config.defaults() (pkg/config/config.go),
// written out with comments the way original_source/core/config.py's
// shipped config.yaml.example documents each field.
const defaultConfigTemplate = `# pc-switcher configuration. See README for the full schema.

logging:
  file: DEBUG       # threshold written to the session's JSON Lines log file
  tui: INFO         # threshold printed to the terminal
  external: WARNING # threshold for third-party library logs (SSH transport, etc.)

# Enable/disable individual sync jobs by name. A job with no entry here
# does not run. Each job may also have its own top-level config section,
# named after the job (see the job's own documentation for its schema).
sync_jobs:
  dummy_success: false
  dummy_failure: false

disk_space_monitor:
  preflight_minimum: 20%  # refuse to start a sync below this
  runtime_minimum: 15%    # abort a running sync below this
  warning_threshold: 25%  # log a warning below this, but keep going
  check_interval: 30      # seconds between checks

btrfs_snapshots:
  subvolumes:
    - "@"
    - "@home"
  keep_recent: 3   # always keep the snapshots of this many most-recent sync sessions
  # max_age_days: 30  # uncomment to also prune snapshots older than this
`

// NewInitCmd builds the `init` command, per spec.md §6: `init
// [--force]`, exit 0 success / 1 failure, refusing to overwrite an
// existing config without --force.
func NewInitCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(app)
		},
	}

	cmd.Flags().BoolVar(&initOpts.Force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(app *App) error {
	path := app.configPath

	if _, err := os.Stat(path); err == nil && !initOpts.Force {
		return fmt.Errorf("%s already exists; pass --force to overwrite", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}

	fmt.Printf("wrote default config to %s\n", path)
	return nil
}
