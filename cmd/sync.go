package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pcswitcher/pcswitcher/pkg/config"
	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
	"github.com/pcswitcher/pcswitcher/pkg/logging"
	"github.com/pcswitcher/pcswitcher/pkg/orchestration"
	"github.com/pcswitcher/pcswitcher/pkg/version"
)

var syncOpts struct {
	ConfigPath       string
	AllowConsecutive bool
	SSHUser          string
	SSHPort          int
	SSHKeyPath       string
	InstallScript    string
	ReleaseURL       string
	DummyDuration    time.Duration
}

// NewSyncCmd builds the `sync` command, per spec.md §6:
// `sync <target-host> [--config <path>] [--allow-consecutive]`, exit
// codes 0 success / 1 failure / 130 interrupted.
func NewSyncCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <target-host>",
		Short: "Sync this desktop to <target-host>",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(runSync(cmd.Context(), app, args[0]))
		},
	}

	cmd.Flags().StringVar(&syncOpts.ConfigPath, "config", "", "path to config.yaml (overrides the persistent --config flag)")
	cmd.Flags().BoolVar(&syncOpts.AllowConsecutive, "allow-consecutive", false, "skip the confirmation when this machine was also the source of the last sync")
	cmd.Flags().StringVar(&syncOpts.SSHUser, "ssh-user", currentUser(), "user to connect as on the target")
	cmd.Flags().IntVar(&syncOpts.SSHPort, "ssh-port", 22, "SSH port on the target")
	cmd.Flags().StringVar(&syncOpts.SSHKeyPath, "ssh-key", defaultSSHKeyPath(), "private key used to authenticate to the target")
	cmd.Flags().StringVar(&syncOpts.InstallScript, "install-script", "", "path to the install script run on the target when its version differs from this machine")
	cmd.Flags().StringVar(&syncOpts.ReleaseURL, "release-url", "", "release artifact URL passed to the install script")
	cmd.Flags().DurationVar(&syncOpts.DummyDuration, "dummy-duration", 10*time.Second, "duration for the dummy_success reference job")

	return cmd
}

// runSync drives one full session and returns the process exit code
// spec.md §6 assigns to its outcome.
func runSync(ctx context.Context, app *App, targetHost string) int {
	configPath := syncOpts.ConfigPath
	if configPath == "" {
		configPath = app.configPath
	}

	cfg, raw, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: %v\n", err)
		return 1
	}
	if err := config.Validate(raw); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: %v\n", err)
		return 1
	}

	fileLevel, _ := eventbus.ParseLevel(cfg.Logging.File)
	tuiLevel, _ := eventbus.ParseLevel(cfg.Logging.TUI)
	externalLevel, _ := eventbus.ParseLevel(cfg.Logging.External)
	logging.ConfigureExternal(externalLevel)

	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: resolve home directory: %v\n", err)
		return 1
	}

	registry := orchestration.NewRegistry()
	registry.Register("dummy_success", func() orchestration.Job {
		return orchestration.NewDummySuccessJob(syncOpts.DummyDuration)
	})
	registry.Register("dummy_failure", func() orchestration.Job {
		return orchestration.NewDummyFailureJob(0, 0)
	})

	orch := orchestration.NewOrchestrator(cfg, registry, orchestration.DefaultPrompter())

	startedAt := time.Now()
	provisionalPath := logging.LogFilePath(home, "pending", startedAt)
	jsonSink, err := logging.NewJSONSink(provisionalPath, fileLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: open log file: %v\n", err)
		return 1
	}
	streamSink := logging.NewStreamSink(os.Stderr, tuiLevel)

	events := orch.Bus().Subscribe()
	jsonEvents := make(chan eventbus.Event, 256)
	streamEvents := make(chan eventbus.Event, 256)
	go func() {
		defer close(jsonEvents)
		defer close(streamEvents)
		for e := range events {
			jsonEvents <- e
			streamEvents <- e
		}
	}()
	go jsonSink.Run(jsonEvents)
	go streamSink.Run(streamEvents)

	localVersion, err := version.Parse(app.version)
	if err != nil {
		localVersion, _ = version.Parse("0.0.0")
	}

	session, runErr := orch.Run(ctx, orchestration.RunOptions{
		TargetHost:       targetHost,
		SSHUser:          syncOpts.SSHUser,
		SSHPort:          syncOpts.SSHPort,
		SSHKeyPath:       syncOpts.SSHKeyPath,
		AllowConsecutive: syncOpts.AllowConsecutive,
		SourceHome:       home,
		LocalVersion:     localVersion,
		InstallScript:    syncOpts.InstallScript,
		ReleaseURL:       syncOpts.ReleaseURL,
	})

	jsonSink.Close()

	finalPath := logging.LogFilePath(home, session.ID, startedAt)
	_ = os.Rename(provisionalPath, finalPath)

	printSummary(session, finalPath, orch.Bus().Stats().Dropped)

	switch session.Status {
	case orchestration.SessionCompleted:
		return 0
	case orchestration.SessionInterrupted:
		return 130
	default:
		if runErr != nil && errors.Is(runErr, context.Canceled) {
			return 130
		}
		return 1
	}
}

func printSummary(session *orchestration.SyncSession, logPath string, droppedEvents int64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "session\t%s\n", session.ID)
	fmt.Fprintf(w, "status\t%s\n", session.Status)
	fmt.Fprintf(w, "duration\t%s\n", session.EndedAt.Sub(session.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "log\t%s\n", logPath)
	fmt.Fprintf(w, "dropped events\t%d\n", droppedEvents)

	results := append([]orchestration.JobResult(nil), session.JobResults...)
	sort.Slice(results, func(i, j int) bool { return results[i].JobName < results[j].JobName })

	var failed []string
	for _, r := range results {
		fmt.Fprintf(w, "job:%s\t%s\n", r.JobName, r.Status)
		if r.Status == orchestration.JobFailed {
			failed = append(failed, r.JobName)
		}
	}
	w.Flush()

	if session.ErrorMessage != "" {
		fmt.Fprintf(os.Stderr, "CRITICAL: %s\n", session.ErrorMessage)
	}
	if len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "failed jobs: %v\n", failed)
	}
}
