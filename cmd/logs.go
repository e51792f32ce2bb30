package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var logsOpts struct {
	Last      bool
	SessionID string
}

// NewLogsCmd builds the `logs` command, per spec.md §6: `logs [--last]
// [--session <id>]`, exit code always 0.
func NewLogsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List or print pc-switcher session log files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(app)
		},
	}

	cmd.Flags().BoolVar(&logsOpts.Last, "last", false, "print the most recent session's log")
	cmd.Flags().StringVar(&logsOpts.SessionID, "session", "", "print the log for a specific session id")

	return cmd
}

func runLogs(app *App) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".local", "share", "pc-switcher", "logs")

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		fmt.Println("no sync logs found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read log directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if logsOpts.SessionID != "" {
		for _, name := range names {
			if strings.Contains(name, "-"+logsOpts.SessionID+".log") {
				return printLogFile(filepath.Join(dir, name))
			}
		}
		fmt.Printf("no log found for session %s\n", logsOpts.SessionID)
		return nil
	}

	if logsOpts.Last {
		if len(names) == 0 {
			fmt.Println("no sync logs found")
			return nil
		}
		return printLogFile(filepath.Join(dir, names[len(names)-1]))
	}

	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func printLogFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()
	_, err = io.Copy(os.Stdout, f)
	return err
}
