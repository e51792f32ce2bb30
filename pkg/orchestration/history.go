package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pcswitcher/pcswitcher/pkg/exec"
)

// HistoryPath returns the path to sync-history.json under the given home
// directory, per spec.md §6: "~/.local/share/pc-switcher/sync-history.json".
func HistoryPath(home string) string {
	return filepath.Join(home, ".local", "share", "pc-switcher", "sync-history.json")
}

// ReadLocalHistory reads and parses the local sync-history file. Per
// spec.md §4.9 phase 4 and §9's "consecutive-sync history" note, a
// missing or corrupted file is treated as {"last_role": "source"}, the
// safer assumption, and the caller is told the file was corrupted so it
// can warn. Adapted from pkg/state/state.go's LoadState pattern of
// defaulting on a missing file, generalized to also default (with a
// warning flag) on unparsable content.
func ReadLocalHistory(home string) (entry SyncHistoryEntry, corrupted bool, err error) {
	path := HistoryPath(home)
	data, readErr := os.ReadFile(path)
	if os.IsNotExist(readErr) {
		return SyncHistoryEntry{LastRole: HistoryRoleSource}, false, nil
	}
	if readErr != nil {
		return SyncHistoryEntry{}, false, fmt.Errorf("read sync history %s: %w", path, readErr)
	}

	var parsed SyncHistoryEntry
	if err := json.Unmarshal(data, &parsed); err != nil {
		return SyncHistoryEntry{LastRole: HistoryRoleSource}, true, nil
	}
	if parsed.LastRole != HistoryRoleSource && parsed.LastRole != HistoryRoleTarget {
		return SyncHistoryEntry{LastRole: HistoryRoleSource}, true, nil
	}
	return parsed, false, nil
}

// WriteLocalHistory overwrites the local sync-history file atomically:
// written to a temp file in the same directory, then renamed over the
// target, matching pkg/state/state.go's SaveState approach of
// MkdirAll+WriteFile but adding the rename for atomicity since this file
// is read by every subsequent invocation, local or remote.
func WriteLocalHistory(home string, entry SyncHistoryEntry) error {
	path := HistoryPath(home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal sync history: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write sync history temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename sync history into place: %w", err)
	}
	return nil
}

// WriteRemoteHistory overwrites the target's sync-history file over the
// given executor, via a shell idempotent create-or-overwrite, per
// spec.md §6: "On the target this is set via SSH (mkdir -p … && echo
// {…} > …)."
func WriteRemoteHistory(ctx context.Context, executor exec.Executor, home string, entry SyncHistoryEntry) error {
	path := HistoryPath(home)
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal sync history: %w", err)
	}

	script := fmt.Sprintf("mkdir -p %s && printf '%%s' %s > %s", shellDir(path), shellArg(string(data)), shellArg(path))
	result, err := executor.Run(ctx, exec.Command{Args: []string{"bash", "-c", script}})
	if err != nil {
		return fmt.Errorf("write remote sync history on %s: %w", executor.Host(), err)
	}
	if !result.Success() {
		return fmt.Errorf("write remote sync history on %s failed: %s", executor.Host(), result.Stderr)
	}
	return nil
}
