package snapshot

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pcswitcher/pcswitcher/pkg/exec"
)

const timestampLayout = "20060102T150405"

// Phase identifies whether a snapshot was taken before or after the sync
// body ran.
type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Info describes one snapshot discovered under a session folder.
type Info struct {
	Path      string
	Phase     Phase
	Subvolume string
	Taken     time.Time
	Session   string
}

// Manager creates, lists, and prunes btrfs snapshots on one host (source
// or target), grounded on original_source's BtrfsSnapshotManager. All
// filesystem interaction goes through an exec.Executor so the manager
// works identically whether it is pruning the local machine or the
// remote target over SSH.
type Manager struct {
	executor    exec.Executor
	snapshotDir string
	subvolumes  []string
	keepRecent  int
	maxAge      *time.Duration
}

// NewManager constructs a Manager. snapshotDir is the root directory
// holding every session folder, normally /.snapshots/pc-switcher.
func NewManager(executor exec.Executor, snapshotDir string, subvolumes []string, keepRecent int, maxAge *time.Duration) *Manager {
	return &Manager{
		executor:    executor,
		snapshotDir: snapshotDir,
		subvolumes:  subvolumes,
		keepRecent:  keepRecent,
		maxAge:      maxAge,
	}
}

// SessionFolder returns the directory a given sync session's snapshots
// live under: "<snapshot_dir>/<timestamp>-<session_id>".
func (m *Manager) SessionFolder(sessionID string, at time.Time) string {
	return path.Join(m.snapshotDir, fmt.Sprintf("%s-%s", at.UTC().Format(timestampLayout), sessionID))
}

// SnapshotName returns the leaf name for one subvolume's snapshot within
// a session folder: "{pre|post}-<subvolume>-<timestamp>".
func (m *Manager) SnapshotName(phase Phase, subvolume string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%s", phase, subvolume, at.UTC().Format(timestampLayout))
}

// EnsureSnapshotDir checks that the snapshot root's parent (normally
// /.snapshots) is itself a btrfs subvolume, creating it as one if it is
// absent, then ensures the pc-switcher subdirectory beneath it exists. A
// parent that already exists as a plain directory is a fatal
// configuration error: mkdir -p would silently paper over it, leaving
// snapshots taken into a directory that can never itself be snapshotted
// or deleted the way a subvolume can.
func (m *Manager) EnsureSnapshotDir(ctx context.Context) error {
	parent := path.Dir(m.snapshotDir)

	show, err := m.executor.Run(ctx, exec.Command{Args: []string{"btrfs", "subvolume", "show", parent}})
	if err != nil {
		return fmt.Errorf("check subvolume %s on %s: %w", parent, m.executor.Host(), err)
	}

	if !show.Success() {
		isDir, err := m.executor.Run(ctx, exec.Command{Args: []string{"test", "-d", parent}})
		if err != nil {
			return fmt.Errorf("check %s on %s: %w", parent, m.executor.Host(), err)
		}
		if isDir.Success() {
			return fmt.Errorf("%s exists on %s but is not a btrfs subvolume; refusing to continue", parent, m.executor.Host())
		}

		create, err := m.executor.Run(ctx, exec.Command{Args: []string{"btrfs", "subvolume", "create", parent}})
		if err != nil {
			return fmt.Errorf("create subvolume %s on %s: %w", parent, m.executor.Host(), err)
		}
		if !create.Success() {
			return fmt.Errorf("btrfs subvolume create %s on %s failed: %s", parent, m.executor.Host(), strings.TrimSpace(create.Stderr))
		}
	}

	mkdir, err := m.executor.Run(ctx, exec.Command{Args: []string{"mkdir", "-p", m.snapshotDir}})
	if err != nil {
		return fmt.Errorf("ensure snapshot dir %s on %s: %w", m.snapshotDir, m.executor.Host(), err)
	}
	if !mkdir.Success() {
		return fmt.Errorf("mkdir -p %s on %s failed: %s", m.snapshotDir, m.executor.Host(), strings.TrimSpace(mkdir.Stderr))
	}
	return nil
}

// VerifySubvolume confirms subvolume's mount point is in fact a btrfs
// subvolume, per spec.md §4.3(b)'s preflight check.
func (m *Manager) VerifySubvolume(ctx context.Context, subvolume string) error {
	mountPoint, err := MountPointFor(subvolume)
	if err != nil {
		return err
	}
	result, err := m.executor.Run(ctx, exec.Command{Args: []string{"btrfs", "subvolume", "show", mountPoint}})
	if err != nil {
		return fmt.Errorf("verify subvolume %s on %s: %w", subvolume, m.executor.Host(), err)
	}
	if !result.Success() {
		return fmt.Errorf("%s is not a btrfs subvolume on %s: %s", mountPoint, m.executor.Host(), strings.TrimSpace(result.Stderr))
	}
	return nil
}

// CreateSnapshot takes a read-only snapshot of subvolume into the given
// session's folder and returns the snapshot's full path.
func (m *Manager) CreateSnapshot(ctx context.Context, sessionID string, phase Phase, subvolume string, at time.Time) (string, error) {
	mountPoint, err := MountPointFor(subvolume)
	if err != nil {
		return "", err
	}

	folder := m.SessionFolder(sessionID, at)
	mkdir, err := m.executor.Run(ctx, exec.Command{Args: []string{"mkdir", "-p", folder}})
	if err != nil || !mkdir.Success() {
		return "", fmt.Errorf("create session folder %s on %s: %w", folder, m.executor.Host(), err)
	}

	snapshotPath := path.Join(folder, m.SnapshotName(phase, subvolume, at))
	result, err := m.executor.Run(ctx, exec.Command{
		Args: []string{"btrfs", "subvolume", "snapshot", "-r", mountPoint, snapshotPath},
	})
	if err != nil {
		return "", fmt.Errorf("snapshot %s on %s: %w", subvolume, m.executor.Host(), err)
	}
	if !result.Success() {
		return "", fmt.Errorf("btrfs subvolume snapshot %s -> %s on %s failed: %s", mountPoint, snapshotPath, m.executor.Host(), strings.TrimSpace(result.Stderr))
	}

	return snapshotPath, nil
}

// ListSessionFolders returns every session folder under the snapshot
// root, oldest first.
func (m *Manager) ListSessionFolders(ctx context.Context) ([]string, error) {
	result, err := m.executor.Run(ctx, exec.Command{Args: []string{"ls", "-1", m.snapshotDir}})
	if err != nil {
		return nil, fmt.Errorf("list snapshot dir %s on %s: %w", m.snapshotDir, m.executor.Host(), err)
	}
	if !result.Success() {
		// An absent snapshot directory means there is nothing to list yet.
		return nil, nil
	}

	var folders []string
	for _, line := range strings.Split(strings.TrimSpace(result.Stdout), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		folders = append(folders, path.Join(m.snapshotDir, line))
	}
	sort.Strings(folders)
	return folders, nil
}

// ListSnapshots lists every individual snapshot beneath every session
// folder, parsed from their names.
func (m *Manager) ListSnapshots(ctx context.Context) ([]Info, error) {
	folders, err := m.ListSessionFolders(ctx)
	if err != nil {
		return nil, err
	}

	var infos []Info
	for _, folder := range folders {
		sessionID := sessionIDFromFolder(folder)

		result, err := m.executor.Run(ctx, exec.Command{Args: []string{"ls", "-1", folder}})
		if err != nil || !result.Success() {
			continue
		}
		for _, line := range strings.Split(strings.TrimSpace(result.Stdout), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			info, ok := parseSnapshotName(line)
			if !ok {
				continue
			}
			info.Path = path.Join(folder, line)
			info.Session = sessionID
			infos = append(infos, info)
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Taken.Before(infos[j].Taken) })
	return infos, nil
}

func sessionIDFromFolder(folder string) string {
	base := path.Base(folder)
	idx := strings.Index(base, "-")
	if idx < 0 || idx+1 >= len(base) {
		return base
	}
	return base[idx+1:]
}

func parseSnapshotName(name string) (Info, bool) {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) != 3 {
		return Info{}, false
	}
	phase := Phase(parts[0])
	if phase != PhasePre && phase != PhasePost {
		return Info{}, false
	}
	taken, err := time.Parse(timestampLayout, parts[2])
	if err != nil {
		return Info{}, false
	}
	return Info{Phase: phase, Subvolume: parts[1], Taken: taken}, true
}

// sessionGroup collects one sync session's snapshots (across every
// subvolume) for Cleanup's protection decision.
type sessionGroup struct {
	id     string
	snaps  []Info
	newest time.Time
}

// Cleanup groups snapshots by session_id, keeping the keepRecent newest
// sessions unconditionally; among the remainder it deletes whole sessions
// (every snapshot, across every subvolume) that are also older than
// maxAge, or every remaining session when maxAge is nil. A session's
// snapshots are never split across keep/delete: a subvolume that a
// protected session happens to be missing a snapshot for does not cause
// its sibling subvolumes' snapshots to be deleted. Once a session's
// snapshots are all removed its now-empty folder is removed too.
// Returns the deleted snapshot paths and the removed session folders.
func (m *Manager) Cleanup(ctx context.Context) (removedSnapshots []string, removedFolders []string, err error) {
	infos, err := m.ListSnapshots(ctx)
	if err != nil {
		return nil, nil, err
	}

	bySession := map[string][]Info{}
	for _, info := range infos {
		bySession[info.Session] = append(bySession[info.Session], info)
	}

	sessions := make([]sessionGroup, 0, len(bySession))
	for id, snaps := range bySession {
		newest := snaps[0].Taken
		for _, s := range snaps[1:] {
			if s.Taken.After(newest) {
				newest = s.Taken
			}
		}
		sessions = append(sessions, sessionGroup{id: id, snaps: snaps, newest: newest})
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].newest.After(sessions[j].newest) })

	protected := make(map[string]bool, m.keepRecent)
	for i := 0; i < len(sessions) && i < m.keepRecent; i++ {
		protected[sessions[i].id] = true
	}

	now := time.Now()
	for _, sess := range sessions {
		if protected[sess.id] {
			continue
		}
		if m.maxAge != nil && now.Sub(sess.newest) <= *m.maxAge {
			continue
		}

		for _, info := range sess.snaps {
			if err := m.delete(ctx, info.Path); err != nil {
				return removedSnapshots, removedFolders, err
			}
			removedSnapshots = append(removedSnapshots, info.Path)
		}

		folder := path.Dir(sess.snaps[0].Path)
		if result, err := m.executor.Run(ctx, exec.Command{Args: []string{"rmdir", folder}}); err == nil && result.Success() {
			removedFolders = append(removedFolders, folder)
		}
	}

	return removedSnapshots, removedFolders, nil
}

// DeleteAll removes every snapshot pc-switcher manages. No CLI command
// calls it.
func (m *Manager) DeleteAll(ctx context.Context) error {
	infos, err := m.ListSnapshots(ctx)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := m.delete(ctx, info.Path); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) delete(ctx context.Context, snapshotPath string) error {
	result, err := m.executor.Run(ctx, exec.Command{Args: []string{"btrfs", "subvolume", "delete", snapshotPath}})
	if err != nil {
		return fmt.Errorf("delete snapshot %s on %s: %w", snapshotPath, m.executor.Host(), err)
	}
	if !result.Success() {
		return fmt.Errorf("btrfs subvolume delete %s on %s failed: %s", snapshotPath, m.executor.Host(), strings.TrimSpace(result.Stderr))
	}
	return nil
}

// RollbackToPresync restores subvolume to the state captured by the
// pre-sync snapshot of the given session: the live subvolume is moved
// aside to "<mount point>.rollback-backup" and the pre-sync snapshot is
// promoted back to its mount point by snapshotting it read-write in
// place. The live subvolume is not deleted, and the backup is not removed
// afterwards. Adapted from
// original_source/modules/btrfs_snapshots.py's rollback procedure.
func (m *Manager) RollbackToPresync(ctx context.Context, sessionID, subvolume string) error {
	mountPoint, err := MountPointFor(subvolume)
	if err != nil {
		return err
	}

	infos, err := m.ListSnapshots(ctx)
	if err != nil {
		return err
	}

	var presync *Info
	for i := range infos {
		info := infos[i]
		if info.Session == sessionID && info.Subvolume == subvolume && info.Phase == PhasePre {
			presync = &info
			break
		}
	}
	if presync == nil {
		return fmt.Errorf("no pre-sync snapshot of %s found for session %s", subvolume, sessionID)
	}

	backupPath := mountPoint + ".rollback-backup"
	if result, err := m.executor.Run(ctx, exec.Command{Args: []string{"mv", mountPoint, backupPath}}); err != nil || !result.Success() {
		return fmt.Errorf("move aside current %s on %s: %w", mountPoint, m.executor.Host(), err)
	}

	result, err := m.executor.Run(ctx, exec.Command{
		Args: []string{"btrfs", "subvolume", "snapshot", presync.Path, mountPoint},
	})
	if err != nil {
		return fmt.Errorf("restore %s from %s on %s: %w", mountPoint, presync.Path, m.executor.Host(), err)
	}
	if !result.Success() {
		return fmt.Errorf("rollback snapshot of %s on %s failed: %s", mountPoint, m.executor.Host(), strings.TrimSpace(result.Stderr))
	}

	return nil
}
