// Package snapshot manages btrfs read-only snapshots taken before and
// after each sync session, grounded on
// original_source/modules/btrfs_snapshots.py. Naming follows spec.md's
// convention rather than the original's: a session folder
// "<timestamp>-<session_id>" under snapshot_dir, holding
// "{pre|post}-<subvolume>-<timestamp>" snapshots.
package snapshot

import "fmt"

// CanonicalMountPoints maps a btrfs subvolume name to the mount point it
// is snapshotted from, per spec.md §4.3(b). Only the subvolumes
// pc-switcher is documented to manage are listed; an unrecognized
// subvolume is a configuration error, not silently skipped.
var CanonicalMountPoints = map[string]string{
	"@":     "/",
	"@home": "/home",
	"@root": "/root",
}

// MountPointFor resolves subvolume to its mount point, or an error if the
// subvolume is not one pc-switcher knows how to snapshot.
func MountPointFor(subvolume string) (string, error) {
	mp, ok := CanonicalMountPoints[subvolume]
	if !ok {
		return "", fmt.Errorf("unrecognized btrfs subvolume %q: must be one of @, @home, @root", subvolume)
	}
	return mp, nil
}
