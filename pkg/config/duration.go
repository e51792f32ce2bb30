package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// durationRe matches a sequence of "<number><unit>" pairs, units d/w/h/m/s,
// e.g. "30d", "2w", "90m". Grounded on original_source's CLI flags for
// "--keep-snapshots-for" and "--max-age", which accept the same shorthand.
var durationRe = regexp.MustCompile(`(\d+)\s*(w|d|h|m|s)`)

var unitDurations = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// ParseDuration parses a compact duration string such as "30d", "2w6h", or
// a bare integer (interpreted as days, matching snapshot max-age
// semantics). Unlike time.ParseDuration, it understands day and week
// suffixes, since config.yaml's btrfs_snapshots.max_age_days and the CLI's
// --older-than flag are both expressed in days by default.
func ParseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * 24 * time.Hour, nil
	}

	matches := durationRe.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration %q: expected forms like \"30d\", \"2w\", or a bare day count", s)
	}

	var total time.Duration
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		unit, ok := unitDurations[m[2]]
		if !ok {
			return 0, fmt.Errorf("invalid duration %q: unrecognized unit %q", s, m[2])
		}
		total += time.Duration(n) * unit
	}
	return total, nil
}
