package config

import (
	"fmt"
	"regexp"
	"strconv"
)

// ThresholdKind distinguishes a percentage-of-volume threshold from an
// absolute byte-count threshold, per spec.md §4.4's disk space monitor
// configuration (grounded on original_source/jobs/disk_space_monitor.py's
// _parse_threshold).
type ThresholdKind int

const (
	ThresholdPercent ThresholdKind = iota
	ThresholdAbsolute
)

// Threshold is a parsed disk-space floor, either a percentage of the
// volume's total size or a fixed byte count.
type Threshold struct {
	Kind    ThresholdKind
	Percent float64 // valid when Kind == ThresholdPercent, in [0, 100]
	Bytes   int64   // valid when Kind == ThresholdAbsolute
	raw     string
}

var (
	percentRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*%\s*$`)
	absoluteRe = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*([KMGT]i?B)\s*$`)
)

var binaryUnits = map[string]int64{
	"B":   1,
	"KB":  1024,
	"KiB": 1024,
	"MB":  1024 * 1024,
	"MiB": 1024 * 1024,
	"GB":  1024 * 1024 * 1024,
	"GiB": 1024 * 1024 * 1024,
	"TB":  1024 * 1024 * 1024 * 1024,
	"TiB": 1024 * 1024 * 1024 * 1024,
}

// ParseThreshold parses a threshold string such as "20%", "50GiB", or
// "500MiB". Decimal SI suffixes ("GB") are treated as binary (GiB) to
// match the byte counts `btrfs filesystem usage` and `df` actually report.
func ParseThreshold(s string) (Threshold, error) {
	if m := percentRe.FindStringSubmatch(s); m != nil {
		pct, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Threshold{}, fmt.Errorf("invalid percentage threshold %q: %w", s, err)
		}
		if pct <= 0 || pct > 100 {
			return Threshold{}, fmt.Errorf("percentage threshold %q out of range (0, 100]", s)
		}
		return Threshold{Kind: ThresholdPercent, Percent: pct, raw: s}, nil
	}

	if m := absoluteRe.FindStringSubmatch(s); m != nil {
		qty, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Threshold{}, fmt.Errorf("invalid size threshold %q: %w", s, err)
		}
		unit, ok := binaryUnits[m[2]]
		if !ok {
			return Threshold{}, fmt.Errorf("unrecognized size unit in threshold %q", s)
		}
		return Threshold{Kind: ThresholdAbsolute, Bytes: int64(qty * float64(unit)), raw: s}, nil
	}

	return Threshold{}, fmt.Errorf("threshold %q is neither a percentage (\"20%%\") nor a size (\"50GiB\")", s)
}

// Satisfied reports whether freeBytes, out of totalBytes total, meets or
// exceeds this threshold.
func (t Threshold) Satisfied(freeBytes, totalBytes int64) bool {
	switch t.Kind {
	case ThresholdPercent:
		if totalBytes == 0 {
			return false
		}
		return (float64(freeBytes)/float64(totalBytes))*100 >= t.Percent
	case ThresholdAbsolute:
		return freeBytes >= t.Bytes
	default:
		return false
	}
}

// String renders the threshold the way it was written in config.yaml.
func (t Threshold) String() string {
	if t.raw != "" {
		return t.raw
	}
	if t.Kind == ThresholdPercent {
		return fmt.Sprintf("%g%%", t.Percent)
	}
	return fmt.Sprintf("%d bytes", t.Bytes)
}

// RequiredBytes returns the minimum free-byte count this threshold implies
// for a volume of the given total size, for use in log messages that
// report a concrete shortfall rather than a bare percentage.
func (t Threshold) RequiredBytes(totalBytes int64) int64 {
	if t.Kind == ThresholdAbsolute {
		return t.Bytes
	}
	return int64(float64(totalBytes) * t.Percent / 100)
}
