// Package config loads and validates pc-switcher's single YAML
// configuration document (spec.md §4.7), grounded on the teacher's
// gopkg.in/yaml.v3 usage throughout grovetools-flow/pkg/state/state.go and
// grovetools-flow/cmd/plan_config.go, and its invopop/jsonschema-based
// schema generation in tools/schema-generator/main.go.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LogConfig holds the three independent log-level thresholds spec.md
// §4.7 describes.
type LogConfig struct {
	File     string `yaml:"file" jsonschema:"enum=DEBUG,enum=FULL,enum=INFO,enum=WARNING,enum=ERROR,enum=CRITICAL"`
	TUI      string `yaml:"tui" jsonschema:"enum=DEBUG,enum=FULL,enum=INFO,enum=WARNING,enum=ERROR,enum=CRITICAL"`
	External string `yaml:"external" jsonschema:"enum=DEBUG,enum=FULL,enum=INFO,enum=WARNING,enum=ERROR,enum=CRITICAL"`
}

// DiskSpaceMonitorConfig holds the disk monitor's thresholds. Values are
// threshold strings ("20%" or "50GiB"), parsed by pkg/config.ParseThreshold.
type DiskSpaceMonitorConfig struct {
	PreflightMinimum string `yaml:"preflight_minimum"`
	RuntimeMinimum   string `yaml:"runtime_minimum"`
	WarningThreshold string `yaml:"warning_threshold"`
	CheckInterval    int    `yaml:"check_interval" jsonschema:"minimum=1"`
}

// BtrfsSnapshotsConfig holds the snapshot manager's configuration.
type BtrfsSnapshotsConfig struct {
	Subvolumes  []string `yaml:"subvolumes" jsonschema:"minItems=1"`
	SnapshotDir string   `yaml:"snapshot_dir"`
	KeepRecent  int      `yaml:"keep_recent" jsonschema:"minimum=0"`
	MaxAgeDays  *int     `yaml:"max_age_days,omitempty"`
}

// Config is the parsed, defaulted, and validated form of
// ~/.config/pc-switcher/config.yaml.
type Config struct {
	Logging           LogConfig              `yaml:"logging"`
	SyncJobs          map[string]bool        `yaml:"sync_jobs"`
	DiskSpaceMonitor  DiskSpaceMonitorConfig  `yaml:"disk_space_monitor"`
	BtrfsSnapshots    BtrfsSnapshotsConfig    `yaml:"btrfs_snapshots"`
	jobConfigs        map[string]map[string]any
}

// defaults mirrors spec.md §4.7(c) exactly.
func defaults() Config {
	return Config{
		Logging: LogConfig{File: "DEBUG", TUI: "INFO", External: "WARNING"},
		DiskSpaceMonitor: DiskSpaceMonitorConfig{
			PreflightMinimum: "20%",
			RuntimeMinimum:   "15%",
			WarningThreshold: "25%",
			CheckInterval:    30,
		},
		BtrfsSnapshots: BtrfsSnapshotsConfig{
			Subvolumes: []string{"@", "@home"},
			KeepRecent: 3,
			MaxAgeDays: nil,
		},
		SyncJobs:   map[string]bool{},
		jobConfigs: map[string]map[string]any{},
	}
}

// knownTopLevelKeys are the fixed sections Config itself owns; every other
// top-level YAML key is a per-job config section (§4.7's "<job_name>: {...}").
var knownTopLevelKeys = map[string]bool{
	"logging":            true,
	"sync_jobs":          true,
	"disk_space_monitor": true,
	"btrfs_snapshots":    true,
}

// Load parses the YAML document at path, applies defaults for any field
// the document omits, and returns the result alongside the raw decoded
// document (for schema validation by the caller). Syntax errors are
// returned with their line number intact, as yaml.v3 reports them.
func Load(path string) (Config, map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses raw YAML bytes the same way Load does; split out for
// testing.
func Parse(data []byte) (Config, map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, nil, fmt.Errorf("parse config YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	cfg := defaults()

	var typed struct {
		Logging          *LogConfig              `yaml:"logging"`
		SyncJobs         map[string]bool         `yaml:"sync_jobs"`
		DiskSpaceMonitor *DiskSpaceMonitorConfig `yaml:"disk_space_monitor"`
		BtrfsSnapshots   *BtrfsSnapshotsConfig   `yaml:"btrfs_snapshots"`
	}
	if err := yaml.Unmarshal(data, &typed); err != nil {
		return Config{}, nil, fmt.Errorf("parse config YAML: %w", err)
	}

	if typed.Logging != nil {
		applyLogDefaults(&cfg.Logging, typed.Logging)
	}
	if typed.SyncJobs != nil {
		cfg.SyncJobs = typed.SyncJobs
	}
	if typed.DiskSpaceMonitor != nil {
		applyDiskDefaults(&cfg.DiskSpaceMonitor, typed.DiskSpaceMonitor)
	}
	if typed.BtrfsSnapshots != nil {
		applyBtrfsDefaults(&cfg.BtrfsSnapshots, typed.BtrfsSnapshots)
	}

	cfg.jobConfigs = map[string]map[string]any{}
	for key, val := range raw {
		if knownTopLevelKeys[key] {
			continue
		}
		m, ok := val.(map[string]any)
		if !ok {
			continue
		}
		cfg.jobConfigs[key] = m
	}

	return cfg, raw, nil
}

func applyLogDefaults(dst *LogConfig, set *LogConfig) {
	if set.File != "" {
		dst.File = set.File
	}
	if set.TUI != "" {
		dst.TUI = set.TUI
	}
	if set.External != "" {
		dst.External = set.External
	}
}

func applyDiskDefaults(dst *DiskSpaceMonitorConfig, set *DiskSpaceMonitorConfig) {
	if set.PreflightMinimum != "" {
		dst.PreflightMinimum = set.PreflightMinimum
	}
	if set.RuntimeMinimum != "" {
		dst.RuntimeMinimum = set.RuntimeMinimum
	}
	if set.WarningThreshold != "" {
		dst.WarningThreshold = set.WarningThreshold
	}
	if set.CheckInterval != 0 {
		dst.CheckInterval = set.CheckInterval
	}
}

func applyBtrfsDefaults(dst *BtrfsSnapshotsConfig, set *BtrfsSnapshotsConfig) {
	if set.Subvolumes != nil {
		dst.Subvolumes = set.Subvolumes
	}
	if set.SnapshotDir != "" {
		dst.SnapshotDir = set.SnapshotDir
	}
	if set.KeepRecent != 0 {
		dst.KeepRecent = set.KeepRecent
	}
	if set.MaxAgeDays != nil {
		dst.MaxAgeDays = set.MaxAgeDays
	}
}

// GetJobConfig returns the per-job config section for name, or an empty
// map if the job was never configured, per spec.md §4.7(e).
func (c Config) GetJobConfig(name string) map[string]any {
	if m, ok := c.jobConfigs[name]; ok {
		return m
	}
	return map[string]any{}
}
