package orchestration

import (
	"context"
	"fmt"

	"github.com/pcswitcher/pcswitcher/pkg/eventbus"
	"github.com/pcswitcher/pcswitcher/pkg/exec"
	"github.com/pcswitcher/pcswitcher/pkg/version"
)

// remoteVersionCommand is the command run on the target to discover its
// installed pc-switcher version, matching original_source/version.py's
// FindOneVersion over "pc-switcher --version" output.
var remoteVersionCommand = []string{"pc-switcher", "--version"}

// InstallJob is the System job that brings the target up to the
// source's version before any Sync job runs, per spec.md §4.8.2.
type InstallJob struct {
	SourceVersion version.Version
	// InstallScriptPath is the path, on the target, of the install script
	// run there with bash; PCSWITCHER_SOURCE_VERSION is exported into
	// its environment, per original_source/remote/installer.py (see
	// SPEC_FULL.md's "Supplemented features").
	InstallScriptPath string
	ReleaseURL        string
}

func (j *InstallJob) Name() string { return "install_on_target" }

func (j *InstallJob) Role() Role { return RoleSystem }

func (j *InstallJob) ConfigSchema() []byte { return nil }

func (j *InstallJob) ValidateConfig(section map[string]any) []ConfigError { return nil }

// Validate queries the target's installed version; a strictly greater
// target version is refused, since pc-switcher never downgrades
// automatically.
func (j *InstallJob) Validate(ctx context.Context, jc *JobContext) []ValidationError {
	targetVersion, err := j.queryTargetVersion(ctx, jc)
	if err != nil {
		// A missing installation is not a validation failure; it is
		// exactly the case install-needed exists to handle.
		return nil
	}

	if targetVersion.Compare(j.SourceVersion) > 0 {
		return []ValidationError{{
			Job:  j.Name(),
			Host: eventbus.Target,
			Message: fmt.Sprintf(
				"target version %s is newer than source version %s; downgrades are never performed automatically",
				targetVersion, j.SourceVersion,
			),
		}}
	}
	return nil
}

// Execute re-queries the target version and either no-ops (versions
// equal) or drives the install script, passing the source version via
// environment and verifying success by re-reading the remote version.
func (j *InstallJob) Execute(ctx context.Context, jc *JobContext) error {
	jc.ReportProgress(eventbus.PercentOf(0))

	targetVersion, err := j.queryTargetVersion(ctx, jc)
	if err == nil && targetVersion.Equal(j.SourceVersion) {
		jc.Log(eventbus.Target, eventbus.Info, fmt.Sprintf("target version %s matches source, no install needed", targetVersion), nil)
		jc.ReportProgress(eventbus.PercentOf(100))
		return nil
	}

	jc.Log(eventbus.Target, eventbus.Info, fmt.Sprintf("installing pc-switcher %s on target", j.SourceVersion), nil)

	result, err := jc.Target.Run(ctx, exec.Command{
		Args: []string{"bash", j.InstallScriptPath, j.ReleaseURL},
		Env:  map[string]string{"PCSWITCHER_SOURCE_VERSION": j.SourceVersion.Original()},
	})
	if err != nil {
		return fmt.Errorf("run install script on target: %w", err)
	}
	if !result.Success() {
		return fmt.Errorf("install script on target exited %d: %s", result.ExitCode, result.Stderr)
	}

	jc.ReportProgress(eventbus.PercentOf(90))

	installedVersion, err := j.queryTargetVersion(ctx, jc)
	if err != nil {
		return fmt.Errorf("verify installed version on target: %w", err)
	}
	if !installedVersion.Equal(j.SourceVersion) {
		return fmt.Errorf("install verification failed: target reports %s, expected %s", installedVersion, j.SourceVersion)
	}

	jc.Log(eventbus.Target, eventbus.Info, fmt.Sprintf("target now at %s", installedVersion), nil)
	jc.ReportProgress(eventbus.PercentOf(100))
	return nil
}

func (j *InstallJob) queryTargetVersion(ctx context.Context, jc *JobContext) (version.Version, error) {
	result, err := jc.Target.Run(ctx, exec.Command{Args: remoteVersionCommand})
	if err != nil {
		return version.Version{}, fmt.Errorf("query target version: %w", err)
	}
	if !result.Success() {
		return version.Version{}, fmt.Errorf("pc-switcher --version on target exited %d", result.ExitCode)
	}

	token, err := version.FindOneVersion(result.Stdout)
	if err != nil {
		return version.Version{}, err
	}
	return version.Parse(token)
}
