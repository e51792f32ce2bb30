package cmd

import (
	"context"
	"fmt"
	"os"
	osexec "os/exec"

	"github.com/spf13/cobra"

	"github.com/pcswitcher/pcswitcher/pkg/version"
)

// releaseOwner/releaseRepo identify the GitHub repository `self update`
// resolves releases against.
const (
	releaseOwner = "pcswitcher"
	releaseRepo  = "pc-switcher"
)

var selfUpdateOpts struct {
	Prerelease    bool
	InstallScript string
}

// NewSelfCmd builds the `self` command group, currently holding just
// `update`, per spec.md §6.
func NewSelfCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "self",
		Short: "Manage this pc-switcher installation",
	}
	cmd.AddCommand(newSelfUpdateCmd(app))
	return cmd
}

// newSelfUpdateCmd builds `self update`, per spec.md §6: `self update
// [<version>] [--prerelease]`, exit 0 success / 1 failure.
func newSelfUpdateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [<version>]",
		Short: "Update this machine's pc-switcher installation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfUpdate(cmd.Context(), app, args)
		},
	}

	cmd.Flags().BoolVar(&selfUpdateOpts.Prerelease, "prerelease", false, "consider prerelease versions when resolving the latest release")
	cmd.Flags().StringVar(&selfUpdateOpts.InstallScript, "install-script", "", "path to the local install script that performs the update")

	return cmd
}

func runSelfUpdate(ctx context.Context, app *App, args []string) error {
	current, err := version.Parse(app.version)
	if err != nil {
		current, _ = version.Parse("0.0.0")
	}

	resolver := version.NewResolver(releaseOwner, releaseRepo)
	releases, err := resolver.GetReleases(ctx, selfUpdateOpts.Prerelease)
	if err != nil {
		return fmt.Errorf("fetch releases: %w", err)
	}

	var target version.Release
	if len(args) == 1 {
		requested, err := version.Parse(args[0])
		if err != nil {
			return fmt.Errorf("parse requested version %q: %w", args[0], err)
		}
		rel, ok := version.ReleaseFor(releases, requested)
		if !ok {
			return fmt.Errorf("no release found matching %s", args[0])
		}
		target = rel
	} else {
		target, err = resolver.GetHighestRelease(ctx, selfUpdateOpts.Prerelease)
		if err != nil {
			return fmt.Errorf("resolve latest release: %w", err)
		}
	}

	if current.Equal(target.Version) {
		fmt.Printf("already up to date at %s\n", current)
		return nil
	}

	fmt.Printf("updating pc-switcher %s -> %s\n", current, target.Version)

	if selfUpdateOpts.InstallScript == "" {
		return fmt.Errorf("--install-script is required to perform the update")
	}

	c := osexec.CommandContext(ctx, "bash", selfUpdateOpts.InstallScript, target.Tag)
	c.Env = append(os.Environ(), "PCSWITCHER_SOURCE_VERSION="+target.Version.Original())
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("install script failed: %w", err)
	}

	fmt.Println("update complete")
	return nil
}
