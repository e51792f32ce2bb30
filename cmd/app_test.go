package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRegistersAllSixCommands(t *testing.T) {
	app := New()
	var names []string
	for _, c := range app.rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"sync", "logs", "rollback", "cleanup-snapshots", "init", "self"}, names)
}

func TestSetVersionUpdatesRootCmdVersion(t *testing.T) {
	app := New()
	app.SetVersion("1.2.3", "deadbeef", "2026-01-01")
	assert.Equal(t, "1.2.3", app.rootCmd.Version)
	assert.Equal(t, "1.2.3", app.version)
}

func TestSyncRequiresExactlyOneArg(t *testing.T) {
	app := New()
	app.rootCmd.SetArgs([]string{"sync"})
	err := app.rootCmd.Execute()
	assert.Error(t, err)
}
