package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCapturedStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String()
}

func writeLogFile(t *testing.T, home, name, body string) {
	t.Helper()
	dir := filepath.Join(home, ".local", "share", "pc-switcher", "logs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLogsListsFilesByDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeLogFile(t, home, "sync-20260101T000000-aaaaaaaa.log", `{"event":"one"}`+"\n")
	writeLogFile(t, home, "sync-20260102T000000-bbbbbbbb.log", `{"event":"two"}`+"\n")

	app := New()
	app.rootCmd.SetArgs([]string{"logs"})

	out := withCapturedStdout(t, func() {
		require.NoError(t, app.rootCmd.Execute())
	})

	assert.Contains(t, out, "aaaaaaaa")
	assert.Contains(t, out, "bbbbbbbb")
}

func TestLogsLastPrintsMostRecent(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeLogFile(t, home, "sync-20260101T000000-aaaaaaaa.log", `{"event":"old"}`+"\n")
	writeLogFile(t, home, "sync-20260102T000000-bbbbbbbb.log", `{"event":"new"}`+"\n")

	app := New()
	app.rootCmd.SetArgs([]string{"logs", "--last"})

	out := withCapturedStdout(t, func() {
		require.NoError(t, app.rootCmd.Execute())
	})

	assert.Contains(t, out, `"event":"new"`)
}

func TestLogsSessionPrintsMatchingFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeLogFile(t, home, "sync-20260101T000000-aaaaaaaa.log", `{"event":"one"}`+"\n")

	app := New()
	app.rootCmd.SetArgs([]string{"logs", "--session", "aaaaaaaa"})

	out := withCapturedStdout(t, func() {
		require.NoError(t, app.rootCmd.Execute())
	})

	assert.Contains(t, out, `"event":"one"`)
}

func TestLogsMissingDirectoryReportsEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	app := New()
	app.rootCmd.SetArgs([]string{"logs"})

	out := withCapturedStdout(t, func() {
		require.NoError(t, app.rootCmd.Execute())
	})

	assert.Contains(t, out, "no sync logs found")
}
