package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellQuote(t *testing.T) {
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, "simple", shellQuote("simple"))
	assert.Equal(t, `'has space'`, shellQuote("has space"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestWrapLoginShell(t *testing.T) {
	wrapped := wrapLoginShell([]string{"btrfs", "subvolume", "show", "/"})
	assert.Equal(t, []string{"bash", "-l", "-c", "btrfs subvolume show /"}, wrapped)

	wrapped = wrapLoginShell([]string{"echo", "hello world"})
	assert.Equal(t, []string{"bash", "-l", "-c", "echo 'hello world'"}, wrapped)
}
