package orchestration

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTYPrompterConfirmYes(t *testing.T) {
	p := &TTYPrompter{In: strings.NewReader("y\n"), Out: &bytes.Buffer{}}
	ok, err := p.Confirm("continue?")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTTYPrompterConfirmDefaultNo(t *testing.T) {
	p := &TTYPrompter{In: strings.NewReader("\n"), Out: &bytes.Buffer{}}
	ok, err := p.Confirm("continue?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAutoDeclinePrompterAlwaysDeclines(t *testing.T) {
	ok, err := AutoDeclinePrompter{}.Confirm("continue?")
	require.NoError(t, err)
	assert.False(t, ok)
}
