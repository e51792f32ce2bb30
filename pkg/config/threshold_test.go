package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThresholdPercent(t *testing.T) {
	th, err := ParseThreshold("20%")
	require.NoError(t, err)
	assert.Equal(t, ThresholdPercent, th.Kind)
	assert.Equal(t, 20.0, th.Percent)

	th, err = ParseThreshold("100%")
	require.NoError(t, err)
	assert.Equal(t, 100.0, th.Percent)
}

func TestParseThresholdPercentRejectsZeroAndBelow(t *testing.T) {
	_, err := ParseThreshold("0%")
	assert.Error(t, err)

	_, err = ParseThreshold("-5%")
	assert.Error(t, err)
}

func TestParseThresholdPercentRejectsAboveHundred(t *testing.T) {
	_, err := ParseThreshold("150%")
	assert.Error(t, err)
}

func TestParseThresholdAbsolute(t *testing.T) {
	th, err := ParseThreshold("50GiB")
	require.NoError(t, err)
	assert.Equal(t, ThresholdAbsolute, th.Kind)
	assert.Equal(t, int64(50)*1024*1024*1024, th.Bytes)
}

func TestParseThresholdRejectsGarbage(t *testing.T) {
	_, err := ParseThreshold("not a threshold")
	assert.Error(t, err)
}
