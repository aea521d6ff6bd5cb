package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMeasureType(t *testing.T) {
	for _, value := range []string{"WATER", "GAS"} {
		parsed, ok := ParseMeasureType(value)
		require.True(t, ok)
		assert.Equal(t, MeasureType(value), parsed)
	}

	for _, value := range []string{"water", "SOLAR", ""} {
		_, ok := ParseMeasureType(value)
		assert.False(t, ok, value)
	}
}

func TestParseMeasureDatetime(t *testing.T) {
	cases := []string{
		"2024-08-28T18:00:00Z",
		"2024-08-28 18:00:00.000",
		"2024-08-28 18:00:00",
		"2024-08-28",
	}

	for _, value := range cases {
		parsed, ok := ParseMeasureDatetime(value)
		require.True(t, ok, value)
		assert.Equal(t, 2024, parsed.Year())
		assert.Equal(t, time.August, parsed.Month())
		assert.Equal(t, 28, parsed.Day())
	}

	_, ok := ParseMeasureDatetime("28/08/2024")
	assert.False(t, ok)

	_, ok = ParseMeasureDatetime("not a date")
	assert.False(t, ok)
}
