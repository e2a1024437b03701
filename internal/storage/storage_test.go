package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, SaveMarker("acme", "C123", "1700000000.000100"))

	ts, err := LoadMarker("acme", "C123")
	require.NoError(t, err)
	assert.Equal(t, "1700000000.000100", ts)
}

func TestLoadMarkerMissingReturnsEmpty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	ts, err := LoadMarker("acme", "C999")
	require.NoError(t, err)
	assert.Empty(t, ts)
}

func TestSaveMarkerOverwrites(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, SaveMarker("acme", "C123", "1.0"))
	require.NoError(t, SaveMarker("acme", "C123", "2.0"))

	ts, err := LoadMarker("acme", "C123")
	require.NoError(t, err)
	assert.Equal(t, "2.0", ts)
}

func TestMarkersAreScopedPerWorkspace(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, SaveMarker("acme", "C123", "1.0"))

	ts, err := LoadMarker("other", "C123")
	require.NoError(t, err)
	assert.Empty(t, ts)
}
