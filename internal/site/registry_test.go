package site

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryJSON = `{
  "sites": [
    {"id": 1, "name": "Fitzroy North", "latitude": -37.78, "longitude": 144.99, "API_key": "key-1", "timezone": 10, "client_name": "Alice"},
    {"id": 2, "name": "Rosedale", "latitude": -36.75, "longitude": 174.72, "API_key": "key-2", "timezone": 12, "client_name": "Bob"},
    {"id": 2, "name": "Shadowed duplicate", "latitude": 0, "longitude": 0, "API_key": "key-x", "timezone": 0, "client_name": "Nobody"},
    {"id": 7, "name": "", "latitude": 120, "longitude": 0, "API_key": "", "timezone": 0, "client_name": ""}
  ]
}`

func TestLookupReturnsEntryFields(t *testing.T) {
	root := t.TempDir()
	reg, err := ParseRegistry([]byte(registryJSON), root)
	require.NoError(t, err)

	cases := []Site{
		{ID: 1, Name: "Fitzroy North", Latitude: -37.78, Longitude: 144.99, APIKey: "key-1", Timezone: 10, ClientName: "Alice", Dir: filepath.Join(root, "1")},
		{ID: 2, Name: "Rosedale", Latitude: -36.75, Longitude: 174.72, APIKey: "key-2", Timezone: 12, ClientName: "Bob", Dir: filepath.Join(root, "2")},
	}
	for _, want := range cases {
		got, err := reg.Lookup(want.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLookupUnknownIDIsNotFound(t *testing.T) {
	reg, err := ParseRegistry([]byte(registryJSON), t.TempDir())
	require.NoError(t, err)

	got, err := reg.Lookup(99)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, Site{}, got)
}

func TestLookupRejectsInvalidEntry(t *testing.T) {
	reg, err := ParseRegistry([]byte(registryJSON), t.TempDir())
	require.NoError(t, err)

	_, err = reg.Lookup(7)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestOpenCreatesDirectoryOnlyForKnownSites(t *testing.T) {
	root := t.TempDir()
	reg, err := ParseRegistry([]byte(registryJSON), root)
	require.NoError(t, err)

	s, err := reg.Open(1)
	require.NoError(t, err)
	info, err := os.Stat(s.Dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = reg.Open(42)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(filepath.Join(root, "42"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoadRegistryFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.json")
	require.NoError(t, os.WriteFile(path, []byte(registryJSON), 0o644))

	reg, err := LoadRegistry(path, filepath.Join(dir, "sites"))
	require.NoError(t, err)
	assert.Len(t, reg.Sites(), 4)

	_, err = LoadRegistry(filepath.Join(dir, "missing.json"), dir)
	assert.Error(t, err)
}
