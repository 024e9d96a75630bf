package httpcache

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGet_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	s, err := Open(path, time.Hour, nil)
	require.NoError(t, err)

	require.NoError(t, s.Set("key1", "33", json.RawMessage(`{"a":1}`)))

	payload, ok := s.Get("key1", "33")
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(payload))
}

func TestStore_ReleaseMismatchIsMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	s, err := Open(path, time.Hour, nil)
	require.NoError(t, err)

	require.NoError(t, s.Set("key1", "33", json.RawMessage(`{"a":1}`)))

	_, ok := s.Get("key1", "34")
	assert.False(t, ok)
}

func TestStore_ExpiredEntryIsMiss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	s, err := Open(path, time.Millisecond, nil)
	require.NoError(t, err)

	require.NoError(t, s.Set("key1", "33", json.RawMessage(`{"a":1}`)))

	time.Sleep(5 * time.Millisecond)

	_, ok := s.Get("key1", "33")
	assert.False(t, ok)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	s1, err := Open(path, time.Hour, nil)
	require.NoError(t, err)
	require.NoError(t, s1.Set("key1", "33", json.RawMessage(`{"a":1}`)))

	s2, err := Open(path, time.Hour, nil)
	require.NoError(t, err)

	payload, ok := s2.Get("key1", "33")
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(payload))
}

func TestStore_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")

	s, err := Open(path, time.Hour, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestStore_PurgeRemovesOtherReleases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	s, err := Open(path, time.Hour, nil)
	require.NoError(t, err)

	require.NoError(t, s.Set("old", "32", json.RawMessage(`{}`)))
	require.NoError(t, s.Set("new", "33", json.RawMessage(`{}`)))

	require.NoError(t, s.Purge("33"))

	assert.Equal(t, 1, s.Len())

	_, ok := s.Get("old", "32")
	assert.False(t, ok)

	_, ok = s.Get("new", "33")
	assert.True(t, ok)
}
