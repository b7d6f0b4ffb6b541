package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestStore opens a fresh in-memory SQLite database, migrated and ready,
// unique per test so parallel tests never share state.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}
