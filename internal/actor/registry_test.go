package actor

import (
	"testing"

	"github.com/klppl/onepagepub/internal/config"
	"github.com/klppl/onepagepub/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	s, err := store.Open("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	cfg := &config.Config{Host: "https://example.social"}
	return New(s, cfg), s
}

func TestRegisterCreatesActorAccountAndCollections(t *testing.T) {
	r, s := newTestRegistry(t)
	reg, err := r.Register("alice", "password123", "password123")
	require.NoError(t, err)
	assert.Contains(t, reg.ActorID, "https://example.social/person/")
	assert.NotEmpty(t, reg.Token)

	doc, err := s.Get(reg.ActorID)
	require.NoError(t, err)
	assert.Equal(t, "Person", doc.Type())
	assert.Equal(t, "alice", doc["preferredUsername"])

	for _, field := range []string{"inbox", "outbox", "followers", "following", "liked", "blocked"} {
		iri, err := s.FieldIRI(reg.ActorID, field)
		require.NoError(t, err)
		assert.NotEmpty(t, iri)
	}
}

func TestRegisterRejectsInvalidUsername(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Register("has a space", "password123", "password123")
	assert.Error(t, err)
}

func TestRegisterRejectsMismatchedConfirmation(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Register("alice", "password123", "different")
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Register("alice", "password123", "password123")
	require.NoError(t, err)
	_, err = r.Register("alice", "password456", "password456")
	assert.Error(t, err)
}

func TestAuthByTokenAndPassword(t *testing.T) {
	r, _ := newTestRegistry(t)
	reg, err := r.Register("alice", "password123", "password123")
	require.NoError(t, err)

	acct, err := r.AuthByToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.ActorID, acct.ActorID)

	_, err = r.AuthByToken("wrong-token")
	assert.Error(t, err)

	acct, err = r.AuthByPassword("alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, reg.ActorID, acct.ActorID)

	_, err = r.AuthByPassword("alice", "wrong-password")
	assert.Error(t, err)
}

func TestIsLocalRecognizesOwnHostOnly(t *testing.T) {
	r, _ := newTestRegistry(t)
	reg, err := r.Register("alice", "password123", "password123")
	require.NoError(t, err)
	assert.True(t, r.IsLocal(reg.ActorID))
	assert.False(t, r.IsLocal("https://remote.example/person/1"))
}
