package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWebFingerReturnsJRDForLocalAccount(t *testing.T) {
	r, _ := newTestRegistry(t)
	reg, err := r.Register("alice", "password123", "password123")
	require.NoError(t, err)

	jrd, err := r.ResolveWebFinger("acct:alice@example.social")
	require.NoError(t, err)
	assert.Equal(t, "acct:alice@example.social", jrd.Subject)
	assert.Contains(t, jrd.Aliases, reg.ActorID)
	assert.Equal(t, reg.ActorID, jrd.Links[0].Href)
}

func TestResolveWebFingerAcceptsBareAcctWithoutPrefix(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.Register("alice", "password123", "password123")
	require.NoError(t, err)

	jrd, err := r.ResolveWebFinger("alice@example.social")
	require.NoError(t, err)
	assert.Equal(t, "acct:alice@example.social", jrd.Subject)
}

func TestResolveWebFingerRejectsForeignHost(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.ResolveWebFinger("acct:alice@otherhost.example")
	assert.Error(t, err)
}

func TestResolveWebFingerRejectsMalformedResource(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.ResolveWebFinger("not-an-acct-resource")
	assert.Error(t, err)
}

func TestResolveWebFingerRejectsUnknownUser(t *testing.T) {
	r, _ := newTestRegistry(t)
	_, err := r.ResolveWebFinger("acct:nobody@example.social")
	assert.Error(t, err)
}
