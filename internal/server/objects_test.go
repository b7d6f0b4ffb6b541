package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/klppl/onepagepub/internal/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mintedPath strips the configured host from a minted id, returning the
// "/type/token" path the router must serve it at.
func mintedPath(t *testing.T, srv *Server, id string) string {
	t.Helper()
	host := srv.cfg.IRI("")
	require.Contains(t, id, host)
	return id[len(host):]
}

// submitNote posts a bare Note through the real outbox pipeline (Submit
// wraps it in a Create per C2S convention) and returns the embedded Note's
// own minted id, exactly as a client would receive it back in the stored
// Create's "object" field.
func submitNote(t *testing.T, srv *Server, actorIRI string, to interface{}) string {
	t.Helper()
	created, err := srv.engine.Submit(actorIRI, vocab.Doc{"type": "Note", "content": "hi", "to": []interface{}{to}})
	require.NoError(t, err)
	obj, ok := created.EmbeddedObject()
	require.True(t, ok)
	return obj.ID()
}

func TestHandleObjectReturnsGoneForTombstone(t *testing.T) {
	srv, reg, s := newTestServer(t)
	alice := registerTestActor(t, reg, "alice")
	noteID := submitNote(t, srv, alice.ActorID, vocab.PublicIRI)
	require.NoError(t, s.Tombstone(noteID))

	req := httptest.NewRequest(http.MethodGet, mintedPath(t, srv, noteID), nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Contains(t, rec.Body.String(), "Tombstone")
}

func TestHandleObjectDeniesUnaddressedAnonymousViewer(t *testing.T) {
	srv, reg, _ := newTestServer(t)
	alice := registerTestActor(t, reg, "alice")
	bob := registerTestActor(t, reg, "bob")
	noteID := submitNote(t, srv, alice.ActorID, bob.ActorID)

	req := httptest.NewRequest(http.MethodGet, mintedPath(t, srv, noteID), nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleObjectServesPublicObject(t *testing.T) {
	srv, reg, _ := newTestServer(t)
	alice := registerTestActor(t, reg, "alice")
	noteID := submitNote(t, srv, alice.ActorID, vocab.PublicIRI)

	req := httptest.NewRequest(http.MethodGet, mintedPath(t, srv, noteID), nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleObjectDeniesViewerBlockedByAuthor(t *testing.T) {
	srv, reg, s := newTestServer(t)
	alice := registerTestActor(t, reg, "alice")
	bob := registerTestActor(t, reg, "bob")
	noteID := submitNote(t, srv, alice.ActorID, vocab.PublicIRI)
	blockedColl, err := s.FieldIRI(alice.ActorID, "blocked")
	require.NoError(t, err)
	require.NoError(t, s.Append(blockedColl, bob.ActorID))

	req := httptest.NewRequest(http.MethodGet, mintedPath(t, srv, noteID), nil)
	req.Header.Set("Authorization", "Bearer "+bob.Token)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
