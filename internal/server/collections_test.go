package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/klppl/onepagepub/internal/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCollectionGetReportsUnfilteredTotalItems(t *testing.T) {
	srv, reg, s := newTestServer(t)
	alice := registerTestActor(t, reg, "alice")
	outbox, err := s.FieldIRI(alice.ActorID, "outbox")
	require.NoError(t, err)
	require.NoError(t, s.Append(outbox, "https://example.social/object/1"))

	req := httptest.NewRequest(http.MethodGet, "/orderedcollection/"+idSuffix(outbox), nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, float64(1), doc["totalItems"])
}

func TestHandleCollectionGetRejectsAnonymousReadOfPrivateCollection(t *testing.T) {
	srv, reg, s := newTestServer(t)
	alice := registerTestActor(t, reg, "alice")
	blocked, err := s.FieldIRI(alice.ActorID, "blocked")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/orderedcollection/"+idSuffix(blocked), nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleCollectionGetRejectsReaderBlockedByOwner(t *testing.T) {
	srv, reg, s := newTestServer(t)
	alice := registerTestActor(t, reg, "alice")
	bob := registerTestActor(t, reg, "bob")
	outbox, err := s.FieldIRI(alice.ActorID, "outbox")
	require.NoError(t, err)
	blockedColl, err := s.FieldIRI(alice.ActorID, "blocked")
	require.NoError(t, err)
	require.NoError(t, s.Append(blockedColl, bob.ActorID))

	req := httptest.NewRequest(http.MethodGet, "/orderedcollectionpage/"+idSuffix(outbox), nil)
	req.Header.Set("Authorization", "Bearer "+bob.Token)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlePageGetDropsItemsTheViewerCannotReadButKeepsTotalOnParent(t *testing.T) {
	srv, reg, s := newTestServer(t)
	alice := registerTestActor(t, reg, "alice")
	bob := registerTestActor(t, reg, "bob")
	outbox, err := s.FieldIRI(alice.ActorID, "outbox")
	require.NoError(t, err)

	public := vocab.Doc{"id": "https://example.social/object/public", "attributedTo": alice.ActorID, "to": []interface{}{vocab.PublicIRI}}
	private := vocab.Doc{"id": "https://example.social/object/private", "attributedTo": alice.ActorID, "to": []interface{}{bob.ActorID}}
	require.NoError(t, s.Put(public))
	require.NoError(t, s.Put(private))
	require.NoError(t, s.Append(outbox, public.ID()))
	require.NoError(t, s.Append(outbox, private.ID()))

	req := httptest.NewRequest(http.MethodGet, "/orderedcollectionpage/"+idSuffix(outbox), nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var page map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &page))
	items := page["orderedItems"].([]interface{})
	assert.Len(t, items, 1)
	assert.Equal(t, public.ID(), items[0])

	collReq := httptest.NewRequest(http.MethodGet, "/orderedcollection/"+idSuffix(outbox), nil)
	collRec := httptest.NewRecorder()
	srv.router.ServeHTTP(collRec, collReq)
	var coll map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(collRec.Body.Bytes(), &coll))
	assert.Equal(t, float64(2), coll["totalItems"], "totalItems stays at the pre-filter count")
}

func TestHandleOutboxPostRequiresOwnerBearerToken(t *testing.T) {
	srv, reg, s := newTestServer(t)
	alice := registerTestActor(t, reg, "alice")
	outbox, err := s.FieldIRI(alice.ActorID, "outbox")
	require.NoError(t, err)

	body := `{"type":"Create","to":["https://www.w3.org/ns/activitystreams#Public"],"object":{"type":"Note","content":"hi"}}`

	noAuth := httptest.NewRequest(http.MethodPost, "/orderedcollection/"+idSuffix(outbox), strings.NewReader(body))
	noAuthRec := httptest.NewRecorder()
	srv.router.ServeHTTP(noAuthRec, noAuth)
	assert.Equal(t, http.StatusForbidden, noAuthRec.Code)

	authed := httptest.NewRequest(http.MethodPost, "/orderedcollection/"+idSuffix(outbox), strings.NewReader(body))
	authed.Header.Set("Authorization", "Bearer "+alice.Token)
	authedRec := httptest.NewRecorder()
	srv.router.ServeHTTP(authedRec, authed)
	assert.Equal(t, http.StatusOK, authedRec.Code)
	assert.NotEmpty(t, authedRec.Header().Get("Location"))
}
