package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpsStatusRequiresBasicAuth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ops/status", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req2 := httptest.NewRequest(http.MethodGet, "/ops/status", nil)
	req2.SetBasicAuth("anything", "wrong-password")
	rec2 := httptest.NewRecorder()
	srv.router.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestOpsStatusReturnsCountsWithCorrectPassword(t *testing.T) {
	srv, reg, _ := newTestServer(t)
	registerTestActor(t, reg, "alice")

	req := httptest.NewRequest(http.MethodGet, "/ops/status", nil)
	req.SetBasicAuth("ignored", "secret")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalActors":"1"`)
}

func TestOpsDisabledWhenNoPasswordConfigured(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.cfg.OpsPassword = ""
	srv.router = srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/ops/status", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
