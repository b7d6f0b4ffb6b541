package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRegisterFormServesHTML(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/register", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/register"`)
}

func TestHandleRegisterSubmitCreatesAccountAndShowsToken(t *testing.T) {
	srv, _, s := newTestServer(t)
	form := url.Values{
		"username":     {"alice"},
		"password":     {"password123"},
		"confirmation": {"password123"},
	}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="token"`)

	taken, err := s.UsernameTaken("alice")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestHandleRegisterSubmitRejectsMismatchedConfirmation(t *testing.T) {
	srv, _, _ := newTestServer(t)
	form := url.Values{
		"username":     {"alice"},
		"password":     {"password123"},
		"confirmation": {"nope"},
	}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
