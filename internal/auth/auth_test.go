package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardAuthenticate(t *testing.T) {
	g, err := NewGuard([]Token{{Name: "ops", SHA256: Digest("s3cret")}})
	require.NoError(t, err)
	require.True(t, g.Enabled())

	caller, err := g.Authenticate("Bearer s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ops", caller)

	_, err = g.Authenticate("bearer wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = g.Authenticate("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = g.Authenticate("Basic b3BzOnMzY3JldA==")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = NewGuard([]Token{{Name: "bad", SHA256: "abcd"}})
	assert.Error(t, err)
}

func TestGuardMiddleware(t *testing.T) {
	g, err := NewGuard([]Token{{Name: "ops", SHA256: Digest("s3cret")}})
	require.NoError(t, err)

	var seen string
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CallerFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/mint", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "ops", seen)
}

func TestDisabledGuardPassesThrough(t *testing.T) {
	var g *Guard
	h := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mint", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
