package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nara.app/nara-gateway/internal/auth"
)

func TestJWTAuthStoresSubject(t *testing.T) {
	var subject string
	var found bool
	handler := JWTAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, found = SubjectFrom(r.Context())
	}))

	token, err := auth.GenerateJWT(testSecret, "ops@nara", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/contracts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, found)
	assert.Equal(t, "ops@nara", subject)
}

func TestJWTAuthDisabledWithoutSecret(t *testing.T) {
	var found bool
	handler := JWTAuth("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = SubjectFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/contracts", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, found)
}

func TestJWTAuthRejectsNonBearer(t *testing.T) {
	handler := JWTAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/contracts", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
