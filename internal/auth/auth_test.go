package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znwiqn/anidao/internal/models"
)

func TestGenerateAndValidate(t *testing.T) {
	tokens := NewTokens("test-secret")
	user := &models.User{ID: 7, Username: "spike", IsAdmin: true}

	token, expires, err := tokens.Generate(user, false)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expires, time.Minute)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "spike", claims.Username)
	assert.True(t, claims.IsAdmin)
}

func TestValidateRejectsForeignAndExpired(t *testing.T) {
	tokens := NewTokens("one")
	token, _, err := tokens.Generate(&models.User{ID: 1}, false)
	require.NoError(t, err)

	_, err = NewTokens("two").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := NewTokens("one")
	later.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	_, err = later.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestMiddlewareReadsCookieAndBearer(t *testing.T) {
	tokens := NewTokens("s")
	token, _, err := tokens.Generate(&models.User{ID: 3, Username: "jet"}, false)
	require.NoError(t, err)

	var seen *Claims
	h := tokens.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, "jet", seen.Username)

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)

	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, seen)
}

func TestRequireUserAndAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	RequireUser(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Authentication required"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: 1}))

	rec = httptest.NewRecorder()
	RequireUser(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	RequireAdmin(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: 1, IsAdmin: true}))
	rec = httptest.NewRecorder()
	RequireAdmin(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
