package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T) (*TokenService, http.Handler, *bool) {
	t.Helper()

	tokens := NewTokenService(testSecret, 24*time.Hour, false)
	base, err := url.Parse("https://site.com")
	require.NoError(t, err)

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	return tokens, Guard(tokens, DefaultGuardConfig(base), next), &reached
}

func TestGuardIgnoresPathsOutsidePrefix(t *testing.T) {
	_, guard, reached := newTestGuard(t)

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/blog", nil))

	assert.True(t, *reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardRedirectsWithoutCookie(t *testing.T) {
	_, guard, reached := newTestGuard(t)

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/blog", nil))

	assert.False(t, *reached)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login?redirect=%2Fadmin%2Fblog", rec.Header().Get("Location"))
}

func TestGuardClearsExpiredCookieAndFlagsLogin(t *testing.T) {
	tokens, guard, reached := newTestGuard(t)

	issuedAt := time.Now().Add(-25 * time.Hour)
	tokens.now = func() time.Time { return issuedAt }
	expired, err := tokens.Issue("admin")
	require.NoError(t, err)
	tokens.now = time.Now

	req := httptest.NewRequest(http.MethodGet, "/admin/blog", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: expired})

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	assert.False(t, *reached)
	assert.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/admin/login", location.Path)
	assert.Equal(t, "/admin/blog", location.Query().Get("redirect"))
	assert.Equal(t, "true", location.Query().Get("expired"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestGuardPassesValidSession(t *testing.T) {
	tokens, guard, reached := newTestGuard(t)

	token, err := tokens.Issue("admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/blog", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	assert.True(t, *reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardRedirectsAuthenticatedAwayFromLogin(t *testing.T) {
	tokens, guard, reached := newTestGuard(t)

	token, err := tokens.Issue("admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/login", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	assert.False(t, *reached)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
}

func TestGuardHonorsSanitizedRedirectOnLogin(t *testing.T) {
	tokens, guard, _ := newTestGuard(t)

	token, err := tokens.Issue("admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/login?redirect=%2Fadmin%2Fblog", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	assert.Equal(t, "/admin/blog", rec.Header().Get("Location"))

	// Hostile redirect targets collapse to the landing path.
	req = httptest.NewRequest(http.MethodGet, "/admin/login?redirect=https%3A%2F%2Fevil.com%2Fx", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	rec = httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
}

func TestGuardAllowsLoginPageWithoutSession(t *testing.T) {
	_, guard, reached := newTestGuard(t)

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/login", nil))

	assert.True(t, *reached)
}

func TestGuardTreatsGarbageCookieAsExpired(t *testing.T) {
	_, guard, reached := newTestGuard(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, req)

	assert.False(t, *reached)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "true", location.Query().Get("expired"))
}
