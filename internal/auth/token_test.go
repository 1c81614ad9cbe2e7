package auth

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService(testSecret, 24*time.Hour, false)

	for _, subject := range []string{"admin", "a", "some.user-name"} {
		token, err := svc.Issue(subject)
		require.NoError(t, err)
		assert.NoError(t, svc.Verify(token))
	}
}

func TestIssueRejectsEmptySubject(t *testing.T) {
	svc := NewTokenService(testSecret, 24*time.Hour, false)

	_, err := svc.Issue("  ")
	assert.Error(t, err)
}

func TestTokenValidityWindowBoundary(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := NewTokenService(testSecret, 24*time.Hour, false)
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.Issue("admin")
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(23*time.Hour + 59*time.Minute) }
	assert.NoError(t, svc.Verify(token), "still inside the window")

	svc.now = func() time.Time { return issuedAt.Add(24*time.Hour + time.Minute) }
	assert.ErrorIs(t, svc.Verify(token), ErrInvalidToken, "past the window")
}

func TestTokenIssuedInFutureIsInvalid(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := NewTokenService(testSecret, 24*time.Hour, false)
	svc.now = func() time.Time { return issuedAt }

	token, err := svc.Issue("admin")
	require.NoError(t, err)

	svc.now = func() time.Time { return issuedAt.Add(-2 * time.Minute) }
	assert.ErrorIs(t, svc.Verify(token), ErrInvalidToken)
}

func TestMutatedTokenFailsVerification(t *testing.T) {
	svc := NewTokenService(testSecret, 24*time.Hour, false)

	token, err := svc.Issue("admin")
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		mutated := []byte(token)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		assert.ErrorIs(t, svc.Verify(string(mutated)), ErrInvalidToken, "mutation at offset %d must invalidate", i)
	}
}

func TestMalformedTokensAreInvalidNotFatal(t *testing.T) {
	svc := NewTokenService(testSecret, 24*time.Hour, false)

	for _, bad := range []string{"", "   ", "not-a-token", "a.b", "a.b.c.d", strings.Repeat(".", 10)} {
		assert.ErrorIs(t, svc.Verify(bad), ErrInvalidToken)
	}
}

func TestTokenFromDifferentSecretIsRejected(t *testing.T) {
	issuer := NewTokenService("another-secret-another-secret-ab", 24*time.Hour, false)
	verifier := NewTokenService(testSecret, 24*time.Hour, false)

	token, err := issuer.Issue("admin")
	require.NoError(t, err)
	assert.ErrorIs(t, verifier.Verify(token), ErrInvalidToken)
}

func TestCookieAttributes(t *testing.T) {
	svc := NewTokenService(testSecret, 24*time.Hour, true)

	rec := httptest.NewRecorder()
	svc.SetCookie(rec, "token-value")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, CookieName, cookie.Name)
	assert.Equal(t, "token-value", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)

	rec = httptest.NewRecorder()
	svc.ClearCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}
