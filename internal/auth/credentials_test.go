package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestVerifyRejectsNonMatchingPairs(t *testing.T) {
	creds := NewCredentials("admin", "correct-horse", "", "secret-value-that-is-long-enough!", false)

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"both wrong", "root", "letmein"},
		{"username wrong", "root", "correct-horse"},
		{"password wrong", "admin", "letmein"},
		{"password wrong length", "admin", "correct-hors"},
		{"empty username", "", "correct-horse"},
		{"empty password", "admin", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, creds.Verify(tc.username, tc.password))
		})
	}

	assert.True(t, creds.Verify("admin", "correct-horse"))
}

func TestVerifyFailsClosedWithoutConfiguredCredentials(t *testing.T) {
	assert.False(t, NewCredentials("", "pw", "", "s", false).Verify("", "pw"))
	assert.False(t, NewCredentials("admin", "", "", "s", false).Verify("admin", ""))
}

func TestVerifyBcryptLeg(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	creds := NewCredentials("admin", "", string(hash), "secret-value-that-is-long-enough!", false)
	assert.True(t, creds.Verify("admin", "correct-horse"))
	assert.False(t, creds.Verify("admin", "wrong"))
	assert.False(t, creds.Verify("root", "correct-horse"))
}

func TestConstantTimeCompare(t *testing.T) {
	assert.True(t, constantTimeCompare("abcdef", "abcdef"))
	assert.False(t, constantTimeCompare("abcdef", "abcdeg"))
	assert.False(t, constantTimeCompare("xbcdef", "abcdef"), "first-byte mismatch")
	assert.False(t, constantTimeCompare("short", "longer-value"), "length mismatch returns immediately")
	assert.True(t, constantTimeCompare("", ""))
}

func TestValidateReportsProblems(t *testing.T) {
	problems := NewCredentials("", "", "", "", false).Validate()
	require.Len(t, problems, 3)
	assert.Contains(t, problems[0], "ADMIN_USERNAME")
	assert.Contains(t, problems[1], "ADMIN_PASSWORD")
	assert.Contains(t, problems[2], "INSECURE")

	problems = NewCredentials("ab", "1234567", "", "tiny", false).Validate()
	require.Len(t, problems, 3)
	assert.Contains(t, problems[0], "at least 3 characters")
	assert.Contains(t, problems[1], "at least 8 characters")
	assert.Contains(t, problems[2], "at least 32 characters")

	assert.Empty(t, NewCredentials("admin", "a-long-password", "", "0123456789abcdef0123456789abcdef", true).Validate())
}

func TestValidateBcryptHashSatisfiesPasswordCheck(t *testing.T) {
	creds := NewCredentials("admin", "", "$2a$10$abcdefghijklmnopqrstuv", "0123456789abcdef0123456789abcdef", true)
	assert.Empty(t, creds.Validate())
}
