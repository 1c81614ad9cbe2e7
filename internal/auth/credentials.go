package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultSecret is the fallback token secret used when ADMIN_SECRET is not
// configured. Running with it is flagged by Validate.
const DefaultSecret = "change-this-in-production"

// Credentials holds the statically configured admin identity and the shared
// token secret. PasswordBcrypt, when set, takes precedence over the plain
// Password for the password comparison.
type Credentials struct {
	Username       string
	Password       string
	PasswordBcrypt string
	Secret         string
	Production     bool
}

func NewCredentials(username, password, passwordBcrypt, secret string, production bool) Credentials {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		secret = DefaultSecret
	}

	return Credentials{
		Username:       strings.TrimSpace(username),
		Password:       password,
		PasswordBcrypt: strings.TrimSpace(passwordBcrypt),
		Secret:         secret,
		Production:     production,
	}
}

// Verify checks a submitted username/password pair against the configured
// admin credentials. Both legs always run so the caller cannot learn which
// field was wrong. Fails closed when credentials are not configured.
func (c Credentials) Verify(username, password string) bool {
	if c.Username == "" || (c.Password == "" && c.PasswordBcrypt == "") {
		return false
	}

	usernameMatch := constantTimeCompare(username, c.Username)

	var passwordMatch bool
	if c.PasswordBcrypt != "" {
		passwordMatch = bcrypt.CompareHashAndPassword([]byte(c.PasswordBcrypt), []byte(password)) == nil
	} else {
		passwordMatch = constantTimeCompare(password, c.Password)
	}

	return usernameMatch && passwordMatch
}

// Validate reports configuration problems in human-readable form. The caller
// decides what to do with them; the service keeps running either way.
func (c Credentials) Validate() []string {
	var problems []string

	if c.Username == "" {
		problems = append(problems, "ADMIN_USERNAME is not set")
	} else if len(c.Username) < 3 {
		problems = append(problems, "ADMIN_USERNAME must be at least 3 characters long")
	}

	if c.Password == "" && c.PasswordBcrypt == "" {
		problems = append(problems, "ADMIN_PASSWORD is not set")
	} else if c.PasswordBcrypt == "" && len(c.Password) < 8 {
		problems = append(problems, "ADMIN_PASSWORD must be at least 8 characters long")
	}

	if c.Secret == DefaultSecret {
		problems = append(problems, "ADMIN_SECRET is not set (using default - INSECURE)")
	} else if len(c.Secret) < 32 {
		problems = append(problems, fmt.Sprintf("ADMIN_SECRET should be at least 32 characters long, got %d", len(c.Secret)))
	}

	return problems
}

// constantTimeCompare returns whether a and b are equal without branching on
// the position of the first mismatch. Unequal lengths return false
// immediately; equal-length inputs are always scanned in full.
func constantTimeCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
