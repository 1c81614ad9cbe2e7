package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie carrying the admin bearer token.
const CookieName = "admin-token"

const defaultTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("invalid or expired admin token")

// TokenService mints and verifies self-contained admin tokens. Tokens are
// HS256 JWTs embedding the subject and issue time; verification is stateless
// and only needs the shared secret, so the route guard can run without any
// state shared with the login handler.
type TokenService struct {
	secret     []byte
	ttl        time.Duration
	production bool
	now        func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, production bool) *TokenService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &TokenService{
		secret:     []byte(secret),
		ttl:        ttl,
		production: production,
		now:        time.Now,
	}
}

func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue mints a token for the given subject, valid from now for the
// configured window.
func (s *TokenService) Issue(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.New("empty token subject")
	}

	now := s.now().UTC()
	claims := jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
		"typ": "admin",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}

	return encoded, nil
}

// Verify checks signature, token type, and age. Malformed input, a bad tag,
// a future issue time, and expiry all collapse into ErrInvalidToken; nothing
// here panics on hostile input.
func (s *TokenService) Verify(tokenStr string) error {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}

	if tokenType, _ := claims["typ"].(string); tokenType != "admin" {
		return ErrInvalidToken
	}
	if subject, _ := claims["sub"].(string); strings.TrimSpace(subject) == "" {
		return ErrInvalidToken
	}

	return nil
}

// SetCookie attaches the token to the response with the session cookie
// attributes: HTTP-only, Secure in production, SameSite=Lax, path /.
func (s *TokenService) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
		Path:     "/",
	})
}

// ClearCookie expires the session cookie immediately.
func (s *TokenService) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Path:     "/",
	})
}
