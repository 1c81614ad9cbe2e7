package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

const maxJSONBodyBytes = 1 << 20

// Handler exposes the login, session-check, and logout endpoints.
type Handler struct {
	credentials Credentials
	tokens      *TokenService
	attempts    AttemptStore
	baseURL     *url.URL
	landingPath string
}

func NewHandler(credentials Credentials, tokens *TokenService, attempts AttemptStore, baseURL *url.URL, landingPath string) *Handler {
	return &Handler{
		credentials: credentials,
		tokens:      tokens,
		attempts:    attempts,
		baseURL:     baseURL,
		landingPath: landingPath,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Redirect string `json:"redirect,omitempty"`
}

// Login handles POST /api/auth/login. The rate-limit check runs before
// anything else so a blocked client cannot keep growing its counter, and the
// attempt is recorded with the credential outcome afterwards (success clears
// the key).
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	clientKey := ClientIP(r)

	decision, err := h.attempts.Check(r.Context(), clientKey)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "An error occurred during login")
		return
	}
	if !decision.Allowed {
		resetAt := decision.ResetAt
		if resetAt.IsZero() {
			resetAt = time.Now()
		}
		waitMinutes := int(time.Until(resetAt).Minutes()) + 1
		if waitMinutes < 1 {
			waitMinutes = 1
		}
		plural := ""
		if waitMinutes > 1 {
			plural = "s"
		}
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":     "Too many login attempts",
			"message":   fmt.Sprintf("Please try again in %d minute%s", waitMinutes, plural),
			"resetTime": resetAt.UnixMilli(),
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var body loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	body.Username = strings.TrimSpace(body.Username)
	if body.Username == "" {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}
	if body.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}

	ok := h.credentials.Verify(body.Username, body.Password)

	if err := h.attempts.Record(r.Context(), clientKey, ok); err != nil {
		sentry.CaptureException(err)
	}

	if !ok {
		remaining := 0
		if after, err := h.attempts.Check(r.Context(), clientKey); err == nil {
			remaining = after.Remaining
		}
		// Generic message: never reveal which field was wrong.
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":             "Invalid credentials",
			"remainingAttempts": remaining,
		})
		return
	}

	token, err := h.tokens.Issue(body.Username)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "An error occurred during login")
		return
	}

	redirectTo := h.landingPath
	if body.Redirect != "" {
		redirectTo = SanitizeRedirect(body.Redirect, h.baseURL, h.landingPath)
	}

	h.tokens.SetCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Login successful",
		"redirect": redirectTo,
	})
}

// Session handles GET /api/auth/session. The cookie is fully verified, not
// just checked for presence, so the answer always agrees with the route
// guard.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	authenticated := false
	if cookie, err := r.Cookie(CookieName); err == nil {
		authenticated = h.tokens.Verify(cookie.Value) == nil
	}

	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": authenticated})
}

// Logout handles POST /api/auth/logout. Clearing the cookie is the only
// invalidation the stateless session model has; it always succeeds.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.tokens.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged out successfully",
	})
}

// ClientIP derives the rate-limit key for a request. Proxy headers win over
// the socket address since the service runs behind an edge proxy in
// production.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
