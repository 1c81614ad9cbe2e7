package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// GuardConfig describes the protected area. Everything under Prefix is gated
// except LoginPath, which is the redirect target for unauthenticated
// requests.
type GuardConfig struct {
	Prefix    string
	LoginPath string
	BaseURL   *url.URL
}

func DefaultGuardConfig(baseURL *url.URL) GuardConfig {
	return GuardConfig{
		Prefix:    "/admin",
		LoginPath: "/admin/login",
		BaseURL:   baseURL,
	}
}

// Guard gates the protected prefix by re-verifying the cookie token on every
// request. It holds no state shared with the login handler; a token the
// service issued yesterday still verifies here after a restart.
//
// Per request it lands in one of three outcomes: pass through (valid session,
// or a path the guard does not cover), redirect to login (no session), or
// clear-cookie-and-redirect with expired=true (session present but invalid).
func Guard(tokens *TokenService, cfg GuardConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !strings.HasPrefix(path, cfg.Prefix) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, _ := r.Cookie(CookieName)
		valid := cookie != nil && tokens.Verify(cookie.Value) == nil

		if path == cfg.LoginPath {
			if valid {
				// Already authenticated; never show the login form.
				target := SanitizeRedirect(r.URL.Query().Get("redirect"), cfg.BaseURL, cfg.Prefix)
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if cookie == nil {
			http.Redirect(w, r, loginRedirect(cfg.LoginPath, path, false), http.StatusFound)
			return
		}

		if !valid {
			tokens.ClearCookie(w)
			http.Redirect(w, r, loginRedirect(cfg.LoginPath, path, true), http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loginRedirect(loginPath, returnTo string, expired bool) string {
	query := url.Values{}
	query.Set("redirect", returnTo)
	if expired {
		query.Set("expired", "true")
	}
	return loginPath + "?" + query.Encode()
}
