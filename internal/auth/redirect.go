package auth

import (
	"net/url"
	"strings"
)

// SanitizeRedirect resolves a client-supplied redirect target against the
// site base URL and returns a same-origin path under the protected prefix.
// Anything else (parse failure, foreign origin, path outside the prefix)
// falls back to the prefix itself, so an attacker cannot bounce a logged-in
// admin off-site. Never fails: the fallback covers every bad input.
func SanitizeRedirect(candidate string, base *url.URL, prefix string) string {
	if base == nil {
		return prefix
	}

	ref, err := url.Parse(strings.TrimSpace(candidate))
	if err != nil {
		return prefix
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != base.Scheme || resolved.Host != base.Host {
		return prefix
	}
	if !strings.HasPrefix(resolved.Path, prefix) {
		return prefix
	}

	if resolved.RawQuery != "" {
		return resolved.Path + "?" + resolved.RawQuery
	}
	return resolved.Path
}
