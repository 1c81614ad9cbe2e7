package auth

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRedirect(t *testing.T) {
	base, err := url.Parse("https://site.com")
	require.NoError(t, err)

	cases := []struct {
		name      string
		candidate string
		want      string
	}{
		{"foreign origin", "https://evil.com/x", "/admin"},
		{"admin path unchanged", "/admin/blog", "/admin/blog"},
		{"outside prefix", "/not-admin", "/admin"},
		{"same origin absolute", "https://site.com/admin/blog/new", "/admin/blog/new"},
		{"query preserved", "/admin/blog?page=2", "/admin/blog?page=2"},
		{"protocol relative", "//evil.com/admin", "/admin"},
		{"empty", "", "/admin"},
		{"unparseable", "https://%zz", "/admin"},
		{"scheme-only garbage", "javascript:alert(1)", "/admin"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeRedirect(tc.candidate, base, "/admin"))
		})
	}
}

func TestSanitizeRedirectNilBase(t *testing.T) {
	assert.Equal(t, "/admin", SanitizeRedirect("/admin/blog", nil, "/admin"))
}
