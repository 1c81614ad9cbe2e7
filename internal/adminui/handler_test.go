package adminui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginPageRendersExpiredNotice(t *testing.T) {
	h, err := NewHandler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/admin/login?expired=true&redirect=%2Fadmin%2Fposts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "session has expired")
	assert.Contains(t, rec.Body.String(), "/admin/posts")
}

func TestLoginPageWithoutExpiredFlag(t *testing.T) {
	h, err := NewHandler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/admin/login", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "session has expired")
}

func TestDashboardRenders(t *testing.T) {
	h, err := NewHandler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Dashboard(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dashboard")
}
