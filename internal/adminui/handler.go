package adminui

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/getsentry/sentry-go"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

// Handler serves the admin HTML shells. The pages are deliberately thin; the
// browser talks to the JSON API under /admin/api once loaded.
type Handler struct {
	templates *template.Template
}

func NewHandler() (*Handler, error) {
	templates, err := template.ParseFS(templateFiles, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	return &Handler{templates: templates}, nil
}

type loginPage struct {
	Expired  bool
	Redirect string
}

// Login handles GET /admin/login. The page itself is public; submitting the
// form posts to /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	page := loginPage{
		Expired:  r.URL.Query().Get("expired") == "true",
		Redirect: r.URL.Query().Get("redirect"),
	}
	h.render(w, "login.html.tmpl", page)
}

// Dashboard handles GET /admin. The route guard has already verified the
// session cookie by the time this runs.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, "dashboard.html.tmpl", nil)
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		sentry.CaptureException(err)
	}
}
