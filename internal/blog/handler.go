package blog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

const maxJSONBodyBytes = 1 << 20

// Store is the content-store surface the handlers need; the Postgres
// Repository implements it.
type Store interface {
	List(ctx context.Context, includeDrafts bool) ([]Post, error)
	GetBySlug(ctx context.Context, slug string, publishedOnly bool) (Post, error)
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Create(ctx context.Context, input PostInput) (Post, error)
	Update(ctx context.Context, id string, input PostInput) (Post, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, slug string) error
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// ListPublished handles GET /api/blog.
func (h *Handler) ListPublished(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.List(r.Context(), false)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// GetBySlug handles GET /api/blog/{slug} and counts the view.
func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if !slugRegex.MatchString(slug) {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}

	post, err := h.store.GetBySlug(r.Context(), slug, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to load post")
		return
	}

	if err := h.store.IncrementViews(r.Context(), slug); err != nil {
		// The read already succeeded; losing a view count is not worth a 500.
		sentry.CaptureException(err)
	} else {
		post.Views++
	}

	writeJSON(w, http.StatusOK, post)
}

// ListAll handles GET /admin/api/posts, drafts included.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.List(r.Context(), true)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// Create handles POST /admin/api/posts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	exists, err := h.store.SlugExists(r.Context(), input.Slug, "")
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}
	if exists {
		writeError(w, http.StatusBadRequest, "slug already exists")
		return
	}

	post, err := h.store.Create(r.Context(), input)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// Update handles PUT /admin/api/posts/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	exists, err := h.store.SlugExists(r.Context(), input.Slug, id)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update post")
		return
	}
	if exists {
		writeError(w, http.StatusBadRequest, "slug already exists")
		return
	}

	post, err := h.store.Update(r.Context(), id, input)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to update post")
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /admin/api/posts/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseInput(w http.ResponseWriter, r *http.Request) (PostInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input PostInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return PostInput{}, false
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Slug = strings.TrimSpace(strings.ToLower(input.Slug))
	input.Description = strings.TrimSpace(input.Description)
	input.Excerpt = strings.TrimSpace(input.Excerpt)
	input.Category = strings.TrimSpace(input.Category)

	if input.Title == "" || input.Slug == "" || strings.TrimSpace(input.Content) == "" {
		writeError(w, http.StatusBadRequest, "title, slug, and content are required")
		return PostInput{}, false
	}
	if !utf8.ValidString(input.Title) || len(input.Title) > 200 {
		writeError(w, http.StatusBadRequest, "title is invalid")
		return PostInput{}, false
	}
	if len(input.Slug) > 120 || !slugRegex.MatchString(input.Slug) {
		writeError(w, http.StatusBadRequest, "slug must be lowercase letters, digits, and hyphens")
		return PostInput{}, false
	}
	if !utf8.ValidString(input.Description) || len(input.Description) > 500 {
		writeError(w, http.StatusBadRequest, "description is invalid")
		return PostInput{}, false
	}
	if input.Image != nil && strings.TrimSpace(input.Image.URL) == "" {
		writeError(w, http.StatusBadRequest, "image url is required when image is set")
		return PostInput{}, false
	}
	if len(input.Tags) > 20 {
		writeError(w, http.StatusBadRequest, "too many tags")
		return PostInput{}, false
	}

	if input.Category == "" {
		input.Category = "Uncategorized"
	}
	if input.ReadTime <= 0 {
		input.ReadTime = 5
	}

	return input, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
