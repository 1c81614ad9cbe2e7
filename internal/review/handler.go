package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const maxJSONBodyBytes = 64 << 10

// Store is the review surface the handlers need.
type Store interface {
	ListApproved(ctx context.Context, blogSlug string) ([]Review, error)
	ListAll(ctx context.Context) ([]Review, error)
	Create(ctx context.Context, blogSlug string, input ReviewInput) (Review, error)
	Approve(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	PurgeStaleUnapproved(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// ListForPost handles GET /api/blog/{slug}/reviews (approved only).
func (h *Handler) ListForPost(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.ListApproved(r.Context(), r.PathValue("slug"))
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}

	writeJSON(w, http.StatusOK, reviews)
}

// Submit handles POST /api/blog/{slug}/reviews. New reviews are held for
// moderation.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input ReviewInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Comment = strings.TrimSpace(input.Comment)

	if input.Name == "" || !utf8.ValidString(input.Name) || len(input.Name) > 100 {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if input.Email != "" && !emailRegex.MatchString(input.Email) {
		writeError(w, http.StatusBadRequest, "email is invalid")
		return
	}
	if input.Rating < 1 || input.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	if input.Comment == "" || !utf8.ValidString(input.Comment) || len(input.Comment) > 2000 {
		writeError(w, http.StatusBadRequest, "comment is required")
		return
	}

	review, err := h.store.Create(r.Context(), r.PathValue("slug"), input)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to submit review")
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

// ListAll handles GET /admin/api/reviews, pending ones included.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.ListAll(r.Context())
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}

	writeJSON(w, http.StatusOK, reviews)
}

// Approve handles POST /admin/api/reviews/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	if err := h.store.Approve(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to approve review")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"approved": true})
}

// Delete handles DELETE /admin/api/reviews/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid review id")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete review")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
