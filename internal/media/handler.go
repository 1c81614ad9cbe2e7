package media

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
)

type Handler struct {
	store *Cloudinary
}

func NewHandler(store *Cloudinary) *Handler {
	return &Handler{store: store}
}

type uploadRequest struct {
	Image string `json:"image"`
}

type deleteRequest struct {
	PublicID string `json:"publicId"`
}

// Upload handles POST /admin/api/media. The body carries a data URI or a
// fetchable URL in the image field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Media uploads are not configured")
		return
	}

	var req uploadRequest
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		writeError(w, http.StatusBadRequest, "Image is required")
		return
	}

	result, err := h.store.UploadImage(r.Context(), req.Image)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusBadGateway, "Image upload failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"url":      result.SecureURL,
		"publicId": result.PublicID,
	})
}

// Delete handles DELETE /admin/api/media.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Media uploads are not configured")
		return
	}

	var req deleteRequest
	r.Body = http.MaxBytesReader(w, r.Body, 4<<10)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.PublicID) == "" {
		writeError(w, http.StatusBadRequest, "Public id is required")
		return
	}

	if err := h.store.DeleteImage(r.Context(), req.PublicID); err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusBadGateway, "Image deletion failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
