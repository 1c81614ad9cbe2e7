package maintenance

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"portfolio-serverless/internal/auth"
	"portfolio-serverless/internal/observability"
)

// ReviewPurger deletes unapproved reviews older than the cutoff.
type ReviewPurger interface {
	PurgeStaleUnapproved(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

type CleanupHandler struct {
	attempts        auth.AttemptStore
	reviews         ReviewPurger
	logger          *observability.Logger
	cronSecret      string
	reviewRetention time.Duration
	batchSize       int
}

func NewCleanupHandler(
	attempts auth.AttemptStore,
	reviews ReviewPurger,
	logger *observability.Logger,
	cronSecret string,
	reviewRetention time.Duration,
	batchSize int,
) *CleanupHandler {
	return &CleanupHandler{
		attempts:        attempts,
		reviews:         reviews,
		logger:          logger,
		cronSecret:      strings.TrimSpace(cronSecret),
		reviewRetention: reviewRetention,
		batchSize:       batchSize,
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	sweptAttempts, err := h.attempts.Sweep(r.Context())
	if err != nil {
		h.logger.Error("maintenance_sweep_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cleanup failed"})
		return
	}

	cutoff := time.Now().Add(-h.reviewRetention)
	purgedReviews, err := h.reviews.PurgeStaleUnapproved(r.Context(), cutoff, h.batchSize)
	if err != nil {
		h.logger.Error("maintenance_cleanup_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cleanup failed"})
		return
	}

	h.logger.Info("maintenance_cleanup_completed", map[string]any{
		"swept_login_attempts": sweptAttempts,
		"purged_reviews":       purgedReviews,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"result": map[string]int64{
			"sweptLoginAttempts": int64(sweptAttempts),
			"purgedReviews":      purgedReviews,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
