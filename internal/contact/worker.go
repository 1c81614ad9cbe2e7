package contact

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
)

// Worker is the queue callback at POST /api/email-worker. The queue forwards
// a bearer secret so random POSTs cannot trigger mail.
type Worker struct {
	mailer Mailer
	secret string
}

func NewWorker(mailer Mailer, secret string) *Worker {
	return &Worker{mailer: mailer, secret: strings.TrimSpace(secret)}
}

func (h *Worker) Handle(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" || h.mailer == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.secret {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if msg.Name == "" || msg.Email == "" || msg.Subject == "" || msg.Body == "" {
		writeError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	if err := h.mailer.SendContact(r.Context(), msg); err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusBadGateway, "failed to send email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Email sent."})
}
