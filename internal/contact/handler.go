package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const maxJSONBodyBytes = 64 << 10

// Publisher hands a contact message off for asynchronous delivery. The
// QStash client implements it; DirectDispatcher is the synchronous dev
// fallback.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Mailer sends the owner notification and the visitor acknowledgment for a
// contact message.
type Mailer interface {
	SendContact(ctx context.Context, msg Message) error
}

type Handler struct {
	publisher Publisher
}

func NewHandler(publisher Publisher) *Handler {
	return &Handler{publisher: publisher}
}

// Submit handles POST /api/contact: validate, enqueue, acknowledge. Delivery
// happens in the email worker so a slow SMTP relay never blocks the form.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		writeError(w, http.StatusServiceUnavailable, "contact delivery is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var msg Message
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Body = strings.TrimSpace(msg.Body)

	if msg.Name == "" || msg.Email == "" || msg.Subject == "" || msg.Body == "" {
		writeError(w, http.StatusBadRequest, "All fields are required.")
		return
	}
	if !emailRegex.MatchString(msg.Email) {
		writeError(w, http.StatusBadRequest, "Email address is invalid.")
		return
	}
	if !utf8.ValidString(msg.Name) || len(msg.Name) > 100 ||
		!utf8.ValidString(msg.Subject) || len(msg.Subject) > 200 ||
		!utf8.ValidString(msg.Body) || len(msg.Body) > 5000 {
		writeError(w, http.StatusBadRequest, "Message is too long.")
		return
	}

	if err := h.publisher.PublishJSON(r.Context(), msg); err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusBadGateway, "Failed to send message.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Message sent successfully!"})
}

// DirectDispatcher delivers contact messages straight to the mailer, for
// environments without a queue broker.
type DirectDispatcher struct {
	mailer Mailer
}

func NewDirectDispatcher(mailer Mailer) *DirectDispatcher {
	return &DirectDispatcher{mailer: mailer}
}

func (d *DirectDispatcher) PublishJSON(ctx context.Context, body any) error {
	msg, ok := body.(Message)
	if !ok {
		return errors.New("direct dispatch supports contact messages only")
	}
	return d.mailer.SendContact(ctx, msg)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
