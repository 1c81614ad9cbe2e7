package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	gomail "github.com/wneessen/go-mail"

	"portfolio-serverless/internal/contact"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

// Config is the SMTP relay configuration. Username/Password are optional for
// relays that do not authenticate (local dev).
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Receiver string
	SiteURL  string
}

// Mailer sends contact-form mail through an SMTP relay: one notification to
// the site owner and one acknowledgment back to the visitor.
type Mailer struct {
	client       *gomail.Client
	from         string
	receiver     string
	siteURL      string
	notification *template.Template
	ack          *template.Template
}

func NewMailer(cfg Config) (*Mailer, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		return nil, fmt.Errorf("missing smtp host")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("missing smtp sender address")
	}
	if strings.TrimSpace(cfg.Receiver) == "" {
		cfg.Receiver = cfg.From
	}

	options := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		options = append(options,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, options...)
	if err != nil {
		return nil, fmt.Errorf("init smtp client: %w", err)
	}

	templates, err := template.ParseFS(templateFiles, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}

	return &Mailer{
		client:       client,
		from:         cfg.From,
		receiver:     strings.TrimSpace(cfg.Receiver),
		siteURL:      strings.TrimSpace(cfg.SiteURL),
		notification: templates.Lookup("contact_notification.html.tmpl"),
		ack:          templates.Lookup("contact_ack.html.tmpl"),
	}, nil
}

// SendContact delivers both mails in one SMTP session.
func (m *Mailer) SendContact(ctx context.Context, msg contact.Message) error {
	notification, err := m.buildNotification(msg)
	if err != nil {
		return err
	}
	ack, err := m.buildAck(msg)
	if err != nil {
		return err
	}

	if err := m.client.DialAndSendWithContext(ctx, notification, ack); err != nil {
		return fmt.Errorf("send contact mail: %w", err)
	}

	return nil
}

func (m *Mailer) buildNotification(msg contact.Message) (*gomail.Msg, error) {
	var body bytes.Buffer
	if err := m.notification.Execute(&body, msg); err != nil {
		return nil, fmt.Errorf("render notification: %w", err)
	}

	out := gomail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("notification sender: %w", err)
	}
	if err := out.To(m.receiver); err != nil {
		return nil, fmt.Errorf("notification recipient: %w", err)
	}
	if err := out.ReplyTo(msg.Email); err != nil {
		return nil, fmt.Errorf("notification reply-to: %w", err)
	}
	out.Subject("Portfolio Contact: " + msg.Subject)
	out.SetBodyString(gomail.TypeTextHTML, body.String())

	return out, nil
}

func (m *Mailer) buildAck(msg contact.Message) (*gomail.Msg, error) {
	var body bytes.Buffer
	data := struct {
		contact.Message
		SiteURL string
	}{Message: msg, SiteURL: m.siteURL}
	if err := m.ack.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("render acknowledgment: %w", err)
	}

	out := gomail.NewMsg()
	if err := out.From(m.from); err != nil {
		return nil, fmt.Errorf("acknowledgment sender: %w", err)
	}
	if err := out.To(msg.Email); err != nil {
		return nil, fmt.Errorf("acknowledgment recipient: %w", err)
	}
	out.Subject("Thank you for contacting me! 🚀")
	out.SetBodyString(gomail.TypeTextHTML, body.String())

	return out, nil
}
