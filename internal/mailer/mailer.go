// Package mailer sends the back office e-mails through the SendGrid API.
package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// DefaultBaseURL is the SendGrid API host.
const DefaultBaseURL = "https://api.sendgrid.com"

const sendEndpoint = "/v3/mail/send"

// Config holds the SendGrid credentials and the sender identity.
type Config struct {
	APIKey      string
	FromName    string
	FromAddress string
	BaseURL     string
}

// Redacted returns a copy of c with the API key masked.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "***"
	}
	return c
}

// LogValue implements slog.LogValuer so the API key never reaches the logs.
func (c Config) LogValue() slog.Value {
	type plain Config
	return slog.AnyValue(plain(c.Redacted()))
}

// Attachment is a file attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a single e-mail to one recipient.
type Message struct {
	ToName      string
	ToAddress   string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer delivers messages. Without an API key, delivery is disabled and Send fails with ErrDisabled.
type Mailer struct {
	cfg Config
}

// ErrNoRecipient is returned when a message has no destination address.
var ErrNoRecipient = errors.New("message has no recipient")

// ErrDisabled is returned when a message is not delivered because no API key is configured.
var ErrDisabled = errors.New("e-mail delivery is disabled")

// New returns a mailer using cfg.
func New(cfg Config) *Mailer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Mailer{cfg: cfg}
}

// Enabled reports whether messages are actually delivered.
func (m *Mailer) Enabled() bool {
	return m.cfg.APIKey != ""
}

// Send delivers msg, retrying when the API is rate limited.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if msg.ToAddress == "" {
		return ErrNoRecipient
	}
	if !m.Enabled() {
		slog.Warn("E-mail delivery is disabled, skipping message", "to", msg.ToAddress, "subject", msg.Subject)
		return ErrDisabled
	}

	req := sendgrid.GetRequest(m.cfg.APIKey, sendEndpoint, m.cfg.BaseURL)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(m.build(msg))

	resp, err := sendgrid.MakeRequestRetryWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("could not send e-mail to %s: %v", msg.ToAddress, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("could not send e-mail to %s: status %d: %s", msg.ToAddress, resp.StatusCode, resp.Body)
	}

	slog.Info("E-mail sent", "to", msg.ToAddress, "subject", msg.Subject, "status", resp.StatusCode)
	return nil
}

func (m *Mailer) build(msg Message) *mail.SGMailV3 {
	v3 := mail.NewV3Mail()
	v3.SetFrom(mail.NewEmail(m.cfg.FromName, m.cfg.FromAddress))
	v3.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.ToAddress))
	v3.AddPersonalizations(p)
	v3.AddContent(mail.NewContent("text/plain", msg.Body))

	for _, a := range msg.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		att.SetType(a.ContentType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		v3.AddAttachment(att)
	}
	return v3
}
