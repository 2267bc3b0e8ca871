// Package mailer sends transactional email. Resend is used when an API key is
// configured, SMTP when a host is configured, and otherwise messages are only logged.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"handrating-backend/internal/config"
)

// Message is a single HTML email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

func (m Message) validate(from string) error {
	if m.To == "" {
		return errors.New("recipient email address cannot be empty")
	}
	if from == "" {
		return errors.New("sender email address cannot be empty")
	}
	if m.Subject == "" {
		return errors.New("email subject cannot be empty")
	}
	return nil
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New picks the transport from configuration.
func New(cfg *config.Config, log *zap.Logger) Mailer {
	switch {
	case cfg.ResendAPIKey != "":
		log.Info("mailer: using Resend")
		return NewResendMailer(cfg.ResendAPIKey, cfg.MailFrom)
	case cfg.SMTPHost != "":
		log.Info("mailer: using SMTP", zap.String("host", cfg.SMTPHost))
		return &SMTPMailer{Host: cfg.SMTPHost, Port: cfg.SMTPPort, User: cfg.SMTPUser, Pass: cfg.SMTPPass, From: cfg.MailFrom}
	default:
		log.Warn("mailer: RESEND_API_KEY and SMTP_HOST not set, emails will only be logged")
		return &LogMailer{Log: log}
	}
}

// ResendMailer sends through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey), from: from}
}

func (r *ResendMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(r.from); err != nil {
		return err
	}
	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// SMTPMailer sends with PLAIN auth over net/smtp.
type SMTPMailer struct {
	Host, Port string
	User, Pass string
	From       string
}

func (s *SMTPMailer) Send(_ context.Context, msg Message) error {
	if err := msg.validate(s.From); err != nil {
		return err
	}
	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}
	if err := smtp.SendMail(s.Host+":"+s.Port, auth, s.From, []string{msg.To}, buildMIME(s.From, msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func buildMIME(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.HTML)
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogMailer only logs the message. Used in development.
type LogMailer struct {
	Log *zap.Logger
}

func (l *LogMailer) Send(_ context.Context, msg Message) error {
	l.Log.Info("email not sent, no transport configured",
		zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}
