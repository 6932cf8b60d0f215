// Package mailer delivers transactional email. Delivery is best-effort from
// the caller's perspective; the reset endpoint never leaks whether a message
// went out.
package mailer

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Mailer sends a password reset email carrying the reset link.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, link string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string // host:port
	auth smtp.Auth
	from string
}

// NewSMTPMailer creates a mailer for the given relay. Username may be empty
// for unauthenticated relays.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
	}
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	msg := buildResetMessage(m.from, to, link)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

func buildResetMessage(from, to, link string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Reset your password\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(fmt.Sprintf(`<a href=%q>Click here to reset your password!</a>`, link))
	b.WriteString("\r\n")
	return []byte(b.String())
}

// LogMailer logs the reset link instead of sending it. Used when no SMTP host
// is configured (local development).
type LogMailer struct{}

func (LogMailer) SendPasswordReset(ctx context.Context, to, link string) error {
	log.Printf("[MAILER] password reset for %s: %s", to, link)
	return nil
}
