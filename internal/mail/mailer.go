// Package mail provides the outbound mail transport used by the notification
// dispatcher.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/campuslink/platform/internal/logging"
)

// Mailer delivers a single message to one recipient.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer creates a mailer targeting the relay at addr (host:port).
func NewSMTPMailer(addr, from string) (*SMTPMailer, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("smtp address required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("from address required")
	}
	return &SMTPMailer{addr: addr, from: from}, nil
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer logs messages instead of sending them. Used in development and
// when no relay is configured.
type LogMailer struct {
	log *logging.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(log *logging.Logger) *LogMailer {
	if log == nil {
		log = logging.NewDefault("mail")
	}
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(to, subject, _ string) error {
	m.log.WithField("to", to).
		WithField("subject", subject).
		Info("mail suppressed (log mailer)")
	return nil
}
