package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	mail "gopkg.in/mail.v2"
)

// SMTPSender sends plain-text mail with STARTTLS, logging in as the sender address.
type SMTPSender struct {
	host     string
	port     int
	from     string
	password string
	to       []string
}

func NewSMTPSender(cfg Config) *SMTPSender {
	port := cfg.Port
	if port <= 0 {
		port = 587
	}
	return &SMTPSender{
		host:     strings.TrimSpace(cfg.Host),
		port:     port,
		from:     strings.TrimSpace(cfg.From),
		password: cfg.Password,
		to:       splitRecipients(cfg.To),
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(s.to) == 0 {
		return fmt.Errorf("no recipients configured")
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	dialer := mail.NewDialer(s.host, s.port, s.from, s.password)
	dialer.StartTLSPolicy = mail.MandatoryStartTLS
	dialer.Timeout = 30 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < dialer.Timeout {
			dialer.Timeout = remaining
		}
	}

	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send via %s:%d: %w", s.host, s.port, err)
	}
	return nil
}

func splitRecipients(value string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
