package notify

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
	"time"
)

// Notifier delivers one rendered notification to one recipient contact.
type Notifier interface {
	Notify(recipient, subject, body string) error
}

// ConsoleNotifier logs notifications instead of sending them. Default in dev.
type ConsoleNotifier struct{}

func NewConsole() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (c *ConsoleNotifier) Notify(recipient, subject, body string) error {
	log.Printf("[notify] to=%s subject=%q body=%q", recipient, subject, body)
	return nil
}

// SMTPNotifier sends plain-text email via unauthenticated SMTP.
type SMTPNotifier struct {
	addr string
	from string
}

func NewSMTP(host, port, from string) *SMTPNotifier {
	if from == "" {
		from = "no-reply@glowbook.local"
	}
	return &SMTPNotifier{
		addr: fmt.Sprintf("%s:%s", host, port),
		from: from,
	}
}

func (s *SMTPNotifier) Notify(recipient, subject, body string) error {
	msg := buildMessage(s.from, recipient, subject, body)
	return smtp.SendMail(s.addr, nil, s.from, []string{recipient}, []byte(msg))
}

func buildMessage(from, to, subject, body string) string {
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		subject,
		body,
	)
}

func humanTime(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
