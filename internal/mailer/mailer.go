// Package mailer sends booking confirmation email to prospects.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// Confirmation is the content of a booking confirmation email.
type Confirmation struct {
	To          string
	Name        string
	Company     string
	SlotStart   time.Time
	DisplayTime string
	DisplayDate string
	MeetLink    string
}

// Mailer delivers booking confirmations. Failures are logged by callers and
// never surface to the prospect.
type Mailer interface {
	SendConfirmation(ctx context.Context, c Confirmation) error
}

// Noop is used when SMTP is not configured.
type Noop struct{}

func (Noop) SendConfirmation(ctx context.Context, c Confirmation) error { return nil }

// SMTP sends confirmations through a plain SMTP relay.
type SMTP struct {
	addr string
	auth smtp.Auth
	from string

	// send is swappable for tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(host string, port int, username, password, from string) *SMTP {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTP{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: from,
		send: smtp.SendMail,
	}
}

func (m *SMTP) SendConfirmation(ctx context.Context, c Confirmation) error {
	msg := buildMessage(m.from, c)
	if err := m.send(m.addr, m.auth, m.from, []string{c.To}, msg); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}

func buildMessage(from string, c Confirmation) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", c.To)
	fmt.Fprintf(&b, "Subject: Your demo is booked for %s\r\n", c.DisplayDate)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", c.Name)
	fmt.Fprintf(&b, "Your demo is confirmed for %s at %s.\r\n\r\n", c.DisplayDate, c.DisplayTime)
	if c.MeetLink != "" {
		fmt.Fprintf(&b, "Join here: %s\r\n\r\n", c.MeetLink)
	}
	b.WriteString("See you there!\r\n")
	return []byte(b.String())
}
