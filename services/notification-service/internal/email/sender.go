package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

type Sender interface {
	Send(to string, subject string, htmlBody string) error
}

// SMTPSender sends HTML email over SMTP. With a username it uses PLAIN
// auth; without one it speaks to open relays (Mailpit in dev).
type SMTPSender struct {
	addr string
	host string
	from string
	auth smtp.Auth
}

func NewSMTPSender(host string, port string, from string, username string, password string) *SMTPSender {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	from = strings.TrimSpace(from)
	username = strings.TrimSpace(username)
	if from == "" {
		from = "no-reply@trgnexus.local"
	}
	s := &SMTPSender{
		addr: fmt.Sprintf("%s:%s", host, port),
		host: host,
		from: from,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

func (s *SMTPSender) Send(to string, subject string, htmlBody string) error {
	msg := buildMessage(s.from, to, subject, htmlBody)
	return smtp.SendMail(s.addr, s.auth, s.from, []string{to}, []byte(msg))
}

func buildMessage(from, to, subject, htmlBody string) string {
	// Minimal RFC 5322 message; enough for Mailpit and most SMTP relays.
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n",
		from,
		to,
		subject,
		htmlBody,
	)
}
