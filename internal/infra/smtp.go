package infra

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/rs/zerolog/log"
)

// SMTPMailer sends alert and digest emails through a plain SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(host string, port int, username, password string) *SMTPMailer {
	from := username
	if from == "" {
		from = "alerts@aquafarm.local"
	}
	return &SMTPMailer{host: host, port: port, username: username, password: password, from: from}
}

// Send delivers an HTML email. Returns an error when SMTP is not configured
// so the worker retry path can surface it.
func (m *SMTPMailer) Send(to []string, subject, htmlBody string) error {
	if m.host == "" {
		return fmt.Errorf("smtp not configured")
	}
	e := email.NewEmail()
	e.From = m.from
	e.To = to
	e.Subject = subject
	e.HTML = []byte(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("sending email via %s: %w", addr, err)
	}
	log.Debug().Strs("to", to).Str("subject", subject).Msg("email sent")
	return nil
}
