package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// SMTPSender delivers email through an authenticated SMTP relay
type SMTPSender struct {
	Host     string
	Port     int
	User     string
	Password string

	// send is swapped in tests
	send func(m *gomail.Message) error
}

func NewSMTPSender(host string, port int, user, password string) *SMTPSender {
	s := &SMTPSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
	}
	s.send = func(m *gomail.Message) error {
		return gomail.NewDialer(s.Host, s.Port, s.User, s.Password).DialAndSend(m)
	}
	return s
}

func (s *SMTPSender) Configured() bool {
	return s.Host != "" && s.User != "" && s.Password != ""
}

// Send returns the Message-ID it stamped on the email
func (s *SMTPSender) Send(ctx context.Context, email Email) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m := gomail.NewMessage()
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), senderDomain(email.FromAddress))
	m.SetHeader("Message-ID", messageID)
	m.SetAddressHeader("From", email.FromAddress, email.FromName)
	m.SetHeader("To", email.To)
	if email.ReplyTo != "" && strings.Contains(email.ReplyTo, "@") {
		m.SetHeader("Reply-To", email.ReplyTo)
	}
	if email.Bcc != "" && strings.Contains(email.Bcc, "@") {
		m.SetHeader("Bcc", email.Bcc)
	}
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/plain", email.Text)
	if email.HTML != "" {
		m.AddAlternative("text/html", email.HTML)
	}

	if err := s.send(m); err != nil {
		return "", fmt.Errorf("failed to send email via SMTP: %w", err)
	}
	return messageID, nil
}

func senderDomain(address string) string {
	if _, domain, ok := strings.Cut(address, "@"); ok && domain != "" {
		return domain
	}
	return "leadloop.local"
}
