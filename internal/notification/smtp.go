package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	return &SMTPSender{
		from:   from,
		dialer: gomail.NewDialer(host, port, user, password),
	}
}

func (s *SMTPSender) Channel() string { return ChannelSMTP }

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email via SMTP: %w", err)
	}
	return nil
}
