package notification

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
	fromName         = "Growly"
)

// SendGridSender sends mail through the SendGrid v3 API.
type SendGridSender struct {
	apiKey string
	from   string
	host   string
}

func NewSendGridSender(apiKey, from string) *SendGridSender {
	return &SendGridSender{
		apiKey: apiKey,
		from:   from,
		host:   sendGridHost,
	}
}

func (s *SendGridSender) Channel() string { return ChannelSendGrid }

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	from := mail.NewEmail(fromName, s.from)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	client := sendgrid.NewSendClient(s.apiKey)
	client.Request.BaseURL = s.host + sendGridEndpoint

	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned error status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
