package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"growly/internal/config"
	"growly/internal/domain/lead"
	"growly/internal/pkg/logger"
	"growly/internal/pkg/phone"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/new_lead.html.tmpl"))
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/new_lead.txt.tmpl"))
)

type newLeadData struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	BusinessType string
	Message      string
	SubmittedAt  string
	IP           string
}

// LeadNotifier emails the sales inbox whenever a lead is submitted.
type LeadNotifier struct {
	sender Sender
	to     string
	region string
}

func NewLeadNotifier(sender Sender, to, phoneRegion string) *LeadNotifier {
	return &LeadNotifier{
		sender: sender,
		to:     to,
		region: phoneRegion,
	}
}

// FromConfig picks SendGrid, then SMTP, then the log sender. It returns nil
// when no recipient is configured.
func FromConfig(cfg config.NotifyConfig, log logger.Logger) *LeadNotifier {
	if !cfg.Enabled() {
		return nil
	}

	var sender Sender
	switch {
	case cfg.SendGridAPIKey != "":
		sender = NewSendGridSender(cfg.SendGridAPIKey, cfg.From)
	case cfg.SMTPHost != "":
		sender = NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.From)
	default:
		sender = NewLogSender(log)
	}
	return NewLeadNotifier(sender, cfg.To, cfg.PhoneRegion)
}

func (n *LeadNotifier) Channel() string {
	return n.sender.Channel()
}

// NotifyNewLead renders the new-lead email and hands it to the sender.
func (n *LeadNotifier) NotifyNewLead(ctx context.Context, l *lead.Lead) error {
	msg, err := n.render(l)
	if err != nil {
		return &Error{Channel: n.Channel(), Err: err}
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return &Error{Channel: n.Channel(), Err: err}
	}
	return nil
}

func (n *LeadNotifier) render(l *lead.Lead) (Message, error) {
	data := newLeadData{
		ID:           l.ID,
		Name:         l.Name,
		Email:        l.Email,
		Phone:        phone.Display(l.Phone, n.region),
		BusinessType: string(l.BusinessType),
		Message:      l.Message,
		SubmittedAt:  l.CreatedAt.UTC().Format(time.RFC1123),
		IP:           l.IPAddress,
	}

	var html, text bytes.Buffer
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html body: %w", err)
	}
	if err := textTemplate.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text body: %w", err)
	}

	return Message{
		To:      n.to,
		Subject: fmt.Sprintf("New lead: %s (%s)", l.Name, l.BusinessType),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
