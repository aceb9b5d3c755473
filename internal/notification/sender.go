package notification

import (
	"context"
	"fmt"
)

// Channel constants for delivery methods
const (
	ChannelSMTP     = "smtp"
	ChannelSendGrid = "sendgrid"
	ChannelLog      = "log"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a single message over one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Channel() string
}

// Error reports a failed delivery. It is logged by callers, never shown to users.
type Error struct {
	Channel string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("notification via %s failed: %v", e.Channel, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
