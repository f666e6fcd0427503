package notify

import (
	"context"
	"errors"
)

// ErrDisabled is returned by senders whose channel is not configured
var ErrDisabled = errors.New("channel disabled")

type Email struct {
	To      string
	ToName  string
	Subject string
	Text    string
}

// EmailSender delivers a single email and returns the provider message id
type EmailSender interface {
	SendEmail(ctx context.Context, msg Email) (string, error)
}

// WhatsAppSender delivers a single text message to a phone number
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, phone, text string) (string, error)
}
