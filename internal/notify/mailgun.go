package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"go.uber.org/zap"

	"github.com/justsurfingit/KarirConnect/internal/config"
)

// MailgunSender sends emails via Mailgun API.
type MailgunSender struct {
	cfg    config.EmailConfig
	log    *zap.Logger
	client *mailgun.MailgunImpl
}

// NewMailgunSender returns nil if Mailgun is not configured.
func NewMailgunSender(cfg config.EmailConfig, log *zap.Logger) *MailgunSender {
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
		return nil
	}

	client := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey)
	if cfg.MailgunAPIBase != "" {
		client.SetAPIBase(cfg.MailgunAPIBase)
	}

	return &MailgunSender{
		cfg:    cfg,
		log:    log.Named("notify.mailgun"),
		client: client,
	}
}

func (s *MailgunSender) validate() error {
	if s.cfg.FromEmail == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required")
	}
	if s.cfg.FromName == "" {
		return fmt.Errorf("EMAIL_FROM_NAME is required")
	}
	return nil
}

func (s *MailgunSender) SendEmail(ctx context.Context, msg Email) (string, error) {
	if err := s.validate(); err != nil {
		return "", err
	}

	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}
	from := fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)

	message := s.client.NewMessage(from, msg.Subject, msg.Text, to)

	var id string
	err := retry(ctx, s.log, 3, time.Second, func() error {
		sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		_, messageID, err := s.client.Send(sendCtx, message)
		if err != nil {
			return err
		}
		id = messageID
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("mailgun send to %s: %w", msg.To, err)
	}

	s.log.Debug("email sent", zap.String("to", msg.To), zap.String("message_id", id))
	return id, nil
}
