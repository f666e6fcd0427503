package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/justsurfingit/KarirConnect/internal/auth"
	"github.com/justsurfingit/KarirConnect/internal/config"
)

// GmailSender sends email through the Gmail API as the authorized account
type GmailSender struct {
	svc  *gmail.Service
	from mail.Address
	log  *zap.Logger
}

// NewGmailSender loads the OAuth token and builds the Gmail service
func NewGmailSender(ctx context.Context, cfg config.EmailConfig, log *zap.Logger) (*GmailSender, error) {
	httpClient, err := auth.GmailClient(ctx, cfg.GmailCredential, cfg.GmailToken)
	if err != nil {
		return nil, err
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return NewGmailSenderWithService(svc, cfg, log), nil
}

func NewGmailSenderWithService(svc *gmail.Service, cfg config.EmailConfig, log *zap.Logger) *GmailSender {
	return &GmailSender{
		svc:  svc,
		from: mail.Address{Name: cfg.FromName, Address: cfg.FromEmail},
		log:  log.Named("notify.gmail"),
	}
}

func (s *GmailSender) SendEmail(ctx context.Context, msg Email) (string, error) {
	raw := buildRFC822(s.from, mail.Address{Name: msg.ToName, Address: msg.To}, msg)

	var id string
	err := retry(ctx, s.log, 3, time.Second, func() error {
		sent, err := s.svc.Users.Messages.Send("me", &gmail.Message{
			Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
		}).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = sent.Id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("gmail send to %s: %w", msg.To, err)
	}
	return id, nil
}

func buildRFC822(from, to mail.Address, msg Email) string {
	var b strings.Builder
	b.WriteString("From: " + from.String() + "\r\n")
	b.WriteString("To: " + to.String() + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.Text)
	return b.String()
}
