package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/justsurfingit/KarirConnect/internal/config"
)

// WhatsAppGateway posts messages to a Fonnte-compatible HTTP gateway
type WhatsAppGateway struct {
	client      *resty.Client
	countryCode string
	log         *zap.Logger
}

type gatewayResponse struct {
	Status bool     `json:"status"`
	Detail string   `json:"detail"`
	Reason string   `json:"reason"`
	ID     []string `json:"id"`
}

// NewWhatsAppGateway returns nil when no token is configured
func NewWhatsAppGateway(cfg config.WhatsAppConfig, log *zap.Logger) *WhatsAppGateway {
	if !cfg.Enabled() {
		return nil
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Authorization", cfg.Token).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= 500
	})

	return &WhatsAppGateway{
		client:      client,
		countryCode: cfg.CountryCode,
		log:         log.Named("notify.whatsapp"),
	}
}

func (g *WhatsAppGateway) SendWhatsApp(ctx context.Context, phone, text string) (string, error) {
	target := NormalizePhone(phone, g.countryCode)
	if target == "" {
		return "", fmt.Errorf("invalid phone number %q", phone)
	}

	var out gatewayResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"target":      target,
			"message":     text,
			"countryCode": g.countryCode,
		}).
		SetResult(&out).
		Post("/send")
	if err != nil {
		return "", fmt.Errorf("whatsapp gateway: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("whatsapp gateway HTTP %d", resp.StatusCode())
	}
	if !out.Status {
		reason := out.Reason
		if reason == "" {
			reason = out.Detail
		}
		return "", fmt.Errorf("whatsapp gateway rejected message: %s", reason)
	}

	id := ""
	if len(out.ID) > 0 {
		id = out.ID[0]
	}
	g.log.Debug("whatsapp sent", zap.String("target", target), zap.String("id", id))
	return id, nil
}

// NormalizePhone strips formatting and rewrites a leading 0 or + to the country code
func NormalizePhone(phone, countryCode string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return ""
		}
	}
	digits := b.String()
	if len(digits) < 8 {
		return ""
	}
	if strings.HasPrefix(digits, "0") {
		return countryCode + digits[1:]
	}
	return digits
}
