package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/models"
)

var ErrNoCompanyMatch = errors.New("no matching company")

type MatcherService struct {
	DB *gorm.DB
}

func NewMatcherService(db *gorm.DB) *MatcherService {
	return &MatcherService{DB: db}
}

// FindCompany picks which of the actor's companies an imported posting belongs to.
// Rules, in order: name match, posting host contains the company name, posting host
// equals the company website host.
func (s *MatcherService) FindCompany(ctx context.Context, actor *models.User, companyName, postingURL string) (*models.Company, error) {
	var companies []models.Company
	q := s.DB.WithContext(ctx)
	if !isAdmin(actor) {
		q = q.Where("owner_id = ?", actor.ID)
	}
	if err := q.Order("id").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("load companies: %w", err)
	}
	// a single company is the obvious target
	if len(companies) == 1 && !isAdmin(actor) {
		return &companies[0], nil
	}

	extracted := strings.ToLower(strings.TrimSpace(companyName))
	host := hostOf(postingURL)

	for i := range companies {
		c := &companies[i]
		name := strings.ToLower(c.Name)
		// Skip very short names, "X" or "Go" would match everything
		if len(name) < 3 {
			continue
		}

		if extracted != "" && (strings.Contains(extracted, name) || strings.Contains(name, extracted)) {
			return c, nil
		}

		if host != "" {
			if strings.Contains(host, strings.ReplaceAll(name, " ", "")) {
				return c, nil
			}
			if site := hostOf(c.Website); site != "" && site == host {
				return c, nil
			}
		}
	}
	return nil, ErrNoCompanyMatch
}

// hostOf turns https://www.acme.co.id/careers into acme.co.id
func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
