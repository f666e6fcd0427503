package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/storage"
)

var allowedLogoTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/webp":    true,
	"image/svg+xml": true,
}

type CompanyService struct {
	DB      *gorm.DB
	Storage storage.Store
	Log     *zap.Logger
}

func NewCompanyService(db *gorm.DB, store storage.Store, log *zap.Logger) *CompanyService {
	return &CompanyService{DB: db, Storage: store, Log: log.Named("companies")}
}

type CompanyFilter struct {
	Q        string `form:"q"`
	Verified *bool  `form:"verified"`
	Page
}

// CompanyView adds the resolved logo URL to a company
type CompanyView struct {
	models.Company
	LogoURL string `json:"logo_url,omitempty"`
}

func (s *CompanyService) view(ctx context.Context, c models.Company) CompanyView {
	v := CompanyView{Company: c}
	if c.LogoKey != "" && s.Storage != nil {
		url, err := s.Storage.URL(ctx, c.LogoKey)
		if err != nil {
			s.Log.Warn("failed to resolve logo url", zap.Uint("company_id", c.ID), zap.Error(err))
		}
		v.LogoURL = url
	}
	return v
}

func (s *CompanyService) Create(ctx context.Context, actor *models.User, req *dtos.CompanyRequest) (*CompanyView, error) {
	if actor.Role != models.RoleEmployer && !isAdmin(actor) {
		return nil, apperror.ErrForbidden.WithMessage("only employers can register companies")
	}

	company := &models.Company{
		OwnerID:     actor.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Website:     req.Website,
		Location:    req.Location,
		Industry:    req.Industry,
	}
	if err := s.DB.WithContext(ctx).Create(company).Error; err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	s.Log.Info("company created", zap.Uint("company_id", company.ID), zap.Uint("owner_id", actor.ID))
	v := s.view(ctx, *company)
	return &v, nil
}

func (s *CompanyService) load(ctx context.Context, id uint) (*models.Company, error) {
	var c models.Company
	if err := s.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFoundOr(err, "company", id)
	}
	return &c, nil
}

// loadOwned returns the company if actor owns it or is an admin
func (s *CompanyService) loadOwned(ctx context.Context, actor *models.User, id uint) (*models.Company, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != actor.ID && !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	return c, nil
}

func (s *CompanyService) Get(ctx context.Context, id uint) (*CompanyView, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.view(ctx, *c)
	return &v, nil
}

func (s *CompanyService) List(ctx context.Context, f CompanyFilter) (*ListResult[CompanyView], error) {
	q := s.DB.WithContext(ctx).Model(&models.Company{})
	if f.Q != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(f.Q)+"%")
	}
	if f.Verified != nil {
		q = q.Where("verified = ?", *f.Verified)
	}

	page, err := paginate[models.Company](q, f.Page, "name ASC, id ASC")
	if err != nil {
		return nil, err
	}

	out := &ListResult[CompanyView]{Data: make([]CompanyView, 0, len(page.Data)), Total: page.Total, Page: page.Page, PerPage: page.PerPage}
	for _, c := range page.Data {
		out.Data = append(out.Data, s.view(ctx, c))
	}
	return out, nil
}

// Owned lists every company the user owns
func (s *CompanyService) Owned(ctx context.Context, actor *models.User) ([]models.Company, error) {
	var out []models.Company
	err := s.DB.WithContext(ctx).Where("owner_id = ?", actor.ID).Order("id").Find(&out).Error
	return out, err
}

func (s *CompanyService) Update(ctx context.Context, actor *models.User, id uint, req *dtos.CompanyUpdateRequest) (*CompanyView, error) {
	c, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.Location != nil {
		updates["location"] = *req.Location
	}
	if req.Industry != nil {
		updates["industry"] = *req.Industry
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(c).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update company: %w", err)
		}
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes the company together with its listings
func (s *CompanyService) Delete(ctx context.Context, actor *models.User, id uint) error {
	c, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("company_id = ?", c.ID).Delete(&models.JobListing{}).Error; err != nil {
			return err
		}
		return tx.Delete(c).Error
	})
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	s.Log.Info("company deleted", zap.Uint("company_id", c.ID), zap.Uint("actor_id", actor.ID))
	return nil
}

// SetLogo stores a new logo and removes the previous object
func (s *CompanyService) SetLogo(ctx context.Context, actor *models.User, id uint, file Upload) (*CompanyView, error) {
	c, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !allowedLogoTypes[file.ContentType] {
		return nil, apperror.NewValidation("logo must be a PNG, JPEG, WebP or SVG image")
	}

	key := storage.Key("logos", c.ID, file.Filename)
	if err := s.Storage.Put(ctx, key, file.Body, file.Size, file.ContentType); err != nil {
		return nil, apperror.ErrInternal.WithInternal(err)
	}

	old := c.LogoKey
	if err := s.DB.WithContext(ctx).Model(c).Update("logo_key", key).Error; err != nil {
		if derr := s.Storage.Delete(ctx, key); derr != nil {
			s.Log.Warn("failed to delete orphaned logo", zap.String("key", key), zap.Error(derr))
		}
		return nil, fmt.Errorf("save logo key: %w", err)
	}
	if old != "" {
		if err := s.Storage.Delete(ctx, old); err != nil {
			s.Log.Warn("failed to delete old logo", zap.String("key", old), zap.Error(err))
		}
	}
	return s.Get(ctx, id)
}

// Verify toggles the verified badge (admin only)
func (s *CompanyService) Verify(ctx context.Context, actor *models.User, id uint, verified bool) (*CompanyView, error) {
	if !isAdmin(actor) {
		return nil, apperror.ErrForbidden
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(c).Update("verified", verified).Error; err != nil {
		return nil, fmt.Errorf("verify company: %w", err)
	}
	return s.Get(ctx, id)
}
