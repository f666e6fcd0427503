package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/auth"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/notify"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// ResolveUser finds the user named by the token, creating it on first sight.
// The role always follows the token.
func (s *UserService) ResolveUser(ctx context.Context, claims *auth.Claims) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(claims.Subject))
	if email == "" {
		return nil, apperror.ErrInvalidToken
	}
	role := models.Role(claims.Role)
	if !role.Valid() {
		return nil, apperror.ErrInvalidToken.WithMessage("unknown role " + claims.Role)
	}

	var user models.User
	err := s.DB.WithContext(ctx).
		Where(models.User{Email: email}).
		Attrs(models.User{Name: claims.Name, Role: role, EmailOptIn: true}).
		FirstOrCreate(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// another request created the user between our lookup and insert
		user = models.User{}
		err = s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", email, err)
	}

	if user.Role != role {
		if err := s.DB.WithContext(ctx).Model(&user).Update("role", role).Error; err != nil {
			return nil, fmt.Errorf("sync role: %w", err)
		}
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	return &u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, req *dtos.ProfileUpdateRequest) (*models.User, error) {
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone != "" && notify.NormalizePhone(phone, "62") == "" {
			return nil, apperror.NewValidation("phone number is not valid")
		}
		updates["phone"] = phone
	}
	if req.WhatsAppOptIn != nil {
		updates["whatsapp_opt_in"] = *req.WhatsAppOptIn
	}
	if req.EmailOptIn != nil {
		updates["email_opt_in"] = *req.EmailOptIn
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}
	return s.Get(ctx, user.ID)
}
