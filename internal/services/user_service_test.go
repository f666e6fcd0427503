package services

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/auth"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/testutil"
)

func claims(email, name, role string) *auth.Claims {
	return &auth.Claims{Name: name, Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: email}}
}

func TestResolveUser(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewUserService(db)
	ctx := context.Background()

	u, err := s.ResolveUser(ctx, claims("Dewi@Mail.ID", "Dewi", "candidate"))
	require.NoError(t, err)
	assert.Equal(t, "dewi@mail.id", u.Email)
	assert.Equal(t, models.RoleCandidate, u.Role)
	assert.True(t, u.EmailOptIn)

	again, err := s.ResolveUser(ctx, claims("dewi@mail.id", "Someone else", "employer"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Dewi", again.Name)
	assert.Equal(t, models.RoleEmployer, again.Role)

	stored, err := s.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEmployer, stored.Role)

	_, err = s.ResolveUser(ctx, claims("", "", "candidate"))
	assert.ErrorIs(t, err, apperror.ErrInvalidToken)
	_, err = s.ResolveUser(ctx, claims("x@y.z", "", "superuser"))
	assert.ErrorIs(t, err, apperror.ErrInvalidToken)
}

func TestResolveUserCreatedConcurrently(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewUserService(db)
	ctx := context.Background()

	// a parallel first request inserts the same subject right before our insert
	var rival models.User
	done := false
	err := db.Callback().Create().Before("gorm:begin_transaction").Register("test:rival_insert", func(tx *gorm.DB) {
		if done || tx.Statement.Table != "users" {
			return
		}
		done = true
		rival = models.User{Email: "sari@mail.id", Name: "Sari", Role: models.RoleCandidate, EmailOptIn: true}
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Create(&rival).Error)
	})
	require.NoError(t, err)

	u, err := s.ResolveUser(ctx, claims("sari@mail.id", "Sari", "candidate"))
	require.NoError(t, err)
	assert.Equal(t, rival.ID, u.ID)

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "sari@mail.id").Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestUpdateProfile(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewUserService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "dewi@mail.id", models.RoleCandidate)

	got, err := s.UpdateProfile(ctx, u, &dtos.ProfileUpdateRequest{
		Name:          ptr("Dewi Lestari"),
		Phone:         ptr("0812 3456 7890"),
		WhatsAppOptIn: ptr(true),
		EmailOptIn:    ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "Dewi Lestari", got.Name)
	assert.Equal(t, "0812 3456 7890", got.Phone)
	assert.True(t, got.WhatsAppOptIn)
	assert.False(t, got.EmailOptIn)

	_, err = s.UpdateProfile(ctx, u, &dtos.ProfileUpdateRequest{Phone: ptr("12")})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
