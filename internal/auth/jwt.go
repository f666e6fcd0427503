package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/models"
)

const userKey = "auth.user"

// Claims are issued by the identity provider. Subject carries the email.
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserResolver maps verified claims to a stored user
type UserResolver interface {
	ResolveUser(ctx context.Context, claims *Claims) (*models.User, error)
}

type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Parse validates signature, expiry and (when configured) issuer
func (v *Verifier) Parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Sign issues a token; used by tests and local tooling
func (v *Verifier) Sign(email, name string, role models.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: name,
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (v *Verifier) authenticate(c *gin.Context, users UserResolver, token string) bool {
	claims, err := v.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			apperror.Respond(c, apperror.ErrInvalidToken.WithMessage("Token has expired"))
		} else {
			apperror.Respond(c, apperror.ErrInvalidToken)
		}
		return false
	}

	user, err := users.ResolveUser(c.Request.Context(), claims)
	if err != nil {
		apperror.Respond(c, err)
		return false
	}
	c.Set(userKey, user)
	return true
}

// Required rejects requests without a valid bearer token
func (v *Verifier) Required(users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			apperror.Respond(c, apperror.ErrUnauthorized)
			return
		}
		if v.authenticate(c, users, token) {
			c.Next()
		}
	}
}

// Optional attaches the user when a token is present and lets anonymous requests through
func (v *Verifier) Optional(users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.Next()
			return
		}
		if v.authenticate(c, users, token) {
			c.Next()
		}
	}
}

// RequireRole must run after Required
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			apperror.Respond(c, apperror.ErrUnauthorized)
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		apperror.Respond(c, apperror.ErrForbidden)
	}
}

// CurrentUser returns the authenticated user or nil
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
