package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/justsurfingit/KarirConnect/internal/models"
)

type fakeResolver struct{}

func (fakeResolver) ResolveUser(_ context.Context, c *Claims) (*models.User, error) {
	return &models.User{ID: 1, Email: c.Subject, Name: c.Name, Role: models.Role(c.Role)}, nil
}

func newRouter(v *Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", v.Required(fakeResolver{}), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Email)
	})
	r.GET("/admin", v.Required(fakeResolver{}), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/public", v.Optional(fakeResolver{}), func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.Email)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	return r
}

func do(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequired(t *testing.T) {
	v := NewVerifier("secret", "karirconnect")
	r := newRouter(v)

	token, err := v.Sign("hr@acme.id", "HR", models.RoleEmployer, time.Hour)
	require.NoError(t, err)

	w := do(r, "/private", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hr@acme.id", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", "garbage").Code)
}

func TestRequiredRejectsForeignSignatureAndIssuer(t *testing.T) {
	r := newRouter(NewVerifier("secret", "karirconnect"))

	other, err := NewVerifier("other-secret", "karirconnect").Sign("a@b.c", "", models.RoleCandidate, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", other).Code)

	wrongIssuer, err := NewVerifier("secret", "someone-else").Sign("a@b.c", "", models.RoleCandidate, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/private", wrongIssuer).Code)
}

func TestRequiredRejectsExpired(t *testing.T) {
	v := NewVerifier("secret", "")
	r := newRouter(v)

	token, err := v.Sign("a@b.c", "", models.RoleCandidate, -time.Minute)
	require.NoError(t, err)

	w := do(r, "/private", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestRequireRole(t *testing.T) {
	v := NewVerifier("secret", "")
	r := newRouter(v)

	candidate, _ := v.Sign("c@b.c", "", models.RoleCandidate, time.Hour)
	admin, _ := v.Sign("a@b.c", "", models.RoleAdmin, time.Hour)

	assert.Equal(t, http.StatusForbidden, do(r, "/admin", candidate).Code)
	assert.Equal(t, http.StatusOK, do(r, "/admin", admin).Code)
}

func TestOptional(t *testing.T) {
	v := NewVerifier("secret", "")
	r := newRouter(v)

	assert.Equal(t, "anonymous", do(r, "/public", "").Body.String())

	token, _ := v.Sign("c@b.c", "", models.RoleCandidate, time.Hour)
	assert.Equal(t, "c@b.c", do(r, "/public", token).Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/public", "bad").Code)
}

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "at", RefreshToken: "rt"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	tok, err := TokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "rt", tok.RefreshToken)
}

func TestGmailClientNeedsCredentials(t *testing.T) {
	_, err := GmailClient(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "token.json")
	assert.Error(t, err)
}
