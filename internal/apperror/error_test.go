package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesCopies(t *testing.T) {
	err := NewNotFound("job", 42)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "job '42' not found", err.Message)

	wrapped := fmt.Errorf("loading: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}

func TestWithHelpersDoNotMutateOriginal(t *testing.T) {
	_ = ErrBadRequest.WithMessage("changed").WithDetails(map[string]any{"field": "title"})
	assert.Equal(t, "Invalid request", ErrBadRequest.Message)
	assert.Nil(t, ErrBadRequest.Details)
}

func TestErrorString(t *testing.T) {
	inner := errors.New("db down")
	err := ErrInternal.WithInternal(inner)
	assert.Equal(t, "internal_error: An internal error occurred (db down)", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"app error", NewValidation("title is required"), http.StatusUnprocessableEntity, "validation_error"},
		{"wrapped app error", fmt.Errorf("x: %w", ErrForbidden), http.StatusForbidden, "forbidden"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := ToHTTPError(tt.err)
			assert.Equal(t, tt.wantCode, status)
			inner, ok := body["error"].(gin.H)
			require.True(t, ok)
			assert.Equal(t, tt.wantBody, inner["code"])
		})
	}
}

func TestRespondAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Respond(c, NewNotFound("company", 7).WithDetails(map[string]any{"id": 7}))

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":{"code":"not_found","message":"company '7' not found","details":{"id":7}}}`, w.Body.String())
}
