package handlers

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/services"
)

// bindJSON binds the request body and renders a 400 on failure
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		apperror.Respond(c, apperror.NewBadRequest("Invalid JSON format: "+err.Error()))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		apperror.Respond(c, apperror.NewBadRequest("Invalid query: "+err.Error()))
		return false
	}
	return true
}

// idParam parses a numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apperror.Respond(c, apperror.NewBadRequest("invalid "+name))
		return 0, false
	}
	return uint(id), true
}

// formFile opens an optional multipart file. A nil Upload means the field was absent.
func formFile(c *gin.Context, field string) (*services.Upload, func(), error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, uploadError(err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, apperror.ErrInternal.WithInternal(err)
	}
	return &services.Upload{
		Body:        f,
		Size:        fh.Size,
		Filename:    fh.Filename,
		ContentType: contentType(fh),
	}, func() { _ = f.Close() }, nil
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			return mt
		}
	}
	if ct := mime.TypeByExtension(filepath.Ext(fh.Filename)); ct != "" {
		mt, _, _ := mime.ParseMediaType(ct)
		return mt
	}
	return "application/octet-stream"
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ErrPayloadTooLarge
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return apperror.NewBadRequest("truncated upload")
	}
	return apperror.NewBadRequest("invalid multipart form: " + err.Error())
}

// limitBody caps the request body for upload endpoints
func limitBody(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		c.Next()
	}
}

type HealthHandler struct {
	DB *gorm.DB
}

// HealthCheck reports whether the database answers
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
