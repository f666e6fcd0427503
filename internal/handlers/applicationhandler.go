package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/auth"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/services"
)

type ApplicationHandler struct {
	Applications *services.ApplicationService
}

func NewApplicationHandler(applications *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{Applications: applications}
}

// Apply accepts JSON, or a multipart form carrying an optional "resume" file
func (h *ApplicationHandler) Apply(c *gin.Context) {
	jobID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dtos.ApplyRequest
	var resume *services.Upload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			apperror.Respond(c, uploadError(err))
			return
		}
		file, closeFile, err := formFile(c, "resume")
		if err != nil {
			apperror.Respond(c, err)
			return
		}
		defer closeFile()
		resume = file
	} else if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apperror.Respond(c, apperror.NewBadRequest("Invalid JSON format: "+err.Error()))
		return
	}

	app, err := h.Applications.Apply(c.Request.Context(), auth.CurrentUser(c), jobID, req.CoverLetter, resume)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

func (h *ApplicationHandler) ListForJob(c *gin.Context) {
	jobID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var f services.ApplicationFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.Applications.ListForJob(c.Request.Context(), auth.CurrentUser(c), jobID, f)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ApplicationHandler) ListMine(c *gin.Context) {
	var f services.ApplicationFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.Applications.ListMine(c.Request.Context(), auth.CurrentUser(c), f)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	app, err := h.Applications.Get(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.Applications.UpdateStatus(c.Request.Context(), auth.CurrentUser(c), id, models.ApplicationStatus(req.Status), req.Note)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	app, err := h.Applications.Withdraw(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// Resume returns the download URL; ?redirect=1 sends the client there directly
func (h *ApplicationHandler) Resume(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	url, err := h.Applications.ResumeURL(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	if c.Query("redirect") != "" {
		c.Redirect(http.StatusFound, url)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
