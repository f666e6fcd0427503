package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/auth"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/services"
)

type CompanyHandler struct {
	Companies *services.CompanyService
}

func NewCompanyHandler(companies *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{Companies: companies}
}

func (h *CompanyHandler) Create(c *gin.Context) {
	var req dtos.CompanyRequest
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.Companies.Create(c.Request.Context(), auth.CurrentUser(c), &req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, company)
}

func (h *CompanyHandler) List(c *gin.Context) {
	var f services.CompanyFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.Companies.List(c.Request.Context(), f)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *CompanyHandler) Mine(c *gin.Context) {
	companies, err := h.Companies.Owned(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": companies})
}

func (h *CompanyHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	company, err := h.Companies.Get(c.Request.Context(), id)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.CompanyUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.Companies.Update(c.Request.Context(), auth.CurrentUser(c), id, &req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Companies.Delete(c.Request.Context(), auth.CurrentUser(c), id); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadLogo expects a multipart form with a "logo" file
func (h *CompanyHandler) UploadLogo(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	file, closeFile, err := formFile(c, "logo")
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	defer closeFile()
	if file == nil {
		apperror.Respond(c, apperror.NewBadRequest("logo file is required"))
		return
	}

	company, err := h.Companies.SetLogo(c.Request.Context(), auth.CurrentUser(c), id, *file)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}

func (h *CompanyHandler) Verify(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.VerifyCompanyRequest
	if !bindJSON(c, &req) {
		return
	}
	company, err := h.Companies.Verify(c.Request.Context(), auth.CurrentUser(c), id, req.Verified)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, company)
}
