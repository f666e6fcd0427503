package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/auth"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/models"
	"github.com/justsurfingit/KarirConnect/internal/services"
)

type JobHandler struct {
	LLMService *services.LLMService
	JobService *services.JobService
}

func NewJobHandler(llm *services.LLMService, j *services.JobService) *JobHandler {
	return &JobHandler{LLMService: llm, JobService: j}
}

// ParseJob is the POST /jobs/extract endpoint
func (h *JobHandler) ParseJob(c *gin.Context) {
	var req dtos.JobExtractionRequest
	if !bindJSON(c, &req) {
		return
	}
	draft, err := h.LLMService.DraftListing(c.Request.Context(), auth.CurrentUser(c), &req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": draft})
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dtos.JobListingRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.JobService.CreateJob(c.Request.Context(), auth.CurrentUser(c), &req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	var f services.JobFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.JobService.List(c.Request.Context(), auth.CurrentUser(c), f)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	job, err := h.JobService.Get(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) UpdateJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.JobListingUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.JobService.Update(c.Request.Context(), auth.CurrentUser(c), id, &req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.JobService.Delete(c.Request.Context(), auth.CurrentUser(c), id); err != nil {
		apperror.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobHandler) ChangeStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	job, err := h.JobService.ChangeStatus(c.Request.Context(), auth.CurrentUser(c), id, models.ListingStatus(req.Status))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) Events(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	events, err := h.JobService.Events(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}
