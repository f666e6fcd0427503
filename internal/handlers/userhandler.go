package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/auth"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/services"
)

type UserHandler struct {
	Users      *services.UserService
	Dashboards *services.DashboardService
}

func NewUserHandler(users *services.UserService, dashboards *services.DashboardService) *UserHandler {
	return &UserHandler{Users: users, Dashboards: dashboards}
}

func (h *UserHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, auth.CurrentUser(c))
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req dtos.ProfileUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Users.UpdateProfile(c.Request.Context(), auth.CurrentUser(c), &req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Dashboard picks the statistics matching the caller's role
func (h *UserHandler) Dashboard(c *gin.Context) {
	stats, err := h.Dashboards.ForUser(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *UserHandler) AdminDashboard(c *gin.Context) {
	stats, err := h.Dashboards.Admin(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
