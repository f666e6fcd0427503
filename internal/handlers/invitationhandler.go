package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justsurfingit/KarirConnect/internal/apperror"
	"github.com/justsurfingit/KarirConnect/internal/auth"
	"github.com/justsurfingit/KarirConnect/internal/dtos"
	"github.com/justsurfingit/KarirConnect/internal/services"
)

type InvitationHandler struct {
	Invitations *services.InvitationService
}

func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{Invitations: invitations}
}

func (h *InvitationHandler) Invite(c *gin.Context) {
	var req dtos.InvitationRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.Invitations.Invite(c.Request.Context(), auth.CurrentUser(c), &req)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *InvitationHandler) List(c *gin.Context) {
	var f services.InvitationFilter
	if !bindQuery(c, &f) {
		return
	}
	page, err := h.Invitations.List(c.Request.Context(), auth.CurrentUser(c), f)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *InvitationHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	inv, err := h.Invitations.Get(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvitationHandler) Respond(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.RespondInvitationRequest
	if !bindJSON(c, &req) {
		return
	}
	inv, err := h.Invitations.Respond(c.Request.Context(), auth.CurrentUser(c), id, *req.Accept)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvitationHandler) Thread(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	msgs, err := h.Invitations.Thread(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": msgs})
}

func (h *InvitationHandler) SendMessage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req dtos.MessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.Invitations.SendMessage(c.Request.Context(), auth.CurrentUser(c), id, req.Body)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *InvitationHandler) MarkRead(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	n, err := h.Invitations.MarkRead(c.Request.Context(), auth.CurrentUser(c), id)
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

func (h *InvitationHandler) UnreadCount(c *gin.Context) {
	n, err := h.Invitations.UnreadCount(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		apperror.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}
