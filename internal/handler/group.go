package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keepsake-app/keepsake/internal/service"
)

type GroupHandler struct {
	groupService service.IGroupService
}

func NewGroupHandler(groupService service.IGroupService) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
	}
}

// CreateGroup handles shared group creation
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req service.CreateSharedGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	result, err := h.groupService.CreateSharedGroup(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// RespondToInvitation handles accepting or declining an invitation
func (h *GroupHandler) RespondToInvitation(c *gin.Context) {
	var req struct {
		Response string `json:"response" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	err := h.groupService.RespondToInvitation(c.Request.Context(), c.Param("id"), userID, req.Response)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Invitation declined"
	if req.Response == service.ResponseAccept {
		message = "Invitation accepted"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// InviteCollaborator handles inviting one more friend to a group
func (h *GroupHandler) InviteCollaborator(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	err := h.groupService.InviteCollaborator(c.Request.Context(), c.Param("id"), userID, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Invitation sent"})
}

// RemoveCollaborator handles removing a collaborator from a group
func (h *GroupHandler) RemoveCollaborator(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	err := h.groupService.RemoveCollaborator(c.Request.Context(), c.Param("id"), userID, c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Collaborator removed"})
}

// UpdateSettings handles partial group settings updates
func (h *GroupHandler) UpdateSettings(c *gin.Context) {
	var req service.UpdateGroupSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	group, err := h.groupService.UpdateGroupSettings(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, group)
}

// ListMyGroups retrieves the caller's collaboration overview
func (h *GroupHandler) ListMyGroups(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	view, err := h.groupService.ListMyGroups(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
