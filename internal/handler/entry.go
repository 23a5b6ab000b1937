package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keepsake-app/keepsake/internal/service"
)

type EntryHandler struct {
	entryService service.IEntryService
}

func NewEntryHandler(entryService service.IEntryService) *EntryHandler {
	return &EntryHandler{
		entryService: entryService,
	}
}

// AddEntry handles adding the caller's contribution to a group
func (h *EntryHandler) AddEntry(c *gin.Context) {
	var req service.AddEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	entry, err := h.entryService.AddEntry(c.Request.Context(), c.Param("id"), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// UpdateEntry handles patching the caller's own entry
func (h *EntryHandler) UpdateEntry(c *gin.Context) {
	var req service.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	entry, err := h.entryService.UpdateEntry(c.Request.Context(), c.Param("id"), c.Param("entryId"), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// DeleteEntry handles deleting an entry
func (h *EntryHandler) DeleteEntry(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	err := h.entryService.DeleteEntry(c.Request.Context(), c.Param("id"), c.Param("entryId"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted"})
}

// GetGroupView retrieves the group with its entries for the caller
func (h *EntryHandler) GetGroupView(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	view, err := h.entryService.ListGroupView(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
