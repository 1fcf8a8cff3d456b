package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListConversations lists the caller's most recently updated conversations.
// GET /chat/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	convs, err := h.service.ListConversations(c.Request().Context(), userID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": convs,
	})
}

// GetConversation returns a conversation with its messages.
// GET /chat/conversations/:id
func (h *Handler) GetConversation(c echo.Context) error {
	conv, err := h.service.GetConversation(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// DeleteConversation deletes a conversation and its messages.
// DELETE /chat/conversations/:id
func (h *Handler) DeleteConversation(c echo.Context) error {
	if err := h.service.DeleteConversation(c.Request().Context(), c.Param("id"), userID(c)); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// GetConversationStats reports the token budget of a conversation.
// GET /chat/conversations/:id/stats
func (h *Handler) GetConversationStats(c echo.Context) error {
	stats, err := h.service.GetConversationStats(c.Request().Context(), c.Param("id"), userID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
