// Package v1 provides the HTTP handlers of the support desk API.
package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Chat API
	e.POST("/chat/messages", h.SendMessage)
	e.GET("/chat/ws", h.ChatWebSocket)
	e.GET("/chat/conversations", h.ListConversations)
	e.GET("/chat/conversations/:id", h.GetConversation)
	e.DELETE("/chat/conversations/:id", h.DeleteConversation)
	e.GET("/chat/conversations/:id/stats", h.GetConversationStats)

	// Agent catalogue
	e.GET("/agents", h.ListAgents)
	e.GET("/agents/:type/capabilities", h.GetAgentCapabilities)

	// Users
	e.GET("/users", h.ListUsers)
	e.GET("/users/:id", h.GetUser)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "supportdesk",
	})
}

// errorResponse maps service errors onto status codes and messages.
func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Message content is required"})
	case errors.Is(err, domain.ErrInvalidUser):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid user"})
	case errors.Is(err, domain.ErrConversationNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, map[string]string{"error": "Unauthorized"})
	default:
		slog.Error("request_failed", "path", c.Path(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}

// userID reads the caller from the userId query parameter.
func userID(c echo.Context) string {
	return c.QueryParam("userId")
}
