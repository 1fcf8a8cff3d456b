package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

// ListUsers lists users with their order, payment and conversation counts.
// GET /users
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.service.ListUsers(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users": users,
	})
}

// GetUser returns a user with recent orders and conversations.
// GET /users/:id
func (h *Handler) GetUser(c echo.Context) error {
	user, err := h.service.GetUserDetail(c.Request().Context(), c.Param("id"))
	if errors.Is(err, domain.ErrInvalidUser) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
