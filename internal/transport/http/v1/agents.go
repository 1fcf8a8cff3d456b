package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/internal/service"
)

// ListAgents lists the agents a turn can be routed to.
// GET /agents
func (h *Handler) ListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"agents": service.Agents(),
	})
}

// GetAgentCapabilities returns the tools and topics of one agent.
// GET /agents/:type/capabilities
func (h *Handler) GetAgentCapabilities(c echo.Context) error {
	agent, ok := domain.ParseAgentType(c.Param("type"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Agent type not found"})
	}
	return c.JSON(http.StatusOK, service.Capabilities(agent))
}
