package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/internal/service"
)

// SendMessage runs one chat turn and streams it as server-sent events.
// POST /chat/messages
func (h *Handler) SendMessage(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.UserID == "" {
		req.UserID = userID(c)
	}

	turnReq := service.TurnRequest{UserID: req.UserID, Content: req.MessageContent()}
	if req.ConversationID != nil {
		turnReq.ConversationID = *req.ConversationID
	}

	turn, err := h.service.PrepareTurn(ctx, turnReq)
	if err != nil {
		return errorResponse(c, err)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Accel-Buffering", "no")
	resp.Header().Set("X-Agent-Type", string(turn.Decision.Agent))
	resp.Header().Set("X-Reasoning", headerValue(turn.Decision.Reasoning))
	resp.Header().Set("X-Conversation-Id", turn.Conversation.ID)
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	// A failed turn has already sent its error event.
	_, _ = h.service.RunTurn(ctx, turn, func(ev domain.StreamEvent) error {
		return writeEvent(resp, ev)
	})
	return nil
}

func writeEvent(resp *echo.Response, ev domain.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(resp, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	resp.Flush()
	return nil
}

// headerValue flattens text onto one header line.
func headerValue(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
	return strings.TrimSpace(s)
}
