package v1

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/internal/service"
)

const (
	wsPingInterval   = 30 * time.Second
	wsWriteTimeout   = 10 * time.Second
	wsReadTimeout    = 60 * time.Second
	wsMaxMessageSize = 64 * 1024
	wsSendBuffer     = 256
	wsFrameBuffer    = 8
)

// Client frame types.
const (
	FrameSendMessage = "send_message"
)

// ClientFrame is a message sent by a websocket client.
type ClientFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content"`
}

var errConnClosed = errors.New("websocket connection closed")

// ChatWebSocket streams chat turns over a websocket bound to one user.
// GET /chat/ws
func (h *Handler) ChatWebSocket(c echo.Context) error {
	user, err := h.service.ResolveUser(c.Request().Context(), userID(c))
	if err != nil {
		return errorResponse(c, err)
	}

	ws, err := h.upgrader().Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("ws_upgrade_failed", "error", err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn := newWSConn(ws)
	frames := make(chan ClientFrame, wsFrameBuffer)

	slog.Info("ws_connected", "user_id", user.UserID)
	go conn.writePump()
	go h.runTurns(ctx, conn, user.UserID, frames)

	conn.readPump(frames)
	cancel()
	conn.close()
	slog.Info("ws_disconnected", "user_id", user.UserID)
	return nil
}

func (h *Handler) upgrader() *websocket.Upgrader {
	allowed := h.service.Config().CORSOrigins
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowed {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

// runTurns handles frames one at a time so turns on a connection never interleave.
func (h *Handler) runTurns(ctx context.Context, conn *wsConn, userID string, frames <-chan ClientFrame) {
	for frame := range frames {
		switch frame.Type {
		case FrameSendMessage:
			h.runTurn(ctx, conn, userID, frame)
		default:
			_ = conn.send(errorEvent("invalid_message", "unknown message type: "+frame.Type))
		}
	}
}

func (h *Handler) runTurn(ctx context.Context, conn *wsConn, userID string, frame ClientFrame) {
	turn, err := h.service.PrepareTurn(ctx, service.TurnRequest{
		ConversationID: frame.ConversationID,
		UserID:         userID,
		Content:        frame.Content,
	})
	if err != nil {
		code, message := errorCode(err)
		_ = conn.send(errorEvent(code, message))
		return
	}

	err = conn.send(domain.StreamEvent{Type: domain.StreamEventMeta, Data: domain.MetaEventData{
		ConversationID: turn.Conversation.ID,
		Agent:          turn.Decision.Agent,
		Reasoning:      turn.Decision.Reasoning,
	}})
	if err != nil {
		return
	}
	_, _ = h.service.RunTurn(ctx, turn, conn.send)
}

func errorEvent(code, message string) domain.StreamEvent {
	return domain.StreamEvent{Type: domain.StreamEventError, Data: domain.ErrorEventData{Code: code, Message: message}}
}

func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation_error", "Message content is required"
	case errors.Is(err, domain.ErrInvalidUser):
		return "invalid_user", "Invalid user"
	case errors.Is(err, domain.ErrConversationNotFound):
		return "not_found", "Conversation not found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden", "Unauthorized"
	default:
		slog.Error("ws_turn_failed", "error", err)
		return "internal_error", "Internal server error"
	}
}

// wsConn serializes writes to a websocket through a buffered channel.
type wsConn struct {
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		conn: conn,
		out:  make(chan []byte, wsSendBuffer),
		done: make(chan struct{}),
	}
}

func (c *wsConn) send(ev domain.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	select {
	case c.out <- data:
		return nil
	case <-c.done:
		return errConnClosed
	}
}

func (c *wsConn) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *wsConn) readPump(frames chan<- ClientFrame) {
	defer close(frames)

	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ws_read_failed", "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			_ = c.send(errorEvent("invalid_message", "invalid JSON message"))
			continue
		}
		c.enqueue(frames, frame)
	}
}

// enqueue hands a frame to the turn loop without blocking the reader, which
// must keep reading for pongs to be seen.
func (c *wsConn) enqueue(frames chan<- ClientFrame, frame ClientFrame) bool {
	select {
	case frames <- frame:
		return true
	default:
		_ = c.send(errorEvent("busy", "Too many messages in flight"))
		return false
	}
}

func (c *wsConn) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("ws_write_failed", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
