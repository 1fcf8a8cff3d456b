// Command supportctl is an interactive terminal client for the support desk websocket.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	v1 "github.com/xiaot623/gogo/supportdesk/internal/transport/http/v1"
)

type frame struct {
	Type domain.StreamEventType `json:"type"`
	Data json.RawMessage        `json:"data"`
}

// Client holds one websocket connection and the conversation it is continuing.
type Client struct {
	conn *websocket.Conn

	mu             sync.Mutex
	conversationID string
}

// NewClient connects to addr as userID.
func NewClient(addr, userID string) (*Client, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}
	if userID != "" {
		q := u.Query()
		q.Set("userId", userID)
		u.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close sends a close frame and closes the connection.
func (c *Client) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// Send posts content to the current conversation, starting one if none is open.
func (c *Client) Send(content string) error {
	c.mu.Lock()
	conversationID := c.conversationID
	c.mu.Unlock()

	return c.conn.WriteJSON(v1.ClientFrame{
		Type:           v1.FrameSendMessage,
		ConversationID: conversationID,
		Content:        content,
	})
}

// NewConversation forgets the current conversation.
func (c *Client) NewConversation() {
	c.mu.Lock()
	c.conversationID = ""
	c.mu.Unlock()
}

// ReadFrames prints server frames until the connection closes.
func (c *Client) ReadFrames() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("Read error: %v", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}
		c.print(f)
	}
}

func (c *Client) print(f frame) {
	switch f.Type {
	case domain.StreamEventMeta:
		var meta domain.MetaEventData
		_ = json.Unmarshal(f.Data, &meta)
		c.mu.Lock()
		c.conversationID = meta.ConversationID
		c.mu.Unlock()
		fmt.Printf("\n[%s] %s\n", meta.Agent, meta.Reasoning)
	case domain.StreamEventDelta:
		var delta domain.DeltaEventData
		_ = json.Unmarshal(f.Data, &delta)
		fmt.Print(delta.Text)
	case domain.StreamEventToolCall:
		var call domain.ToolCallEventData
		_ = json.Unmarshal(f.Data, &call)
		fmt.Printf("\n  -> %s %s\n", call.ToolName, string(call.Args))
	case domain.StreamEventToolResult:
		var result domain.ToolResultEventData
		_ = json.Unmarshal(f.Data, &result)
		fmt.Printf("  <- %s (%d bytes)\n", result.ToolName, len(result.Result))
	case domain.StreamEventDone:
		var done domain.DoneEventData
		_ = json.Unmarshal(f.Data, &done)
		if done.Usage != nil {
			fmt.Printf("\n\n(%d tokens, %d steps)\n> ", done.Usage.TotalTokens, done.Usage.Steps)
		} else {
			fmt.Print("\n\n> ")
		}
	case domain.StreamEventError:
		var e domain.ErrorEventData
		_ = json.Unmarshal(f.Data, &e)
		fmt.Printf("\n[error] %s: %s\n> ", e.Code, e.Message)
	case domain.StreamEventReasoning:
		// already shown with meta
	default:
		fmt.Printf("\n[%s] %s\n", f.Type, string(f.Data))
	}
}

func main() {
	addr := flag.String("addr", "ws://localhost:3001/chat/ws", "WebSocket chat endpoint")
	userID := flag.String("user", "", "User ID to chat as (server default when empty)")
	conversationID := flag.String("conversation", "", "Existing conversation to continue")
	flag.Parse()

	log.SetFlags(log.Ltime)

	fmt.Printf("Connecting to %s...\n", *addr)

	client, err := NewClient(*addr, *userID)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer client.Close()
	client.conversationID = *conversationID

	fmt.Println("Connected.")
	fmt.Println("\nType a message and press Enter to send.")
	fmt.Println("Commands: /new to start a new conversation, /quit to exit")

	go client.ReadFrames()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		fmt.Println("\nInterrupted")
		_ = client.Close()
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			fmt.Print("> ")
			continue
		case "/quit":
			fmt.Println("Bye!")
			return
		case "/new":
			client.NewConversation()
			fmt.Print("> ")
			continue
		}

		if err := client.Send(input); err != nil {
			log.Printf("Send error: %v", err)
		}
	}
}
