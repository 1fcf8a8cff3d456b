package domain

import "time"

// InputMessage represents a prior turn supplied by the client.
type InputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SendMessageRequest is the body of POST /chat/messages.
type SendMessageRequest struct {
	ConversationID *string        `json:"conversationId,omitempty"`
	Content        string         `json:"content,omitempty"`
	Input          string         `json:"input,omitempty"`
	Messages       []InputMessage `json:"messages,omitempty"`
	UserID         string         `json:"userId,omitempty"`
}

// MessageContent resolves the text of the new user turn: content, then input,
// then the last supplied message.
func (r *SendMessageRequest) MessageContent() string {
	if r.Content != "" {
		return r.Content
	}
	if r.Input != "" {
		return r.Input
	}
	if n := len(r.Messages); n > 0 {
		return r.Messages[n-1].Content
	}
	return ""
}

// RouteDecision is the router's classification of a turn.
type RouteDecision struct {
	Agent     AgentType `json:"agent"`
	Reasoning string    `json:"reasoning"`
	Fallback  bool      `json:"-"`
}

// ConversationSummary is the list view of a conversation.
type ConversationSummary struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Title     string     `json:"title"`
	AgentType *AgentType `json:"agentType"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// ConversationStats describes the token budget of a conversation.
type ConversationStats struct {
	ConversationID  string `json:"conversationId"`
	MessageCount    int    `json:"messageCount"`
	TotalTokens     int    `json:"totalTokens"`
	NeedsCompaction bool   `json:"needsCompaction"`
	MaxTokens       int    `json:"maxTokens"`
	SystemMessages  int    `json:"systemMessages"`
}

// AgentInfo describes an agent in the public catalogue.
type AgentInfo struct {
	Type         AgentType `json:"type"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Capabilities []string  `json:"capabilities"`
}

// AgentCapabilities lists the tools and topics of one agent.
type AgentCapabilities struct {
	Agent  AgentType `json:"agent"`
	Tools  []string  `json:"tools"`
	Topics []string  `json:"topics"`
}

// UserOverview is a user together with aggregated counts.
type UserOverview struct {
	User
	Stats UserStats `json:"stats"`
}

// UserDetail is a user together with recent activity.
type UserDetail struct {
	User
	Stats               UserStats             `json:"stats"`
	RecentOrders        []Order               `json:"recentOrders"`
	RecentConversations []ConversationSummary `json:"recentConversations"`
}
