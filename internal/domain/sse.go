package domain

import "encoding/json"

// StreamEvent is a single event pushed to a streaming client during a turn.
type StreamEvent struct {
	Type StreamEventType `json:"type"`
	Data any             `json:"data,omitempty"`
}

// MetaEventData opens a turn stream.
type MetaEventData struct {
	ConversationID string    `json:"conversationId"`
	Agent          AgentType `json:"agent"`
	Reasoning      string    `json:"reasoning"`
}

// ReasoningEventData carries the router's explanation, sent before any text.
type ReasoningEventData struct {
	Text string `json:"text"`
}

// DeltaEventData carries a fragment of generated text.
type DeltaEventData struct {
	Text string `json:"text"`
}

// ToolCallEventData announces a tool invocation by the agent.
type ToolCallEventData struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args,omitempty"`
}

// ToolResultEventData carries the result of a tool invocation.
type ToolResultEventData struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Result     json.RawMessage `json:"result"`
}

// DoneEventData closes a turn stream.
type DoneEventData struct {
	MessageID string     `json:"messageId"`
	Agent     AgentType  `json:"agent"`
	Usage     *UsageData `json:"usage,omitempty"`
}

// UsageData represents token usage reported by the model backend.
type UsageData struct {
	PromptTokens     int `json:"promptTokens,omitempty"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens,omitempty"`
	Steps            int `json:"steps,omitempty"`
}

// ErrorEventData is the data for an error event.
type ErrorEventData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
