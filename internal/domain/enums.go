// Package domain defines the core domain models for the support desk.
package domain

// AgentType identifies one of the specialized responders.
type AgentType string

const (
	AgentSupport AgentType = "support"
	AgentOrder   AgentType = "order"
	AgentBilling AgentType = "billing"
)

// AgentTypes lists every agent in catalogue order.
var AgentTypes = []AgentType{AgentSupport, AgentOrder, AgentBilling}

// ParseAgentType maps a string tag onto the closed agent set.
func ParseAgentType(s string) (AgentType, bool) {
	switch AgentType(s) {
	case AgentSupport, AgentOrder, AgentBilling:
		return AgentType(s), true
	}
	return "", false
}

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// StreamEventType represents the type of an event pushed to a streaming client.
type StreamEventType string

const (
	StreamEventMeta       StreamEventType = "meta"
	StreamEventReasoning  StreamEventType = "reasoning"
	StreamEventDelta      StreamEventType = "delta"
	StreamEventToolCall   StreamEventType = "tool_call"
	StreamEventToolResult StreamEventType = "tool_result"
	StreamEventDone       StreamEventType = "done"
	StreamEventError      StreamEventType = "error"
)

// PolicyDecision is the outcome of a tool authorization check.
type PolicyDecision string

const (
	PolicyAllow PolicyDecision = "allow"
	PolicyBlock PolicyDecision = "block"
)
