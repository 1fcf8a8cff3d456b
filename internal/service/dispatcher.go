package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/internal/tokens"
	"github.com/xiaot623/gogo/supportdesk/internal/tools"
	"github.com/xiaot623/gogo/supportdesk/policy"
)

const streamErrorMessage = "Stream error occurred"

// Sink receives the events of a turn as they are produced.
type Sink func(event domain.StreamEvent) error

// Execute runs one agent turn: it streams the reply to sink, lets the model call
// the agent's tools for at most MaxAgentStep steps, and persists exactly one
// assistant message on success. On failure nothing is written and an error
// event is sent.
func (s *Service) Execute(ctx context.Context, agent domain.AgentType, history []llm.ChatMessage, conversationID, userID, reasoning string, sink Sink) (*domain.Message, error) {
	switch agent {
	case domain.AgentSupport, domain.AgentOrder, domain.AgentBilling:
	default:
		agent = domain.AgentSupport
	}

	if reasoning != "" {
		if err := sink(domain.StreamEvent{Type: domain.StreamEventReasoning, Data: domain.ReasoningEventData{Text: reasoning}}); err != nil {
			return nil, s.failTurn(agent, conversationID, 0, sink, fmt.Errorf("failed to send reasoning: %w", err))
		}
	}

	text, usage, steps, err := s.runAgentLoop(ctx, agent, history, userID, sink)
	if err != nil {
		return nil, s.failTurn(agent, conversationID, steps, sink, err)
	}

	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           domain.RoleAssistant,
		Content:        text,
		AgentType:      &agent,
		TokenCount:     tokens.Estimate(text),
		CreatedAt:      s.now(),
	}
	if err := s.appendMessage(ctx, userID, msg); err != nil {
		return nil, s.failTurn(agent, conversationID, steps, sink, err)
	}

	usage.Steps = steps
	s.metrics.AgentTurn(string(agent), "ok", steps)
	_ = sink(domain.StreamEvent{Type: domain.StreamEventDone, Data: domain.DoneEventData{
		MessageID: msg.ID,
		Agent:     agent,
		Usage:     usage,
	}})

	s.submitPostTurn(conversationID, userID, agent)
	return msg, nil
}

func (s *Service) failTurn(agent domain.AgentType, conversationID string, steps int, sink Sink, err error) error {
	slog.Error("agent_turn_failed", "conversation_id", conversationID, "agent", agent, "steps", steps, "error", err)
	s.metrics.AgentTurn(string(agent), "error", steps)
	_ = sink(domain.StreamEvent{Type: domain.StreamEventError, Data: domain.ErrorEventData{
		Code:    "generation_failed",
		Message: streamErrorMessage,
	}})
	return err
}

// runAgentLoop returns the text generated across all steps.
func (s *Service) runAgentLoop(ctx context.Context, agent domain.AgentType, history []llm.ChatMessage, userID string, sink Sink) (string, *domain.UsageData, int, error) {
	registry := tools.ForAgent(agent, s.store, userID)

	messages := make([]llm.ChatMessage, 0, len(history)+1)
	messages = append(messages, llm.ChatMessage{Role: "system", Content: systemPrompt(agent)})
	messages = append(messages, history...)

	usage := &domain.UsageData{}
	var full strings.Builder
	maxSteps := s.config.MaxAgentStep

	for step := 1; step <= maxSteps; step++ {
		var stepText strings.Builder
		acc := newToolCallAccumulator()

		start := time.Now()
		u, err := s.llmClient.CreateChatCompletionStream(ctx, &llm.ChatCompletionRequest{
			Model:    s.config.Model,
			Messages: messages,
			Tools:    registry.LLMTools(),
		}, func(chunk *llm.StreamChunk) error {
			for _, choice := range chunk.Choices {
				if choice.Delta == nil {
					continue
				}
				if choice.Delta.Content != "" {
					stepText.WriteString(choice.Delta.Content)
					full.WriteString(choice.Delta.Content)
					if err := sink(domain.StreamEvent{Type: domain.StreamEventDelta, Data: domain.DeltaEventData{Text: choice.Delta.Content}}); err != nil {
						return err
					}
				}
				acc.add(choice.Delta.ToolCalls)
			}
			return nil
		})
		s.metrics.ObserveGeneration("agent", time.Since(start).Seconds())
		if err != nil {
			return "", usage, step, fmt.Errorf("generation failed at step %d: %w", step, err)
		}
		if u != nil {
			usage.PromptTokens += u.PromptTokens
			usage.CompletionTokens += u.CompletionTokens
			usage.TotalTokens += u.TotalTokens
		}

		calls := acc.calls()
		if len(calls) == 0 {
			return full.String(), usage, step, nil
		}

		messages = append(messages, llm.ChatMessage{Role: "assistant", Content: stepText.String(), ToolCalls: calls})
		for _, call := range calls {
			result, err := s.invokeTool(ctx, agent, userID, registry, call, sink)
			if err != nil {
				return "", usage, step, err
			}
			messages = append(messages, llm.ChatMessage{Role: "tool", ToolCallID: call.ID, Content: string(result)})
		}
	}

	slog.Warn("agent_step_limit_reached", "agent", agent, "steps", maxSteps)
	return full.String(), usage, maxSteps, nil
}

// invokeTool authorizes and runs one tool call. Policy blocks and tool failures
// are reported back to the model as error results; only sink failures abort the turn.
func (s *Service) invokeTool(ctx context.Context, agent domain.AgentType, userID string, registry *tools.Registry, call llm.ToolCall, sink Sink) (json.RawMessage, error) {
	name := call.Function.Name
	args := json.RawMessage(call.Function.Arguments)
	if !json.Valid(args) {
		args = json.RawMessage(`{}`)
	}

	if err := sink(domain.StreamEvent{Type: domain.StreamEventToolCall, Data: domain.ToolCallEventData{
		ToolCallID: call.ID,
		ToolName:   name,
		Args:       args,
	}}); err != nil {
		return nil, err
	}

	decision, reason, err := s.policyEngine.Evaluate(ctx, policy.Input{Agent: agent, ToolName: name, UserID: userID})
	if err != nil {
		slog.Error("tool_policy_failed", "tool", name, "agent", agent, "error", err)
		decision, reason = domain.PolicyBlock, "policy evaluation failed"
	}
	s.metrics.ToolCall(name, string(decision))

	var result json.RawMessage
	if decision != domain.PolicyAllow || !registry.Has(name) {
		slog.Warn("tool_call_blocked", "tool", name, "agent", agent, "reason", reason)
		result = errorJSON("Tool not permitted: " + reason)
	} else {
		result, err = registry.Execute(ctx, name, args)
		if err != nil {
			slog.Warn("tool_call_failed", "tool", name, "agent", agent, "error", err)
			result = errorJSON(err.Error())
		}
	}

	if err := sink(domain.StreamEvent{Type: domain.StreamEventToolResult, Data: domain.ToolResultEventData{
		ToolCallID: call.ID,
		ToolName:   name,
		Result:     result,
	}}); err != nil {
		return nil, err
	}
	return result, nil
}

func errorJSON(message string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"error": message})
	return data
}

// toolCallAccumulator joins streamed tool-call fragments by index.
type toolCallAccumulator struct {
	byIndex map[int]*llm.ToolCall
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIndex: make(map[int]*llm.ToolCall)}
}

func (a *toolCallAccumulator) add(deltas []llm.ToolCall) {
	for i, d := range deltas {
		idx := i
		if d.Index != nil {
			idx = *d.Index
		}
		call, ok := a.byIndex[idx]
		if !ok {
			call = &llm.ToolCall{Type: "function"}
			a.byIndex[idx] = call
		}
		if d.ID != "" {
			call.ID = d.ID
		}
		if d.Type != "" {
			call.Type = d.Type
		}
		call.Function.Name += d.Function.Name
		call.Function.Arguments += d.Function.Arguments
	}
}

func (a *toolCallAccumulator) calls() []llm.ToolCall {
	indexes := make([]int, 0, len(a.byIndex))
	for idx := range a.byIndex {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	out := make([]llm.ToolCall, 0, len(indexes))
	for _, idx := range indexes {
		call := *a.byIndex[idx]
		if call.Function.Name == "" {
			continue
		}
		if call.ID == "" {
			call.ID = "call_" + uuid.New().String()[:8]
		}
		call.Index = nil
		out = append(out, call)
	}
	return out
}
