package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

const routerFallbackReasoning = "Fallback due to router error"

var routeSchema = &llm.ResponseFormat{
	Type: "json_schema",
	JSONSchema: &llm.JSONSchema{
		Name:   "route_decision",
		Strict: true,
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"agent": map[string]interface{}{
					"type": "string",
					"enum": []string{string(domain.AgentSupport), string(domain.AgentOrder), string(domain.AgentBilling)},
				},
				"reasoning": map[string]interface{}{"type": "string"},
			},
			"required":             []string{"agent", "reasoning"},
			"additionalProperties": false,
		},
	},
}

// Classify picks the agent for the trailing turns of a conversation. Any
// backend or decoding failure yields the support agent with a fallback reason.
func (s *Service) Classify(ctx context.Context, recentTurns []llm.ChatMessage) domain.RouteDecision {
	if n := s.config.RoutingWindow; n > 0 && len(recentTurns) > n {
		recentTurns = recentTurns[len(recentTurns)-n:]
	}

	decision, err := s.classify(ctx, recentTurns)
	if err != nil {
		slog.Warn("router_fallback", "error", err)
		decision = domain.RouteDecision{Agent: domain.AgentSupport, Reasoning: routerFallbackReasoning, Fallback: true}
	}
	s.metrics.RouterDecision(string(decision.Agent), decision.Fallback)
	return decision
}

func (s *Service) classify(ctx context.Context, turns []llm.ChatMessage) (domain.RouteDecision, error) {
	messages := make([]llm.ChatMessage, 0, len(turns)+1)
	messages = append(messages, llm.ChatMessage{Role: "system", Content: routerPrompt})
	messages = append(messages, turns...)

	start := time.Now()
	resp, err := s.llmClient.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:          s.config.Model,
		Messages:       messages,
		ResponseFormat: routeSchema,
	})
	s.metrics.ObserveGeneration("route", time.Since(start).Seconds())
	if err != nil {
		return domain.RouteDecision{}, fmt.Errorf("failed to classify: %w", err)
	}

	var out struct {
		Agent     *string `json:"agent"`
		Reasoning *string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Text())), &out); err != nil {
		return domain.RouteDecision{}, fmt.Errorf("failed to decode route decision: %w", err)
	}
	if out.Agent == nil || out.Reasoning == nil {
		return domain.RouteDecision{}, errors.New("route decision is missing agent or reasoning")
	}
	agent, ok := domain.ParseAgentType(*out.Agent)
	if !ok {
		return domain.RouteDecision{}, fmt.Errorf("unknown agent %q", *out.Agent)
	}
	return domain.RouteDecision{Agent: agent, Reasoning: *out.Reasoning}, nil
}
