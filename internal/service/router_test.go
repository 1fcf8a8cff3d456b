package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

func TestClassifyFallback(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"malformed json", `{"agent":`},
		{"unknown agent", `{"agent":"sales","reasoning":"x"}`},
		{"missing reasoning", `{"agent":"order"}`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedLLM{complete: func(req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
				return textResponse(tt.reply), nil
			}}
			env := newTestService(t, client, false)
			got := env.svc.Classify(context.Background(), userHistory("hello"))
			assert.Equal(t, domain.AgentSupport, got.Agent)
			assert.Equal(t, "Fallback due to router error", got.Reasoning)
			assert.True(t, got.Fallback)
		})
	}

	t.Run("backend error", func(t *testing.T) {
		env := newTestService(t, &scriptedLLM{}, false)
		got := env.svc.Classify(context.Background(), userHistory("hello"))
		assert.Equal(t, domain.RouteDecision{Agent: domain.AgentSupport, Reasoning: "Fallback due to router error", Fallback: true}, got)
	})
}

func TestClassifyRequest(t *testing.T) {
	var seen *llm.ChatCompletionRequest
	client := &scriptedLLM{complete: func(req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
		seen = req
		return textResponse(`{"agent":"billing","reasoning":"Refund request"}`), nil
	}}
	env := newTestService(t, client, false)

	turns := make([]llm.ChatMessage, 0, 9)
	for i := 0; i < 9; i++ {
		turns = append(turns, llm.ChatMessage{Role: "user", Content: "turn"})
	}
	got := env.svc.Classify(context.Background(), turns)
	assert.Equal(t, domain.RouteDecision{Agent: domain.AgentBilling, Reasoning: "Refund request"}, got)

	require.NotNil(t, seen)
	require.NotNil(t, seen.ResponseFormat)
	assert.Equal(t, "route_decision", seen.ResponseFormat.JSONSchema.Name)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Len(t, seen.Messages, 1+env.svc.Config().RoutingWindow)
}

func TestClassifyScenarios(t *testing.T) {
	env := newTestService(t, llm.NewMockClient(), false)
	ctx := context.Background()

	history := []llm.ChatMessage{{Role: "user", Content: "Where is my order ORD-1002?"}}
	assert.Equal(t, domain.AgentOrder, env.svc.Classify(ctx, history).Agent)

	history = append(history,
		llm.ChatMessage{Role: "assistant", Content: "It shipped on Monday."},
		llm.ChatMessage{Role: "user", Content: "Can I get a refund for that?"},
	)
	assert.Equal(t, domain.AgentBilling, env.svc.Classify(ctx, history).Agent)

	history = []llm.ChatMessage{
		{Role: "user", Content: "Where is my order ORD-1002?"},
		{Role: "assistant", Content: "It shipped on Monday."},
		{Role: "user", Content: "And when will it get here?"},
	}
	assert.Equal(t, domain.AgentOrder, env.svc.Classify(ctx, history).Agent)

	assert.Equal(t, domain.AgentSupport, env.svc.Classify(ctx, userHistory("How do I reset my password?")).Agent)
}
