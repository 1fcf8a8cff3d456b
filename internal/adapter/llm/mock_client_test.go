package llm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classifyWithMock(t *testing.T, messages ...ChatMessage) map[string]string {
	t.Helper()
	resp, err := NewMockClient().CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Messages:       messages,
		ResponseFormat: &ResponseFormat{Type: "json_schema"},
	})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Text()), &out))
	return out
}

func TestMockClientClassify(t *testing.T) {
	tests := []struct {
		name     string
		messages []ChatMessage
		want     string
	}{
		{"order number", []ChatMessage{{Role: "user", Content: "Where is my order ORD-1002?"}}, "order"},
		{"refund", []ChatMessage{{Role: "user", Content: "I want a refund"}}, "billing"},
		{"general", []ChatMessage{{Role: "user", Content: "What are your opening hours?"}}, "support"},
		{"billing wins", []ChatMessage{{Role: "user", Content: "Refund for order ORD-1001"}}, "billing"},
		{"carry over", []ChatMessage{
			{Role: "user", Content: "Where is my order ORD-1002?"},
			{Role: "assistant", Content: "It shipped."},
			{Role: "user", Content: "When exactly?"},
		}, "order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := classifyWithMock(t, tt.messages...)
			assert.Equal(t, tt.want, out["agent"])
			assert.NotEmpty(t, out["reasoning"])
		})
	}
}

func TestMockClientSummarize(t *testing.T) {
	resp, err := NewMockClient().CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "Summarize the following conversation concisely:\n\nUser: a\nAssistant: b"}},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Text(), "2 messages")
}

func TestMockClientStreamsToolCallThenText(t *testing.T) {
	mock := NewMockClient()
	tools := []Tool{{Type: "function", Function: ToolFunction{Name: "fetchOrderDetails"}}}

	var calls []ToolCall
	_, err := mock.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "status of ord-1002 please"}},
		Tools:    tools,
	}, func(chunk *StreamChunk) error {
		calls = append(calls, chunk.Choices[0].Delta.ToolCalls...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, `{"orderNumber":"ORD-1002"}`, calls[0].Function.Arguments)

	var text strings.Builder
	_, err = mock.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{
		Messages: []ChatMessage{
			{Role: "user", Content: "status of ord-1002 please"},
			{Role: "assistant", ToolCalls: calls},
			{Role: "tool", ToolCallID: calls[0].ID, Content: `{"status":"shipped"}`},
		},
		Tools: tools,
	}, func(chunk *StreamChunk) error {
		text.WriteString(chunk.Choices[0].Delta.Content)
		return nil
	})
	require.NoError(t, err)
	assert.Contains(t, text.String(), "shipped")
}
