package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	billingKeywords = []string{"refund", "payment", "paid", "invoice", "bill", "charge", "subscription", "dispute", "receipt", "transaction", "txn-", "inv-"}
	orderKeywords   = []string{"order", "track", "ship", "deliver", "cancel", "package", "arrive", "ord-"}

	orderNumberPattern   = regexp.MustCompile(`(?i)\bORD-\d+\b`)
	invoiceNumberPattern = regexp.MustCompile(`(?i)\bINV-[A-Z0-9-]+\b`)
	transactionPattern   = regexp.MustCompile(`(?i)\bTXN-[A-Z0-9-]+\b`)
)

// MockClient is a deterministic LLMClient used with GOGO_MODE=MOCK and in tests.
//
// Structured requests are answered by a keyword classifier, summary prompts by a
// fixed digest, and tool-enabled requests call the first tool whose identifier
// appears in the last user message.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements LLMClient interface.
var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var content string
	switch {
	case req.ResponseFormat != nil:
		content = m.classify(req)
	case strings.HasPrefix(lastUserMessage(req.Messages), "Summarize"):
		content = m.summarize(lastUserMessage(req.Messages))
	default:
		content = m.generateMockResponse(req)
	}

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      &ChatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: m.usage(req, content),
	}, nil
}

// CreateChatCompletionStream simulates a streaming response.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())
	created := time.Now().Unix()

	if call := m.pickToolCall(req); call != nil {
		chunk := &StreamChunk{
			ID: id, Object: "chat.completion.chunk", Created: created, Model: req.Model,
			Choices: []Choice{{Delta: &ChatMessage{Role: "assistant", ToolCalls: []ToolCall{*call}}, FinishReason: "tool_calls"}},
		}
		if err := callback(chunk); err != nil {
			return nil, err
		}
		return m.usage(req, call.Function.Arguments), nil
	}

	responseContent := m.generateMockResponse(req)
	chunks := m.splitIntoChunks(responseContent, 10)

	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		finishReason := ""
		if i == len(chunks)-1 {
			finishReason = "stop"
		}

		streamChunk := &StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{
				{
					Index:        0,
					Delta:        &ChatMessage{Role: "assistant", Content: chunk},
					FinishReason: finishReason,
				},
			},
		}

		if err := callback(streamChunk); err != nil {
			return nil, err
		}
	}

	return m.usage(req, responseContent), nil
}

// classify answers a routing request with {"agent","reasoning"}. Billing
// keywords win over order keywords; a message with neither inherits the
// topic of the most recent earlier user turn that had one.
func (m *MockClient) classify(req *ChatCompletionRequest) string {
	agent, reason := "support", "No order or billing topic detected"
	for i := len(req.Messages) - 1; i >= 0; i-- {
		msg := req.Messages[i]
		if msg.Role != "user" {
			continue
		}
		text := strings.ToLower(msg.Content)
		if kw := firstMatch(text, billingKeywords); kw != "" {
			agent, reason = "billing", fmt.Sprintf("Message mentions %q", kw)
			break
		}
		if kw := firstMatch(text, orderKeywords); kw != "" {
			agent, reason = "order", fmt.Sprintf("Message mentions %q", kw)
			break
		}
	}
	out, _ := json.Marshal(map[string]string{"agent": agent, "reasoning": "[MOCK] " + reason})
	return string(out)
}

func (m *MockClient) summarize(prompt string) string {
	lines := 0
	if _, transcript, ok := strings.Cut(prompt, "\n\n"); ok && transcript != "" {
		lines = strings.Count(transcript, "\n") + 1
	}
	return fmt.Sprintf("[MOCK] The customer and assistant exchanged %d messages.", lines)
}

// pickToolCall requests a tool only on the first step of a turn.
func (m *MockClient) pickToolCall(req *ChatCompletionRequest) *ToolCall {
	if len(req.Tools) == 0 || len(req.Messages) == 0 || req.Messages[len(req.Messages)-1].Role != "user" {
		return nil
	}
	text := lastUserMessage(req.Messages)

	for _, tool := range req.Tools {
		var args map[string]string
		switch tool.Function.Name {
		case "fetchOrderDetails", "checkDeliveryStatus":
			if n := orderNumberPattern.FindString(text); n != "" {
				args = map[string]string{"orderNumber": strings.ToUpper(n)}
			}
		case "getInvoiceDetails":
			if n := invoiceNumberPattern.FindString(text); n != "" {
				args = map[string]string{"invoiceNumber": strings.ToUpper(n)}
			}
		case "checkRefundStatus":
			if n := transactionPattern.FindString(text); n != "" {
				args = map[string]string{"transactionId": strings.ToUpper(n)}
			} else if n := orderNumberPattern.FindString(text); n != "" {
				args = map[string]string{"orderNumber": strings.ToUpper(n)}
			}
		}
		if args == nil {
			continue
		}
		raw, _ := json.Marshal(args)
		index := 0
		return &ToolCall{
			Index:    &index,
			ID:       fmt.Sprintf("call_mock_%d", time.Now().UnixNano()),
			Type:     "function",
			Function: ToolCallFunction{Name: tool.Function.Name, Arguments: string(raw)},
		}
	}
	return nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	if n := len(req.Messages); n > 0 && req.Messages[n-1].Role == "tool" {
		return fmt.Sprintf("[MOCK] Here is what I found: %s", truncate(req.Messages[n-1].Content, 200))
	}

	last := lastUserMessage(req.Messages)
	if last == "" {
		return "[MOCK] This is a mock response from the LLM client."
	}
	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(last, 100))
}

func (m *MockClient) usage(req *ChatCompletionRequest, completion string) *Usage {
	prompt := 0
	for _, msg := range req.Messages {
		prompt += len(msg.Content) / 4
	}
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: len(completion) / 4,
		TotalTokens:      prompt + len(completion)/4,
	}
}

// splitIntoChunks splits a string into chunks of approximately the given size.
func (m *MockClient) splitIntoChunks(s string, chunkSize int) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return []string{""}
	}

	var chunks []string
	for i := 0; i < len(runes); i += chunkSize {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

func lastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}

func firstMatch(text string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return ""
}

// truncate truncates a string to the given number of runes.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
