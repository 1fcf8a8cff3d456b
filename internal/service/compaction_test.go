package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

func TestNeedsCompaction(t *testing.T) {
	env := newTestService(t, &scriptedLLM{}, false)
	createUser(t, env.store, "u1")
	createConversation(t, env.store, "c1", "u1")
	fillConversation(t, env.store, "c1", "u1", 10, 800)

	needs, err := env.svc.NeedsCompaction(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, needs, "exactly at the ceiling")

	createConversation(t, env.store, "c2", "u1")
	fillConversation(t, env.store, "c2", "u1", 3, 2700)
	needs, err = env.svc.NeedsCompaction(context.Background(), "c2")
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestCompactConversation(t *testing.T) {
	client := &scriptedLLM{complete: func(req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
		return textResponse("The customer asked about an order."), nil
	}}
	env := newTestService(t, client, false)
	createUser(t, env.store, "u1")
	createConversation(t, env.store, "c1", "u1")
	original := fillConversation(t, env.store, "c1", "u1", 15, 600)

	conv, err := env.svc.GetConversationWithCompaction(context.Background(), "c1")
	require.NoError(t, err)

	require.Len(t, conv.Messages, 11)
	first := conv.Messages[0]
	assert.Equal(t, domain.RoleSystem, first.Role)
	assert.True(t, strings.HasPrefix(first.Content, "[Summary] "))
	assert.True(t, first.IsSummary())
	assert.True(t, first.CreatedAt.Before(conv.Messages[1].CreatedAt))

	for i, m := range conv.Messages[1:] {
		assert.Equal(t, original[5+i].ID, m.ID)
	}

	needs, err := env.svc.NeedsCompaction(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestCompactConversationShortIsNoop(t *testing.T) {
	env := newTestService(t, &scriptedLLM{}, false)
	createUser(t, env.store, "u1")
	createConversation(t, env.store, "c1", "u1")
	fillConversation(t, env.store, "c1", "u1", 10, 5000)

	require.NoError(t, env.svc.CompactConversation(context.Background(), "c1"))

	messages, err := env.store.ListMessages(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, messages, 10)
	for _, m := range messages {
		assert.NotEqual(t, domain.RoleSystem, m.Role)
	}
}

func TestCompactionUsesFallbackSummary(t *testing.T) {
	env := newTestService(t, &scriptedLLM{}, false)
	createUser(t, env.store, "u1")
	createConversation(t, env.store, "c1", "u1")
	fillConversation(t, env.store, "c1", "u1", 12, 1000)

	require.NoError(t, env.svc.CompactConversation(context.Background(), "c1"))

	messages, err := env.store.ListMessages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, messages, 11)
	assert.True(t, strings.HasPrefix(messages[0].Content, "[Summary] Previous conversation: User: message"))
	assert.True(t, strings.HasSuffix(messages[0].Content, "..."))
}

func TestGetConversationWithCompactionMissing(t *testing.T) {
	env := newTestService(t, &scriptedLLM{}, false)
	_, err := env.svc.GetConversationWithCompaction(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestSweepOverBudget(t *testing.T) {
	env := newTestService(t, &scriptedLLM{}, false)
	createUser(t, env.store, "u1")
	createConversation(t, env.store, "big", "u1")
	fillConversation(t, env.store, "big", "u1", 14, 1000)
	createConversation(t, env.store, "small", "u1")
	fillConversation(t, env.store, "small", "u1", 4, 100)

	n, err := env.svc.SweepOverBudget(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	messages, err := env.store.ListMessages(context.Background(), "big")
	require.NoError(t, err)
	assert.Len(t, messages, 11)

	messages, err = env.store.ListMessages(context.Background(), "small")
	require.NoError(t, err)
	assert.Len(t, messages, 4)
}

func TestSummarize(t *testing.T) {
	msgs := []domain.Message{
		{Role: domain.RoleUser, Content: "Where is my package?"},
		{Role: domain.RoleAssistant, Content: "It ships tomorrow."},
	}

	var prompt string
	client := &scriptedLLM{complete: func(req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
		prompt = req.Messages[0].Content
		return textResponse("  Package ships tomorrow.  "), nil
	}}
	env := newTestService(t, client, false)
	assert.Equal(t, "Package ships tomorrow.", env.svc.Summarize(context.Background(), msgs))
	assert.Contains(t, prompt, "User: Where is my package?\nAssistant: It ships tomorrow.")

	empty := &scriptedLLM{complete: func(req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
		return textResponse(""), nil
	}}
	env = newTestService(t, empty, false)
	assert.Equal(t, "Previous conversation: User: Where is my package?\nAssistant: It ships tomorrow....",
		env.svc.Summarize(context.Background(), msgs))
}
