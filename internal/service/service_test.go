package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
	"github.com/xiaot623/gogo/supportdesk/internal/config"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/internal/metrics"
	store "github.com/xiaot623/gogo/supportdesk/internal/repository"
	"github.com/xiaot623/gogo/supportdesk/internal/worker"
	"github.com/xiaot623/gogo/supportdesk/policy"
	"github.com/xiaot623/gogo/supportdesk/tests/helpers"
)

// scriptedLLM answers completions and streams from test-supplied functions.
type scriptedLLM struct {
	mu       sync.Mutex
	complete func(req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error)
	stream   func(step int, req *llm.ChatCompletionRequest, cb llm.StreamCallback) (*llm.Usage, error)
	steps    int
}

func (f *scriptedLLM) CreateChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	if f.complete == nil {
		return nil, errors.New("backend unavailable")
	}
	return f.complete(req)
}

func (f *scriptedLLM) CreateChatCompletionStream(ctx context.Context, req *llm.ChatCompletionRequest, cb llm.StreamCallback) (*llm.Usage, error) {
	f.mu.Lock()
	f.steps++
	step := f.steps
	f.mu.Unlock()
	if f.stream == nil {
		return nil, errors.New("backend unavailable")
	}
	return f.stream(step, req, cb)
}

func textResponse(text string) *llm.ChatCompletionResponse {
	return &llm.ChatCompletionResponse{Choices: []llm.Choice{{Message: &llm.ChatMessage{Role: "assistant", Content: text}}}}
}

func textChunk(text string) *llm.StreamChunk {
	return &llm.StreamChunk{Choices: []llm.Choice{{Delta: &llm.ChatMessage{Content: text}}}}
}

func toolChunk(index int, id, name, args string) *llm.StreamChunk {
	return &llm.StreamChunk{Choices: []llm.Choice{{Delta: &llm.ChatMessage{ToolCalls: []llm.ToolCall{{
		Index:    &index,
		ID:       id,
		Type:     "function",
		Function: llm.ToolCallFunction{Name: name, Arguments: args},
	}}}}}}
}

type testEnv struct {
	svc   *Service
	store *store.SQLiteStore
	pool  *worker.Pool
}

func newTestService(t *testing.T, client llm.LLMClient, seeded bool) *testEnv {
	t.Helper()

	var s *store.SQLiteStore
	if seeded {
		s = helpers.NewSeededSQLiteStore(t)
	} else {
		s = helpers.NewTestSQLiteStore(t)
	}

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	m := metrics.New()
	pool := worker.NewPool(1, 16, m)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	return &testEnv{
		svc:   New(s, client, config.Defaults(), engine, pool, m),
		store: s,
		pool:  pool,
	}
}

// drain waits for queued post-turn work.
func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.pool.Shutdown(ctx))
}

func createUser(t *testing.T, s *store.SQLiteStore, id string) {
	t.Helper()
	require.NoError(t, s.CreateUser(context.Background(), &domain.User{
		UserID: id, Name: "User " + id, Email: id + "@example.com", Role: "Customer",
	}))
}

func createConversation(t *testing.T, s *store.SQLiteStore, id, userID string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.CreateConversation(context.Background(), &domain.Conversation{
		ID: id, UserID: userID, Title: "test", CreatedAt: now, UpdatedAt: now,
	}))
}

// fillConversation appends n alternating messages of the given token cost.
func fillConversation(t *testing.T, s *store.SQLiteStore, conversationID, userID string, n, tokensEach int) []domain.Message {
	t.Helper()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	out := make([]domain.Message, 0, n)
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		msg := domain.Message{
			ID:             fmt.Sprintf("%s-%02d", conversationID, i),
			ConversationID: conversationID,
			Role:           role,
			Content:        "message",
			TokenCount:     tokensEach,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.AppendMessage(context.Background(), userID, &msg))
		out = append(out, msg)
	}
	return out
}

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.StreamEvent
}

func (r *eventRecorder) sink(ev domain.StreamEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) types() []domain.StreamEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.StreamEventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *eventRecorder) last() domain.StreamEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}
