package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/internal/tokens"
)

const titleLength = 30

// TurnRequest is one incoming user message.
type TurnRequest struct {
	ConversationID string
	UserID         string
	Content        string
}

// Turn is a validated, routed turn ready for generation.
type Turn struct {
	Conversation *domain.Conversation
	UserID       string
	Decision     domain.RouteDecision
	History      []llm.ChatMessage
}

// ResolveUser maps an empty id onto the default user and checks that the user
// exists.
func (s *Service) ResolveUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		userID = s.config.DefaultUserID
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidUser
	}
	return user, nil
}

// PrepareTurn validates the request, stores the user message, compacts the
// conversation when needed and routes it. Validation and ownership checks run
// before anything is written.
func (s *Service) PrepareTurn(ctx context.Context, req TurnRequest) (*Turn, error) {
	user, err := s.ResolveUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, domain.ErrValidation
	}

	conv, err := s.openConversation(ctx, req.ConversationID, user.UserID, content)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Role:           domain.RoleUser,
		Content:        content,
		TokenCount:     tokens.Estimate(content),
		CreatedAt:      s.now(),
	}
	if err := s.appendMessage(ctx, user.UserID, msg); err != nil {
		return nil, err
	}

	conv, err = s.GetConversationWithCompaction(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	history := buildHistory(conv.Messages)
	decision := s.Classify(ctx, history)

	slog.Info("turn_routed",
		"conversation_id", conv.ID,
		"user_id", user.UserID,
		"agent", decision.Agent,
		"fallback", decision.Fallback,
		"history", len(history),
	)
	return &Turn{Conversation: conv, UserID: user.UserID, Decision: decision, History: history}, nil
}

// RunTurn streams the agent's reply for a prepared turn.
func (s *Service) RunTurn(ctx context.Context, turn *Turn, sink Sink) (*domain.Message, error) {
	return s.Execute(ctx, turn.Decision.Agent, turn.History, turn.Conversation.ID, turn.UserID, turn.Decision.Reasoning, sink)
}

func (s *Service) openConversation(ctx context.Context, conversationID, userID, content string) (*domain.Conversation, error) {
	if conversationID != "" {
		conv, err := s.store.GetConversation(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to get conversation: %w", err)
		}
		if conv == nil {
			return nil, domain.ErrConversationNotFound
		}
		if conv.UserID != userID {
			return nil, domain.ErrForbidden
		}
		return conv, nil
	}

	now := s.now()
	conv := &domain.Conversation{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     conversationTitle(content),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	slog.Info("conversation_created", "conversation_id", conv.ID, "user_id", userID)
	return conv, nil
}

// appendMessage stores a message under the conversation lock.
func (s *Service) appendMessage(ctx context.Context, userID string, msg *domain.Message) error {
	unlock := s.locks.lock(msg.ConversationID)
	defer unlock()

	if err := s.store.AppendMessage(ctx, userID, msg); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

func conversationTitle(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= titleLength {
		return content
	}
	return string([]rune(content)[:titleLength])
}

// buildHistory turns stored messages into prompt messages. Summaries keep the
// system role.
func buildHistory(messages []domain.Message) []llm.ChatMessage {
	history := make([]llm.ChatMessage, 0, len(messages))
	for _, m := range messages {
		history = append(history, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return history
}
