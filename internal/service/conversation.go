package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

const (
	conversationListLimit = 20
	userRecentOrders      = 5
	userRecentChats       = 5
)

// ListConversations returns the user's most recently updated conversations.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	user, err := s.ResolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	convs, err := s.store.ListConversations(ctx, user.UserID, conversationListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// GetConversation returns a conversation with its messages.
func (s *Service) GetConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := s.ownedConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	conv.Messages = messages
	return conv, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Service) DeleteConversation(ctx context.Context, conversationID, userID string) error {
	conv, err := s.ownedConversation(ctx, conversationID, userID)
	if err != nil {
		return err
	}

	unlock := s.locks.lock(conv.ID)
	defer unlock()

	deleted, err := s.store.DeleteConversation(ctx, conv.ID, conv.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if !deleted {
		return domain.ErrConversationNotFound
	}
	slog.Info("conversation_deleted", "conversation_id", conv.ID, "user_id", conv.UserID)
	return nil
}

// GetConversationStats describes the token budget of a conversation.
func (s *Service) GetConversationStats(ctx context.Context, conversationID, userID string) (*domain.ConversationStats, error) {
	conv, err := s.ownedConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	stats := &domain.ConversationStats{
		ConversationID: conv.ID,
		MessageCount:   len(messages),
		MaxTokens:      s.config.MaxContextTokens,
	}
	for _, m := range messages {
		stats.TotalTokens += m.TokenCount
		if m.Role == domain.RoleSystem {
			stats.SystemMessages++
		}
	}
	stats.NeedsCompaction = stats.TotalTokens > s.config.MaxContextTokens
	return stats, nil
}

// ListUsers returns every user with aggregated counts.
func (s *Service) ListUsers(ctx context.Context) ([]domain.UserOverview, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// GetUserDetail returns a user with recent orders and conversations.
// Returns domain.ErrInvalidUser when the user does not exist.
func (s *Service) GetUserDetail(ctx context.Context, userID string) (*domain.UserDetail, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidUser
	}

	stats, err := s.store.GetUserStats(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	orders, err := s.store.ListRecentOrders(ctx, user.UserID, userRecentOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	convs, err := s.store.ListConversations(ctx, user.UserID, userRecentChats)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return &domain.UserDetail{User: *user, Stats: stats, RecentOrders: orders, RecentConversations: convs}, nil
}

// ownedConversation loads a conversation and checks that userID owns it.
func (s *Service) ownedConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	user, err := s.ResolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrConversationNotFound
	}
	if conv.UserID != user.UserID {
		return nil, domain.ErrForbidden
	}
	return conv, nil
}
