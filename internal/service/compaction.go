package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/internal/tokens"
)

// NeedsCompaction reports whether the conversation's token sum exceeds the ceiling.
func (s *Service) NeedsCompaction(ctx context.Context, conversationID string) (bool, error) {
	total, err := s.store.GetTokenCount(ctx, conversationID)
	if err != nil {
		return false, fmt.Errorf("failed to count tokens: %w", err)
	}
	return total > s.config.MaxContextTokens, nil
}

// CompactConversation replaces all but the most recent messages with a single
// summary message when the conversation is over budget and long enough.
func (s *Service) CompactConversation(ctx context.Context, conversationID string) error {
	unlock := s.locks.lock(conversationID)
	defer unlock()

	_, err := s.compactLocked(ctx, conversationID)
	return err
}

// GetConversationWithCompaction loads a conversation with its messages, compacting
// it first when it is over budget. Returns domain.ErrConversationNotFound when missing.
func (s *Service) GetConversationWithCompaction(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	unlock := s.locks.lock(conversationID)
	defer unlock()

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrConversationNotFound
	}

	if _, err := s.compactLocked(ctx, conversationID); err != nil {
		return nil, err
	}

	messages, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	conv.Messages = messages
	return conv, nil
}

// compactLocked must be called with the conversation lock held.
func (s *Service) compactLocked(ctx context.Context, conversationID string) (bool, error) {
	messages, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return false, fmt.Errorf("failed to list messages: %w", err)
	}

	total := 0
	for _, m := range messages {
		total += m.TokenCount
	}
	keep := s.config.RecentMessagesToKeep
	if total <= s.config.MaxContextTokens || len(messages) <= keep {
		return false, nil
	}

	old := messages[:len(messages)-keep]
	recent := messages[len(messages)-keep:]

	summary, fallback := s.summarize(ctx, old)
	summaryMsg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           domain.RoleSystem,
		Content:        domain.SummaryPrefix + summary,
		TokenCount:     tokens.Estimate(summary),
		CreatedAt:      recent[0].CreatedAt.Add(-time.Second),
	}

	removeIDs := make([]string, len(old))
	for i, m := range old {
		removeIDs[i] = m.ID
	}
	if err := s.store.ReplaceWithSummary(ctx, conversationID, removeIDs, summaryMsg); err != nil {
		return false, fmt.Errorf("failed to replace messages with summary: %w", err)
	}

	source := "model"
	if fallback {
		source = "fallback"
	}
	s.metrics.Compaction(source)
	slog.Info("conversation_compacted",
		"conversation_id", conversationID,
		"removed", len(old),
		"tokens_before", total,
		"summary_tokens", summaryMsg.TokenCount,
		"source", source,
	)
	return true, nil
}

// SweepOverBudget compacts up to limit conversations whose token sum exceeds the ceiling.
func (s *Service) SweepOverBudget(ctx context.Context, limit int) (int, error) {
	ids, err := s.store.ListConversationsOverBudget(ctx, s.config.MaxContextTokens, s.config.RecentMessagesToKeep, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list conversations over budget: %w", err)
	}

	compacted := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return compacted, err
		}
		unlock := s.locks.lock(id)
		done, err := s.compactLocked(ctx, id)
		unlock()
		if err != nil {
			slog.Warn("compaction_sweep_failed", "conversation_id", id, "error", err)
			continue
		}
		if done {
			compacted++
		}
	}
	return compacted, nil
}
