package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xiaot623/gogo/supportdesk/internal/domain"
	"github.com/xiaot623/gogo/supportdesk/internal/worker"
)

// submitPostTurn queues bookkeeping for a finished turn. The caller never waits
// on it.
func (s *Service) submitPostTurn(conversationID, userID string, agent domain.AgentType) {
	task := worker.Task{
		Name:    "post_turn",
		Timeout: postTurnTimeout,
		Run: func(ctx context.Context) error {
			return s.postTurn(ctx, conversationID, userID, agent)
		},
	}
	if s.pool == nil {
		go func() {
			if err := task.Run(context.Background()); err != nil {
				slog.Error("post_turn_failed", "conversation_id", conversationID, "error", err)
			}
		}()
		return
	}
	if !s.pool.Submit(task) {
		slog.Warn("post_turn_dropped", "conversation_id", conversationID)
	}
}

func (s *Service) postTurn(ctx context.Context, conversationID, userID string, agent domain.AgentType) error {
	if err := s.store.UpdateConversationAgentType(ctx, conversationID, userID, agent); err != nil {
		return fmt.Errorf("failed to stamp agent type: %w", err)
	}

	needs, err := s.NeedsCompaction(ctx, conversationID)
	if err != nil {
		return err
	}
	if needs {
		if err := s.CompactConversation(ctx, conversationID); err != nil {
			return err
		}
	}

	total, err := s.store.GetTokenCount(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to count tokens: %w", err)
	}
	slog.Info("turn_analytics",
		"conversation_id", conversationID,
		"user_id", userID,
		"agent", agent,
		"total_tokens", total,
		"compacted", needs,
	)
	return nil
}
