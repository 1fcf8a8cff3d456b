package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

const (
	defaultHistoryLimit  = 5
	historyMessagesLimit = 5
	historyPreviewRunes  = 50
)

type conversationHistoryEntry struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	UserName  string            `json:"userName"`
	LastAgent *domain.AgentType `json:"lastAgent"`
	Messages  []string          `json:"messages"`
}

// SupportTools returns the support agent's toolset for userID.
func SupportTools(s Store, userID string) *Registry {
	r := NewRegistry()
	r.MustRegister(Definition{
		Name:        QueryConversationHistory,
		Description: "Fetches past conversation history for the current user.",
		Parameters: objectSchema(map[string]interface{}{
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Number of conversations to fetch",
				"default":     defaultHistoryLimit,
			},
		}),
	}, func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
		var in struct {
			Limit int `json:"limit"`
		}
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.Limit <= 0 {
			in.Limit = defaultHistoryLimit
		}
		return queryConversationHistory(ctx, s, userID, in.Limit)
	})
	return r
}

func queryConversationHistory(ctx context.Context, s Store, userID string, limit int) (json.RawMessage, error) {
	conversations, err := s.ListConversations(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	name, err := customerName(ctx, s, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]conversationHistoryEntry, 0, len(conversations))
	for _, c := range conversations {
		messages, err := s.ListRecentMessages(ctx, userID, c.ID, historyMessagesLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		previews := make([]string, 0, len(messages))
		for _, m := range messages {
			previews = append(previews, fmt.Sprintf("%s: %s...", m.Role, preview(m.Content, historyPreviewRunes)))
		}
		entries = append(entries, conversationHistoryEntry{
			ID:        c.ID,
			Title:     c.Title,
			UserName:  name,
			LastAgent: c.AgentType,
			Messages:  previews,
		})
	}
	return result(entries)
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
