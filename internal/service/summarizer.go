package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
	"github.com/xiaot623/gogo/supportdesk/internal/domain"
)

const (
	summaryInstruction  = "Summarize the following conversation concisely:\n\n"
	fallbackSummaryHead = "Previous conversation: "
	fallbackSummaryLen  = 200
)

// Summarize condenses messages into a short digest. It never fails: when the
// model errors or returns nothing, a truncated transcript is used instead.
func (s *Service) Summarize(ctx context.Context, messages []domain.Message) string {
	summary, _ := s.summarize(ctx, messages)
	return summary
}

// summarize also reports whether the fallback digest was used.
func (s *Service) summarize(ctx context.Context, messages []domain.Message) (string, bool) {
	transcript := formatTranscript(messages)

	start := time.Now()
	resp, err := s.llmClient.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:    s.config.Model,
		Messages: []llm.ChatMessage{{Role: "user", Content: summaryInstruction + transcript}},
	})
	s.metrics.ObserveGeneration("summarize", time.Since(start).Seconds())

	if err != nil {
		slog.Warn("summarize_failed", "error", err, "messages", len(messages))
		return fallbackSummary(transcript), true
	}
	summary := strings.TrimSpace(resp.Text())
	if summary == "" {
		slog.Warn("summarize_empty", "messages", len(messages))
		return fallbackSummary(transcript), true
	}
	return summary, false
}

func formatTranscript(messages []domain.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, roleLabel(m.Role)+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func roleLabel(role domain.Role) string {
	switch role {
	case domain.RoleUser:
		return "User"
	case domain.RoleSystem:
		return "System"
	default:
		return "Assistant"
	}
}

func fallbackSummary(transcript string) string {
	return fallbackSummaryHead + firstRunes(transcript, fallbackSummaryLen) + "..."
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
