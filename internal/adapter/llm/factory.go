package llm

import (
	"log/slog"
	"strings"
	"time"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewLLMClient creates an LLM client for the configured mode.
// If mode is MOCK, returns a MockClient; otherwise returns a real Client.
func NewLLMClient(mode, baseURL, apiKey string, timeout time.Duration) LLMClient {
	if strings.EqualFold(mode, ModeMock) {
		slog.Info("llm_client_mock", "mode", mode)
		return NewMockClient()
	}

	slog.Info("llm_client_gateway", "base_url", baseURL, "timeout", timeout)
	return NewClient(baseURL, apiKey, timeout)
}
