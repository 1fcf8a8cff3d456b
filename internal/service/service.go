package service

import (
	"time"

	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
	"github.com/xiaot623/gogo/supportdesk/internal/config"
	"github.com/xiaot623/gogo/supportdesk/internal/metrics"
	store "github.com/xiaot623/gogo/supportdesk/internal/repository"
	"github.com/xiaot623/gogo/supportdesk/internal/worker"
	"github.com/xiaot623/gogo/supportdesk/policy"
)

const postTurnTimeout = 2 * time.Minute

type Service struct {
	store        store.Store
	llmClient    llm.LLMClient
	config       *config.Config
	policyEngine *policy.Engine
	pool         *worker.Pool
	metrics      *metrics.Metrics
	locks        *conversationLocks
	now          func() time.Time
}

func New(store store.Store, llmClient llm.LLMClient, cfg *config.Config, policyEngine *policy.Engine, pool *worker.Pool, m *metrics.Metrics) *Service {
	return &Service{
		store:        store,
		llmClient:    llmClient,
		config:       cfg,
		policyEngine: policyEngine,
		pool:         pool,
		metrics:      m,
		locks:        newConversationLocks(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}
