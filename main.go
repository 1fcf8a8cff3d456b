package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
	"github.com/xiaot623/gogo/supportdesk/internal/config"
	"github.com/xiaot623/gogo/supportdesk/internal/logger"
	"github.com/xiaot623/gogo/supportdesk/internal/metrics"
	"github.com/xiaot623/gogo/supportdesk/internal/ratelimit"
	store "github.com/xiaot623/gogo/supportdesk/internal/repository"
	"github.com/xiaot623/gogo/supportdesk/internal/scheduler"
	"github.com/xiaot623/gogo/supportdesk/internal/service"
	handler "github.com/xiaot623/gogo/supportdesk/internal/transport/http"
	"github.com/xiaot623/gogo/supportdesk/internal/worker"
	"github.com/xiaot623/gogo/supportdesk/policy"
)

const (
	compactionSweepLimit = 50
	shutdownTimeout      = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("supportdesk_failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	slog.Info("supportdesk_starting",
		"port", cfg.HTTPPort,
		"env", cfg.AppEnv,
		"model", cfg.Model,
		"rate_limit_driver", cfg.RateLimitDriver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	if cfg.SeedDemoData {
		seeded, err := store.SeedDemo(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to seed demo data: %w", err)
		}
		slog.Info("demo_data", "seeded", seeded)
	}

	llmClient := llm.NewLLMClient(cfg.Mode, cfg.LiteLLMURL, cfg.LiteLLMKey, cfg.LLMTimeout)

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	m := metrics.New()
	pool := worker.NewPool(cfg.WorkerCount, cfg.WorkerQueueSize, m)

	// Initialize service
	svc := service.New(db, llmClient, cfg, policyEngine, pool, m)

	limiter, closeLimiter, err := newLimiter(cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	jobs := []scheduler.Job{{
		Name: "compaction_sweep",
		Run: func(ctx context.Context) error {
			n, err := svc.SweepOverBudget(ctx, compactionSweepLimit)
			if n > 0 {
				slog.Info("compaction_sweep", "compacted", n)
			}
			return err
		},
	}}
	if mem, ok := limiter.(*ratelimit.MemoryLimiter); ok {
		jobs = append(jobs, scheduler.Job{
			Name: "rate_limit_sweep",
			Run: func(ctx context.Context) error {
				if n := mem.Sweep(2 * cfg.RateLimitWindow); n > 0 {
					slog.Debug("rate_limit_sweep", "removed", n)
				}
				return nil
			},
		})
	}
	if cfg.MaintenanceCron != "" {
		sched, err := scheduler.New(cfg.MaintenanceCron, jobs...)
		if err != nil {
			return err
		}
		sched.Start(ctx)
	}

	server := handler.NewServer(svc, limiter, m)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.Info("supportdesk_started", "port", cfg.HTTPPort)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	slog.Info("supportdesk_shutting_down")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server_shutdown_failed", "error", err)
	}
	if err := pool.Shutdown(shutdownCtx); err != nil {
		slog.Warn("worker_shutdown_failed", "error", err)
	}

	slog.Info("supportdesk_stopped")
	return nil
}

func newLimiter(cfg *config.Config) (ratelimit.Limiter, func(), error) {
	driver := ratelimit.Driver(cfg.RateLimitDriver)
	if driver != ratelimit.DriverRedis {
		l, err := ratelimit.New(driver, cfg.RateLimitWindow, cfg.RateLimitMaxRequests)
		return l, func() {}, err
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	l, err := ratelimit.New(driver, cfg.RateLimitWindow, cfg.RateLimitMaxRequests, ratelimit.WithRedisClient(client))
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return l, func() { _ = client.Close() }, nil
}
