// Package worker runs fire-and-forget tasks on a bounded set of goroutines.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xiaot623/gogo/supportdesk/internal/metrics"
)

// Task is a unit of background work.
type Task struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Pool executes submitted tasks on a fixed number of workers.
type Pool struct {
	queue   chan Task
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines reading from a queue of queueSize.
func NewPool(workers, queueSize int, m *metrics.Metrics) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queue:   make(chan Task, queueSize),
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.loop()
	}
	return p
}

// Submit enqueues a task without blocking. It returns false when the queue is
// full or the pool is shut down; the task is dropped in that case.
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		slog.Warn("background_task_rejected", "task", task.Name, "reason", "pool closed")
		p.metrics.BackgroundTask(task.Name, "dropped")
		return false
	}
	select {
	case p.queue <- task:
		return true
	default:
		slog.Warn("background_task_rejected", "task", task.Name, "reason", "queue full")
		p.metrics.BackgroundTask(task.Name, "dropped")
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or ctx to expire.
// Tasks still running when ctx expires see their context cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	ctx := p.ctx
	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return task.Run(ctx)
	}()

	if err != nil {
		slog.Error("background_task_failed", "task", task.Name, "error", err, "duration", time.Since(start))
		p.metrics.BackgroundTask(task.Name, "error")
		return
	}
	slog.Debug("background_task_done", "task", task.Name, "duration", time.Since(start))
	p.metrics.BackgroundTask(task.Name, "ok")
}
