package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yungbote/unifind-backend/internal/observability"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
)

var (
	ErrPoolClosed = errors.New("worker pool closed")
	ErrQueueFull  = errors.New("worker pool queue full")
)

// Task is one unit of work. Name only labels logs.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool is a fixed set of workers draining a bounded queue. It is built once
// per process; Shutdown stops intake and lets queued and running tasks finish.
type Pool struct {
	log     *logger.Logger
	metrics *observability.Metrics
	base    context.Context
	cancel  context.CancelFunc

	mu     sync.RWMutex
	closed bool
	queue  chan Task
	wg     sync.WaitGroup
}

func NewPool(baseLog *logger.Logger, concurrency, queueSize int, metrics *observability.Metrics) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	// Tasks run on a context detached from any request so a commit in flight
	// is never cut short; Shutdown bounds the wait instead.
	base, cancel := context.WithCancel(context.Background())
	p := &Pool{
		log:     baseLog.With("component", "WorkerPool"),
		metrics: metrics,
		base:    base,
		cancel:  cancel,
		queue:   make(chan Task, queueSize),
	}
	p.log.Info("Starting worker pool", "concurrency", concurrency, "queue_size", queueSize)
	p.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go p.runLoop(i + 1)
	}
	return p
}

// Submit enqueues t without blocking.
func (p *Pool) Submit(t Task) error {
	if t.Run == nil {
		return fmt.Errorf("task %q has no body", t.Name)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.IncPoolRejected("closed")
		return ErrPoolClosed
	}
	select {
	case p.queue <- t:
		p.metrics.SetQueueDepth(len(p.queue))
		return nil
	default:
		p.metrics.IncPoolRejected("full")
		return ErrQueueFull
	}
}

func (p *Pool) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Shutdown stops intake and waits for queued and running tasks. If ctx ends
// first the task context is cancelled and ctx's error is returned; tasks
// still observe their own commit or rollback before returning.
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
		p.log.Info("Worker pool drained")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) runLoop(workerID int) {
	defer p.wg.Done()
	for t := range p.queue {
		p.metrics.SetQueueDepth(len(p.queue))
		p.run(workerID, t)
	}
}

func (p *Pool) run(workerID int, t Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Task panic", "worker_id", workerID, "task", t.Name, "panic", r)
		}
	}()
	if err := t.Run(p.base); err != nil {
		p.log.Warn("Task failed", "worker_id", workerID, "task", t.Name, "error", err)
	}
}
