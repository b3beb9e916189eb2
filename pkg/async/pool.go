package async

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of background work submitted after a transaction commits.
// Errors are logged and swallowed; a task must never affect its submitter.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool executes best-effort side effects (certificates, email, live push)
// on a fixed set of workers decoupled from request handling.
type Pool struct {
	queue   chan Task
	logger  *zap.Logger
	wg      sync.WaitGroup
	timeout time.Duration

	closeOnce sync.Once
}

// NewPool starts workers goroutines draining a queue of queueSize tasks.
// Each task gets its own context bounded by timeout.
func NewPool(workers, queueSize int, timeout time.Duration, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 64
	}
	p := &Pool{
		queue:   make(chan Task, queueSize),
		logger:  logger,
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues a task without blocking. If the queue is full the task is
// dropped and logged; best-effort work never backpressures a request.
func (p *Pool) Submit(task Task) {
	select {
	case p.queue <- task:
	default:
		p.logger.Warn("background queue full, dropping task",
			zap.String("task", task.Name))
	}
}

// Close stops accepting tasks and waits for in-flight work to drain.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.runOne(task)
	}
}

func (p *Pool) runOne(task Task) {
	ctx := context.Background()
	cancel := func() {}
	if p.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
	}
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked",
				zap.String("task", task.Name),
				zap.Any("panic", r))
		}
	}()

	if err := task.Run(ctx); err != nil {
		p.logger.Error("background task failed",
			zap.String("task", task.Name),
			zap.Error(err))
		return
	}
	p.logger.Debug("background task completed", zap.String("task", task.Name))
}
