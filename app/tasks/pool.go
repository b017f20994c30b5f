package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lysyi3m/rss-harvest/app/observe"
)

var ErrPoolStopped = errors.New("task pool is stopped")

// Pool runs tasks on a fixed number of workers. It is owned by a single run:
// Stop closes the queue, lets workers drain what was already submitted, and
// waits for them to exit.
type Pool struct {
	size      int
	ctx       context.Context
	taskQueue chan TaskInterface
	observer  observe.Observer
	wg        sync.WaitGroup
	mu        sync.RWMutex
	stopped   bool
}

func NewPool(ctx context.Context, size int, observer observe.Observer) *Pool {
	if size < 1 {
		size = 1
	}
	if observer == nil {
		observer = observe.Nop()
	}

	return &Pool{
		size:      size,
		ctx:       ctx,
		taskQueue: make(chan TaskInterface, size),
		observer:  observer,
	}
}

func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) Start() {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit blocks until a worker slot frees up in the queue.
func (p *Pool) Submit(task TaskInterface) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.taskQueue <- task:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.taskQueue)
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for task := range p.taskQueue {
		p.executeTask(id, task)
	}
}

func (p *Pool) executeTask(workerID int, task TaskInterface) {
	task.Start()

	span := p.observer.Start(p.ctx, "task", "type", string(task.GetType()), "feed", task.GetFeedName())

	err := task.Execute(p.ctx)
	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "feed", task.GetFeedName(), "error", err)
	}

	span.End(err, "worker_id", workerID)
}
