// Package queue is the in-process asynchronous task runner used by the
// submission and bulk paths. It is deliberately small: a bounded channel
// drained by a fixed worker pool. A host with a real task queue can satisfy
// the same Enqueue contract and replace it.
package queue

import (
	"context"
	"log"
	"sync"
)

// Task is one unit of asynchronous work. Tasks must tolerate re-execution;
// the queue promises at-least-once, not exactly-once.
type Task func(ctx context.Context) error

type Queue struct {
	tasks   chan Task
	workers int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(capacity, workers int) *Queue {
	if capacity <= 0 {
		capacity = 256
	}
	if workers <= 0 {
		workers = 4
	}
	return &Queue{
		tasks:   make(chan Task, capacity),
		workers: workers,
	}
}

// Start launches the worker pool. Calling Start twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true

	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(workerID int) {
			defer q.wg.Done()
			q.worker(ctx, workerID)
		}(i)
	}
	log.Printf("[Queue] Started %d workers (capacity %d)", q.workers, cap(q.tasks))
}

func (q *Queue) worker(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			if err := task(ctx); err != nil {
				log.Printf("[Queue] Worker %d: task failed: %v", workerID, err)
			}
		}
	}
}

// TryEnqueue adds a task without blocking. It reports false when the queue
// is full; callers decide whether that is a retry or a hard failure.
func (q *Queue) TryEnqueue(task Task) bool {
	select {
	case q.tasks <- task:
		return true
	default:
		return false
	}
}

// Len returns the number of queued, not-yet-claimed tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Stop cancels the workers and waits for in-flight tasks to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	log.Println("[Queue] Stopped")
}
