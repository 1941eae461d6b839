package uci

import (
	"context"
	"sync"
	"sync/atomic"
)

const (
	jobPending int32 = iota
	jobRunning
	jobCanceled
)

type job struct {
	ctx    context.Context
	fn     func(context.Context) error
	state  atomic.Int32
	result chan error
}

// Queue runs units of work one at a time in submission order. It is the only
// path to the engine conversation, so a unit never observes another unit's
// commands or output.
type Queue struct {
	mu      sync.Mutex
	pending []*job
	closed  bool

	wake    chan struct{}
	stopped chan struct{}
}

func NewQueue() *Queue {
	q := &Queue{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	go q.worker()
	return q
}

// Do enqueues fn and blocks until it has run. A unit whose context is done
// before it reaches the head of the queue is skipped and reports ctx.Err().
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j := &job{ctx: ctx, fn: fn, result: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.pending = append(q.pending, j)
	q.mu.Unlock()
	q.signal()

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		if j.state.CompareAndSwap(jobPending, jobCanceled) {
			return ctx.Err()
		}
		// already running; fn sees the same ctx
		return <-j.result
	}
}

func Submit[T any](ctx context.Context, q *Queue, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := q.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close rejects pending units with ErrQueueClosed and waits for the running
// unit to return. It must not be called from inside a unit.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.stopped
		return
	}
	q.closed = true
	dropped := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, j := range dropped {
		if j.state.CompareAndSwap(jobPending, jobCanceled) {
			j.result <- ErrQueueClosed
		}
	}
	q.signal()
	<-q.stopped
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) worker() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		j := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.run(j)
	}
}

func (q *Queue) run(j *job) {
	if !j.state.CompareAndSwap(jobPending, jobRunning) {
		return
	}
	if err := j.ctx.Err(); err != nil {
		j.result <- err
		return
	}
	j.result <- j.fn(j.ctx)
}
