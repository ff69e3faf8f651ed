package email

import (
	"context"
	"errors"
	"sync"

	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/logger"
)

var (
	ErrQueueFull   = errors.New("email queue is full")
	ErrQueueClosed = errors.New("email queue is closed")
)

type Sender interface {
	Send(n domain.Notification) error
}

// Queue hands notifications to a single background worker so callers never
// wait on SMTP. Send fails only when the buffer is full or the queue stopped.
type Queue struct {
	sender Sender
	jobs   chan domain.Notification

	mu      sync.Mutex
	closed  bool
	started bool
	done    chan struct{}
}

func NewQueue(sender Sender, size int) *Queue {
	if size <= 0 {
		size = 100
	}
	return &Queue{
		sender: sender,
		jobs:   make(chan domain.Notification, size),
		done:   make(chan struct{}),
	}
}

func (q *Queue) Send(n domain.Notification) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs the worker until ctx is done or Stop is called. Whatever is
// still buffered then gets delivered before the worker exits.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	logger.Log.Info("started email queue", "component", "email_queue", "capacity", cap(q.jobs))
	go func() {
		defer close(q.done)
		for {
			select {
			case n, ok := <-q.jobs:
				if !ok {
					logger.Log.Info("email queue stopped", "component", "email_queue")
					return
				}
				q.deliver(n)
			case <-ctx.Done():
				q.close()
				for n := range q.jobs {
					q.deliver(n)
				}
				logger.Log.Info("email queue shutting down gracefully", "component", "email_queue")
				return
			}
		}
	}()
}

// Stop closes the queue and waits for the worker to drain it.
func (q *Queue) Stop() {
	q.close()
	q.mu.Lock()
	started := q.started
	q.mu.Unlock()
	if started {
		<-q.done
	}
}

func (q *Queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
}

func (q *Queue) deliver(n domain.Notification) {
	if err := q.sender.Send(n); err != nil {
		logger.Log.Error("failed to deliver email",
			"component", "email_queue",
			"account_id", n.RecipientId,
			"error", err)
	}
}
