package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned by store operations after Close.
var ErrClosed = errors.New("queue: store is closed")

// Store is the shared job store all queues and workers operate on.
// Queues are logically isolated by name: no operation on one queue
// name can observe or block another.
type Store interface {
	// Enqueue makes the job durable and visible to workers of its
	// queue. It returns once the backing store acknowledged the write.
	Enqueue(ctx context.Context, job *Job) error

	// Claim atomically moves the oldest waiting job of the named queue
	// into the active set and returns it. It blocks until a job is
	// available or ctx is done.
	Claim(ctx context.Context, queueName string) (*Job, error)

	// Ack removes a claimed job from the active set and records it in
	// the bounded completed or failed history.
	Ack(ctx context.Context, job *Job, status Status) error

	// Requeue puts a claimed job back on the waiting list for another
	// attempt. The job's attempt counter is preserved as passed.
	Requeue(ctx context.Context, job *Job) error

	// Close releases the store connection. Claim calls in flight
	// return ErrClosed.
	Close() error
}
