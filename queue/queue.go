package queue

import (
	"context"
	"fmt"
)

// Queue is a producer handle bound to one queue name.
type Queue struct {
	store Store
	name  string
	opts  JobOptions
}

// New builds a producer handle. Job options apply to every job added
// through this handle.
func New(store Store, name string, opts JobOptions) *Queue {
	return &Queue{store: store, name: name, opts: opts.withDefaults()}
}

// Name returns the queue name.
func (q *Queue) Name() string { return q.name }

// Add enqueues payload as a new job with a random id and returns the
// id once the job is durably stored. Store failures are returned to
// the caller, never swallowed.
func (q *Queue) Add(ctx context.Context, payload any) (string, error) {
	job, err := NewJob(q.name, payload, q.opts)
	if err != nil {
		return "", err
	}
	if err := q.store.Enqueue(ctx, job); err != nil {
		return "", fmt.Errorf("add to queue %s: %w", q.name, err)
	}
	return job.ID, nil
}
