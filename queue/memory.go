package queue

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store with the same contract as
// RedisStore. It backs broker-less embeddings and tests.
type MemoryStore struct {
	mu     sync.Mutex
	queues map[string]*memoryQueue
	closed bool
}

type memoryQueue struct {
	wait      []*Job
	active    map[string]*Job
	completed []*Job
	failed    []*Job
	signal    chan struct{}
}

// Counts is a point-in-time snapshot of one queue's job counts.
type Counts struct {
	Waiting   int
	Active    int
	Completed int
	Failed    int
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{queues: make(map[string]*memoryQueue)}
}

func (s *MemoryStore) queue(name string) *memoryQueue {
	q, ok := s.queues[name]
	if !ok {
		q = &memoryQueue{
			active: make(map[string]*Job),
			signal: make(chan struct{}, 1),
		}
		s.queues[name] = q
	}
	return q
}

func (s *MemoryStore) Enqueue(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	q := s.queue(job.Queue)
	cp := *job
	q.wait = append(q.wait, &cp)
	q.notify()
	return nil
}

func (s *MemoryStore) Claim(ctx context.Context, queueName string) (*Job, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrClosed
		}
		q := s.queue(queueName)
		if len(q.wait) > 0 {
			job := q.wait[0]
			q.wait = q.wait[1:]
			q.active[job.ID] = job
			if len(q.wait) > 0 {
				q.notify()
			}
			cp := *job
			s.mu.Unlock()
			return &cp, nil
		}
		signal := q.signal
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-signal:
		}
	}
}

func (s *MemoryStore) Ack(_ context.Context, job *Job, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	q := s.queue(job.Queue)
	delete(q.active, job.ID)

	cp := *job
	switch status {
	case StatusFailed:
		q.failed = appendBounded(q.failed, &cp, job.KeepFailed)
	default:
		q.completed = appendBounded(q.completed, &cp, job.KeepCompleted)
	}
	return nil
}

func (s *MemoryStore) Requeue(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	q := s.queue(job.Queue)
	delete(q.active, job.ID)
	cp := *job
	q.wait = append(q.wait, &cp)
	q.notify()
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	// Wake up blocked Claim calls so they observe the closed flag.
	for _, q := range s.queues {
		close(q.signal)
	}
	return nil
}

// JobCounts reports the current counts for the named queue.
func (s *MemoryStore) JobCounts(queueName string) Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue(queueName)
	return Counts{
		Waiting:   len(q.wait),
		Active:    len(q.active),
		Completed: len(q.completed),
		Failed:    len(q.failed),
	}
}

// FinishedJobs returns the retained history for the named queue.
func (s *MemoryStore) FinishedJobs(queueName string, status Status) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queue(queueName)
	src := q.completed
	if status == StatusFailed {
		src = q.failed
	}
	out := make([]*Job, len(src))
	copy(out, src)
	return out
}

func (q *memoryQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// appendBounded keeps the newest job first and trims to limit entries.
func appendBounded(jobs []*Job, job *Job, limit int) []*Job {
	jobs = append([]*Job{job}, jobs...)
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs
}
