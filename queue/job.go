// Package queue provides the durable job-queue primitives the
// notification pipeline runs on: a Store abstraction over a shared
// key-value/queue backend with push, claim, ack and retry semantics,
// a producer-side Queue handle and a rate-limited Worker loop.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default bounds for how many finished jobs a queue keeps around.
// History is capped so the backing store never grows unbounded.
const (
	DefaultKeepCompleted = 10
	DefaultKeepFailed    = 100
)

// Status is the terminal state of an acknowledged job.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// JobOptions tune retry and retention per enqueued job.
type JobOptions struct {
	// MaxAttempts is the number of processing attempts before the job
	// is moved to the failed history. Values below 1 mean a single
	// attempt, no retry.
	MaxAttempts int
	// KeepCompleted / KeepFailed bound the finished-job history.
	KeepCompleted int
	KeepFailed    int
}

func (o JobOptions) withDefaults() JobOptions {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
	if o.KeepCompleted == 0 {
		o.KeepCompleted = DefaultKeepCompleted
	}
	if o.KeepFailed == 0 {
		o.KeepFailed = DefaultKeepFailed
	}
	return o
}

// Job is one unit of work tracked by a Store until acknowledged.
type Job struct {
	ID            string          `json:"id"`
	Queue         string          `json:"queue"`
	Payload       json.RawMessage `json:"payload"`
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"max_attempts"`
	KeepCompleted int             `json:"keep_completed"`
	KeepFailed    int             `json:"keep_failed"`
	EnqueuedAt    time.Time       `json:"enqueued_at"`
}

// NewJob builds a job with a random id and the given payload,
// marshalled to JSON.
func NewJob(queueName string, payload any, opts JobOptions) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	opts = opts.withDefaults()
	return &Job{
		ID:            uuid.NewString(),
		Queue:         queueName,
		Payload:       body,
		MaxAttempts:   opts.MaxAttempts,
		KeepCompleted: opts.KeepCompleted,
		KeepFailed:    opts.KeepFailed,
		EnqueuedAt:    time.Now(),
	}, nil
}
