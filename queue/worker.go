package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/time/rate"
)

// Processor handles one claimed job. A non-nil error triggers a retry
// until the job's MaxAttempts is exhausted, then the job is recorded
// as failed.
type Processor func(ctx context.Context, job *Job) error

// RateLimit caps job processing at Max jobs per Per window.
type RateLimit struct {
	Max int
	Per time.Duration
}

// WorkerOptions tune a worker.
type WorkerOptions struct {
	// Concurrency is the number of parallel claim loops, default 1.
	Concurrency int
	// Limiter, when set, is shared by all of the worker's loops.
	Limiter *RateLimit
}

// Worker drains one named queue, applying the configured rate limit
// and retry policy. Stop is cooperative: claimed jobs finish, no new
// jobs are claimed afterwards.
type Worker struct {
	store     Store
	queueName string
	proc      Processor
	opts      WorkerOptions
	limiter   *rate.Limiter

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewWorker builds a worker bound to queueName. Run must be called to
// start consumption.
func NewWorker(store Store, queueName string, proc Processor, opts WorkerOptions) *Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	var limiter *rate.Limiter
	if rl := opts.Limiter; rl != nil && rl.Max > 0 && rl.Per > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rl.Max)/rl.Per.Seconds()), rl.Max)
	}

	return &Worker{
		store:     store,
		queueName: queueName,
		proc:      proc,
		opts:      opts,
		limiter:   limiter,
	}
}

// Run starts the claim loops. Calling Run on a running worker is a
// no-op.
func (w *Worker) Run() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return
	}
	w.started = true

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < w.opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	go func() {
		wg.Wait()
		close(w.done)
	}()
}

// Stop cancels the claim loops and waits for in-flight jobs to finish
// or ctx to expire.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop worker %s: %w", w.queueName, ctx.Err())
	}
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				return
			}
		}

		job, err := w.store.Claim(ctx, w.queueName)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return
			}
			zlog.Logger.Error().Err(err).Str("queue", w.queueName).Msg("failed to claim job")
			time.Sleep(time.Second)
			continue
		}

		w.handle(ctx, job)
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	err := w.process(ctx, job)
	if err == nil {
		w.ack(job, StatusCompleted)
		return
	}

	job.Attempts++
	if job.Attempts < job.MaxAttempts {
		zlog.Logger.Warn().Err(err).Str("queue", w.queueName).Str("job", job.ID).
			Int("attempt", job.Attempts).Int("max_attempts", job.MaxAttempts).
			Msg("job failed, requeueing")
		if reqErr := w.store.Requeue(context.Background(), job); reqErr != nil {
			zlog.Logger.Error().Err(reqErr).Str("queue", w.queueName).Str("job", job.ID).Msg("failed to requeue job")
		}
		return
	}

	zlog.Logger.Error().Err(err).Str("queue", w.queueName).Str("job", job.ID).
		Int("attempts", job.Attempts).Msg("job failed permanently")
	w.ack(job, StatusFailed)
}

// process guards the worker loop from a panicking processor.
func (w *Worker) process(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return w.proc(ctx, job)
}

// ack uses a background context: an already processed job must be
// acknowledged even when the worker is shutting down.
func (w *Worker) ack(job *Job, status Status) {
	if err := w.store.Ack(context.Background(), job, status); err != nil {
		zlog.Logger.Error().Err(err).Str("queue", w.queueName).Str("job", job.ID).Msg("failed to ack job")
	}
}
