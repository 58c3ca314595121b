package notify

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	logvault "github.com/dm112-tadbox/log-vault"
	"github.com/dm112-tadbox/log-vault/queue"
)

//go:generate mockgen -source=channel.go -destination=../internal/mocks/notify/mock.go -package=mocks

// Channel is an isolated queue+worker pair delivering matched events
// to one external destination. Channels never share backpressure: a
// slow or stopped channel cannot affect another.
type Channel interface {
	// Name identifies the channel and its underlying queue.
	Name() string
	// MatchPatterns returns the filter list routed against. Empty
	// means match everything.
	MatchPatterns() []MatchPattern
	// AddToQueue enqueues the event for asynchronous delivery and
	// returns once the job is durably stored.
	AddToQueue(ctx context.Context, event logvault.LogEvent) error
	// Stop closes the channel's worker. Jobs already claimed finish,
	// no new jobs are accepted afterwards.
	Stop(ctx context.Context) error
}

// ProcessOptions bind a channel to its queue and worker.
type ProcessOptions struct {
	QueueName     string
	Store         queue.Store
	Processor     queue.Processor
	JobOptions    queue.JobOptions
	WorkerOptions queue.WorkerOptions
}

// QueueChannel is the common queue+worker core concrete channels are
// built from by composition. It is exported so channel types outside
// this package (a webhook channel, say) can be assembled the same way.
type QueueChannel struct {
	name     string
	patterns []MatchPattern
	queue    *queue.Queue
	worker   *queue.Worker
	stopped  atomic.Bool
}

// ErrChannelStopped is returned by AddToQueue after Stop.
var ErrChannelStopped = errors.New("notify: channel is stopped")

// NewQueueChannel builds an unbound channel core holding the given
// patterns. Process must be called exactly once before use.
func NewQueueChannel(patterns []MatchPattern) *QueueChannel {
	return &QueueChannel{patterns: append([]MatchPattern(nil), patterns...)}
}

// Process binds the channel's queue and worker and starts consumption.
// It errors when called twice or with incomplete options.
func (c *QueueChannel) Process(opts ProcessOptions) error {
	if c.queue != nil {
		return errors.New("notify: channel is already bound")
	}
	if opts.Store == nil {
		return errors.New("notify: channel requires a queue store")
	}
	if opts.QueueName == "" {
		return errors.New("notify: channel requires a queue name")
	}
	if opts.Processor == nil {
		return errors.New("notify: channel requires a processor")
	}

	c.name = opts.QueueName
	c.queue = queue.New(opts.Store, opts.QueueName, opts.JobOptions)
	c.worker = queue.NewWorker(opts.Store, opts.QueueName, opts.Processor, opts.WorkerOptions)
	c.worker.Run()
	return nil
}

func (c *QueueChannel) Name() string { return c.name }

func (c *QueueChannel) MatchPatterns() []MatchPattern { return c.patterns }

// AddToQueue enqueues the event on the channel's own queue. Store
// failures propagate to the caller.
func (c *QueueChannel) AddToQueue(ctx context.Context, event logvault.LogEvent) error {
	if c.queue == nil {
		return errors.New("notify: channel is not bound")
	}
	if c.stopped.Load() {
		return fmt.Errorf("channel %s: %w", c.name, ErrChannelStopped)
	}
	if _, err := c.queue.Add(ctx, event); err != nil {
		return fmt.Errorf("channel %s: %w", c.name, err)
	}
	return nil
}

// Stop shuts the channel's worker down cooperatively. The channel
// accepts no new jobs afterwards.
func (c *QueueChannel) Stop(ctx context.Context) error {
	c.stopped.Store(true)
	if c.worker == nil {
		return nil
	}
	return c.worker.Stop(ctx)
}
