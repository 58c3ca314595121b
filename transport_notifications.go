package logvault

import (
	"context"
	"errors"
	"time"

	"github.com/wb-go/wbf/retry"

	"github.com/dm112-tadbox/log-vault/queue"
)

// NotificationsTransportOptions configure a NotificationsTransport.
type NotificationsTransportOptions struct {
	// Store is the shared job store the notification pipeline runs on.
	Store queue.Store
	// QueueName of the ingestion queue, default ProjectName().
	QueueName string
	// JobOptions for ingestion jobs (retry/retention bounds).
	JobOptions queue.JobOptions
	// Strategy retries the enqueue on store hiccups before giving up.
	Strategy retry.Strategy
}

// NotificationsTransport pushes every log event onto the shared
// ingestion queue consumed by a notify.Notificator. This is the sole
// input boundary of the notification pipeline.
type NotificationsTransport struct {
	queue    *queue.Queue
	strategy retry.Strategy
}

// NewNotificationsTransport builds the transport.
func NewNotificationsTransport(opts NotificationsTransportOptions) (*NotificationsTransport, error) {
	if opts.Store == nil {
		return nil, errors.New("logvault: notifications transport requires a queue store")
	}

	name := opts.QueueName
	if name == "" {
		name = ProjectName()
	}

	strategy := opts.Strategy
	if strategy.Attempts < 1 {
		strategy = retry.Strategy{Attempts: 3, Delay: 100 * time.Millisecond, Backoff: 2}
	}

	return &NotificationsTransport{
		queue:    queue.New(opts.Store, name, opts.JobOptions),
		strategy: strategy,
	}, nil
}

// QueueName returns the ingestion queue name the transport writes to.
func (t *NotificationsTransport) QueueName() string { return t.queue.Name() }

func (t *NotificationsTransport) Log(ctx context.Context, event LogEvent) error {
	return retry.Do(func() error {
		_, err := t.queue.Add(ctx, event)
		return err
	}, t.strategy)
}

func (t *NotificationsTransport) Close(context.Context) error { return nil }
