package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/wb-go/wbf/zlog"

	logvault "github.com/dm112-tadbox/log-vault"
	"github.com/dm112-tadbox/log-vault/queue"
)

// NotificatorOptions configure a Notificator.
type NotificatorOptions struct {
	// Store is the shared job store, required.
	Store queue.Store
	// QueueName of the ingestion queue, default logvault.ProjectName().
	QueueName string
	// WorkerOptions tune the ingestion worker.
	WorkerOptions queue.WorkerOptions
}

// Notificator consumes log events from the shared ingestion queue,
// matches each against every registered channel's patterns and fans
// matched events out onto the channels' own queues.
type Notificator struct {
	queueName string
	worker    *queue.Worker

	mu       sync.RWMutex
	channels []Channel
}

// NewNotificator builds a Notificator. Run starts consumption;
// channels registered after an event was evaluated do not receive
// that past event.
func NewNotificator(opts NotificatorOptions) (*Notificator, error) {
	if opts.Store == nil {
		return nil, errors.New("notify: notificator requires a queue store")
	}

	name := opts.QueueName
	if name == "" {
		name = logvault.ProjectName()
	}

	n := &Notificator{queueName: name}
	n.worker = queue.NewWorker(opts.Store, name, n.route, opts.WorkerOptions)
	return n, nil
}

// QueueName returns the resolved name of the ingestion queue.
func (n *Notificator) QueueName() string { return n.queueName }

// Add registers a channel and returns the notificator for chaining.
func (n *Notificator) Add(ch Channel) *Notificator {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = append(n.channels, ch)
	return n
}

// Run starts the ingestion worker and returns the notificator for
// chaining.
func (n *Notificator) Run() *Notificator {
	n.worker.Run()
	return n
}

// Stop closes the ingestion worker; matching in flight for already
// claimed jobs completes first.
func (n *Notificator) Stop(ctx context.Context) error {
	return n.worker.Stop(ctx)
}

// route is the per-job algorithm: match against all channels, enqueue
// on every matching one, let all enqueues settle, then acknowledge.
// Per-channel enqueue failures are logged and surfaced through the
// job result without blocking the other channels.
func (n *Notificator) route(ctx context.Context, job *queue.Job) error {
	var event logvault.LogEvent
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		return fmt.Errorf("unmarshal log event: %w", err)
	}

	n.mu.RLock()
	channels := append([]Channel(nil), n.channels...)
	n.mu.RUnlock()

	var errs []error
	for _, ch := range channels {
		if !Matches(event, ch.MatchPatterns()) {
			continue
		}
		if err := ch.AddToQueue(ctx, event); err != nil {
			zlog.Logger.Error().Err(err).Str("channel", ch.Name()).Msg("failed to enqueue notification")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
