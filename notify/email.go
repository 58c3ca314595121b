package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"

	logvault "github.com/dm112-tadbox/log-vault"
	"github.com/dm112-tadbox/log-vault/pkg/email"
	"github.com/dm112-tadbox/log-vault/queue"
)

// EmailChannelOptions configure an EmailChannel. From and To identify
// the destination and form the channel's queue name.
type EmailChannelOptions struct {
	SMTPHost string `validate:"required"`
	SMTPPort int    `validate:"required"`
	Username string
	Password string
	From     string `validate:"required"`
	To       string `validate:"required"`
	// Subject of each notification mail, default "Log notification".
	Subject string
	// MatchPatterns filter routed events; empty matches everything.
	MatchPatterns []MatchPattern
	// Store is the shared job store, required.
	Store queue.Store `validate:"required"`
	// WorkerOptions tune the delivery worker.
	WorkerOptions queue.WorkerOptions
	// JobOptions tune retry/retention for delivery jobs.
	JobOptions queue.JobOptions
}

// EmailChannel delivers matched log events to one mailbox as plain
// text. Like the Telegram channel, send failures are logged and
// dropped rather than retried.
type EmailChannel struct {
	*QueueChannel

	to      string
	subject string
	client  *email.Client
}

// NewEmailChannel validates opts, binds the channel queue+worker and
// starts the delivery loop.
func NewEmailChannel(opts EmailChannelOptions) (*EmailChannel, error) {
	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("email channel options: %w", err)
	}

	subject := opts.Subject
	if subject == "" {
		subject = "Log notification"
	}

	ch := &EmailChannel{
		QueueChannel: NewQueueChannel(opts.MatchPatterns),
		to:           opts.To,
		subject:      subject,
		client:       email.NewClient(opts.SMTPHost, opts.SMTPPort, opts.Username, opts.Password, opts.From),
	}

	err := ch.Process(ProcessOptions{
		QueueName:     fmt.Sprintf("%s:%s", opts.From, opts.To),
		Store:         opts.Store,
		Processor:     ch.deliver,
		JobOptions:    opts.JobOptions,
		WorkerOptions: opts.WorkerOptions,
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *EmailChannel) deliver(_ context.Context, job *queue.Job) error {
	var event logvault.LogEvent
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		zlog.Logger.Error().Err(err).Str("job", job.ID).Msg("failed to unmarshal notification payload")
		return nil
	}

	if err := c.client.Send(c.to, c.subject, renderPlainText(event)); err != nil {
		zlog.Logger.Error().Err(err).Str("channel", c.Name()).Str("job", job.ID).Msg("failed to send notification mail")
	}
	return nil
}

// renderPlainText lays the event out as a simple text body: headline,
// meta lines, JSON message.
func renderPlainText(event logvault.LogEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s log message\n", formatTimestamp(event.Timestamp), event.Level)

	labels := make([]string, 0, len(event.Meta))
	for label := range event.Meta {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(&b, "%s: %s\n", label, event.Meta[label])
	}

	body, err := json.MarshalIndent(event.Message, "", "  ")
	if err != nil {
		body = []byte(fmt.Sprintf("%v", event.Message))
	}
	message, shrunk := shrinkString(string(body), ShrinkLimit)
	b.WriteString("\n")
	b.WriteString(message)
	if shrunk {
		fmt.Fprintf(&b, "\n\n(the message is shrunk as it's over %d characters length)", ShrinkLimit)
	}
	return b.String()
}
