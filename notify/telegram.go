package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"

	logvault "github.com/dm112-tadbox/log-vault"
	"github.com/dm112-tadbox/log-vault/pkg/telegram"
	"github.com/dm112-tadbox/log-vault/queue"
)

// DefaultTelegramRateLimit keeps well under the Bot API per-chat cap:
// at most one message per five seconds.
var DefaultTelegramRateLimit = queue.RateLimit{Max: 1, Per: 5 * time.Second}

// TelegramChannelOptions configure a TelegramChannel. Token and ChatID
// together identify the destination and form the channel's queue name,
// so distinct destinations never share a queue, worker or rate limit.
type TelegramChannelOptions struct {
	Token  string `validate:"required"`
	ChatID int64  `validate:"required"`
	// Host overrides the Bot API host (tests, proxies).
	Host string
	// Template overrides DefaultTelegramTemplate.
	Template string
	// MatchPatterns filter routed events; empty matches everything.
	MatchPatterns []MatchPattern
	// Store is the shared job store, required.
	Store queue.Store `validate:"required"`
	// WorkerOptions tune the delivery worker; a zero Limiter gets
	// DefaultTelegramRateLimit.
	WorkerOptions queue.WorkerOptions
	// JobOptions tune retry/retention for delivery jobs.
	JobOptions queue.JobOptions
}

// TelegramChannel delivers matched log events to one Telegram chat,
// rendered as MarkdownV2. Send failures are logged and the job is
// still acknowledged: an unreachable chat must not pile up retries or
// affect other channels.
type TelegramChannel struct {
	*QueueChannel

	chatID int64
	tmpl   *template.Template
	client *telegram.Client
}

// NewTelegramChannel validates opts, binds the channel queue+worker
// and starts the delivery loop.
func NewTelegramChannel(opts TelegramChannelOptions) (*TelegramChannel, error) {
	if err := validator.New().Struct(opts); err != nil {
		return nil, fmt.Errorf("telegram channel options: %w", err)
	}

	text := opts.Template
	if text == "" {
		text = DefaultTelegramTemplate
	}
	tmpl, err := template.New("telegram").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse telegram template: %w", err)
	}

	ch := &TelegramChannel{
		QueueChannel: NewQueueChannel(opts.MatchPatterns),
		chatID:       opts.ChatID,
		tmpl:         tmpl,
		client:       telegram.NewClient(opts.Host, opts.Token),
	}

	workerOpts := opts.WorkerOptions
	if workerOpts.Limiter == nil {
		limit := DefaultTelegramRateLimit
		workerOpts.Limiter = &limit
	}

	err = ch.Process(ProcessOptions{
		QueueName:     fmt.Sprintf("%s:%d", opts.Token, opts.ChatID),
		Store:         opts.Store,
		Processor:     ch.deliver,
		JobOptions:    opts.JobOptions,
		WorkerOptions: workerOpts,
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// deliver renders and sends one claimed job. It always returns nil:
// delivery failures are logged and dropped, an explicit
// availability-over-completeness choice.
func (c *TelegramChannel) deliver(ctx context.Context, job *queue.Job) error {
	var event logvault.LogEvent
	if err := json.Unmarshal(job.Payload, &event); err != nil {
		zlog.Logger.Error().Err(err).Str("job", job.ID).Msg("failed to unmarshal notification payload")
		return nil
	}

	text, err := renderMessage(c.tmpl, event)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("job", job.ID).Msg("failed to render telegram message")
		return nil
	}

	if err := c.client.SendMessage(ctx, c.chatID, text, telegram.ParseModeMarkdownV2); err != nil {
		zlog.Logger.Error().Err(err).Str("channel", c.Name()).Str("job", job.ID).Msg("failed to send telegram message")
	}
	return nil
}
