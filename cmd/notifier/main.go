// Command notifier runs the notification routing pipeline: it consumes
// log events from the shared ingestion queue and fans matched events
// out to the configured channels. The producing side is any process
// logging through the logvault facade with a notifications transport.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	logvault "github.com/dm112-tadbox/log-vault"
	"github.com/dm112-tadbox/log-vault/config"
	"github.com/dm112-tadbox/log-vault/notify"
	"github.com/dm112-tadbox/log-vault/queue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Init()

	cfg, err := config.Load()
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := queue.NewRedisStore(ctx, queue.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Strategy: retry.Strategy{
			Attempts: cfg.Retry.Attempts,
			Delay:    cfg.Retry.Delay,
			Backoff:  cfg.Retry.Backoff,
		},
	})
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	token := os.Getenv("TELEGRAM_TOKEN")
	chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
	if err != nil || token == "" {
		zlog.Logger.Fatal().Msg("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set")
	}

	channel, err := notify.NewTelegramChannel(notify.TelegramChannelOptions{
		Token:  token,
		ChatID: chatID,
		Store:  store,
		MatchPatterns: []notify.MatchPattern{
			{Level: logvault.LevelError},
			{Level: logvault.LevelWarn},
		},
	})
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to create telegram channel")
	}

	notificator, err := notify.NewNotificator(notify.NotificatorOptions{
		Store:     store,
		QueueName: cfg.QueueName,
	})
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to create notificator")
	}

	notificator.Add(channel).Run()
	zlog.Logger.Info().Str("queue", notificator.QueueName()).Msg("notificator started")

	<-ctx.Done()
	zlog.Logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := notificator.Stop(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to stop notificator")
	}
	if err := channel.Stop(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to stop channel")
	}
	if err := store.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close store")
	}
}
