// Package config loads the default connection and tuning values from
// the environment. Nothing here is process-global: the loaded Config
// is an explicit value threaded into store and channel construction,
// so independently configured instances can coexist in one process.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Redis holds connection parameters for the shared job store.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Retry tunes write retries against the job store.
type Retry struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
	Backoff  float64       `mapstructure:"backoff"`
}

// Config is the environment-derived default configuration. Every value
// can be overridden per construction site.
type Config struct {
	// QueueName of the shared ingestion queue. Empty means derive it
	// from the project directory.
	QueueName string `mapstructure:"queue_name"`
	Redis     Redis  `mapstructure:"redis"`
	Retry     Retry  `mapstructure:"retry"`
}

// Load reads configuration from LOG_VAULT_* environment variables,
// falling back to local defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LOG_VAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("queue_name", "")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 100*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)

	// AutomaticEnv alone does not surface env values through
	// Unmarshal; bind each known key explicitly.
	for _, key := range []string{
		"queue_name",
		"redis.addr", "redis.password", "redis.db",
		"retry.attempts", "retry.delay", "retry.backoff",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
