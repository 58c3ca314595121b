package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/wb-go/wbf/retry"
)

const claimBlock = time.Second

// RedisOptions configure a RedisStore. The connection is explicit per
// store so independently configured stores can coexist in one process.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces every key written by the store.
	// Defaults to "log-vault".
	KeyPrefix string
	// Strategy is applied to write operations (enqueue, ack, requeue)
	// so a briefly unreachable store does not lose jobs.
	Strategy retry.Strategy
}

// RedisStore keeps each named queue as a pair of redis lists (waiting
// and active job ids) plus one JSON value per job and two bounded
// history lists. All queues share one connection but are isolated by
// key.
type RedisStore struct {
	client   *redis.Client
	prefix   string
	strategy retry.Strategy
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "log-vault"
	}

	strategy := opts.Strategy
	if strategy.Attempts < 1 {
		strategy = retry.Strategy{Attempts: 3, Delay: 100 * time.Millisecond, Backoff: 2}
	}

	return &RedisStore{client: client, prefix: prefix, strategy: strategy}, nil
}

func (s *RedisStore) waitKey(q string) string   { return s.prefix + ":" + q + ":wait" }
func (s *RedisStore) activeKey(q string) string { return s.prefix + ":" + q + ":active" }
func (s *RedisStore) jobKey(q, id string) string {
	return s.prefix + ":" + q + ":job:" + id
}
func (s *RedisStore) historyKey(q string, status Status) string {
	return s.prefix + ":" + q + ":" + string(status)
}

func (s *RedisStore) Enqueue(ctx context.Context, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return retry.Do(func() error {
		pipe := s.client.TxPipeline()
		pipe.Set(ctx, s.jobKey(job.Queue, job.ID), body, 0)
		pipe.LPush(ctx, s.waitKey(job.Queue), job.ID)
		_, err := pipe.Exec(ctx)
		if err != nil {
			return fmt.Errorf("enqueue job %s: %w", job.ID, err)
		}
		return nil
	}, s.strategy)
}

func (s *RedisStore) Claim(ctx context.Context, queueName string) (*Job, error) {
	for {
		id, err := s.client.BRPopLPush(ctx, s.waitKey(queueName), s.activeKey(queueName), claimBlock).Result()
		if errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("claim from %s: %w", queueName, err)
		}

		body, err := s.client.Get(ctx, s.jobKey(queueName, id)).Bytes()
		if errors.Is(err, redis.Nil) {
			// Orphaned id without a job body; drop it and keep claiming.
			s.client.LRem(ctx, s.activeKey(queueName), 1, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load job %s: %w", id, err)
		}

		var job Job
		if err := json.Unmarshal(body, &job); err != nil {
			s.client.LRem(ctx, s.activeKey(queueName), 1, id)
			return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
		}
		return &job, nil
	}
}

func (s *RedisStore) Ack(ctx context.Context, job *Job, status Status) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	keep := int64(job.KeepCompleted)
	if status == StatusFailed {
		keep = int64(job.KeepFailed)
	}

	return retry.Do(func() error {
		pipe := s.client.TxPipeline()
		pipe.LRem(ctx, s.activeKey(job.Queue), 1, job.ID)
		pipe.Del(ctx, s.jobKey(job.Queue, job.ID))
		if keep > 0 {
			key := s.historyKey(job.Queue, status)
			pipe.LPush(ctx, key, body)
			pipe.LTrim(ctx, key, 0, keep-1)
		}
		_, err := pipe.Exec(ctx)
		if err != nil {
			return fmt.Errorf("ack job %s: %w", job.ID, err)
		}
		return nil
	}, s.strategy)
}

func (s *RedisStore) Requeue(ctx context.Context, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return retry.Do(func() error {
		pipe := s.client.TxPipeline()
		pipe.Set(ctx, s.jobKey(job.Queue, job.ID), body, 0)
		pipe.LRem(ctx, s.activeKey(job.Queue), 1, job.ID)
		pipe.LPush(ctx, s.waitKey(job.Queue), job.ID)
		_, err := pipe.Exec(ctx)
		if err != nil {
			return fmt.Errorf("requeue job %s: %w", job.ID, err)
		}
		return nil
	}, s.strategy)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
