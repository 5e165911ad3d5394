package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/Dossier/internal/models"
)

// DefaultList is the Redis list notifications are read from.
const DefaultList = "ingest:events"

// Enqueuer accepts decoded objects for asynchronous ingestion.
type Enqueuer interface {
	Enqueue(src models.SourceObject) error
}

// RedisConsumer pops notifications from a Redis list and queues one
// ingestion per announced object.
type RedisConsumer struct {
	client  *redis.Client
	list    string
	sink    Enqueuer
	logger  *slog.Logger
	wait    time.Duration
	backoff time.Duration
}

// ConsumerOption configures a RedisConsumer.
type ConsumerOption func(*RedisConsumer)

func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(c *RedisConsumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBlockTimeout bounds each BLPOP so cancellation is noticed promptly.
func WithBlockTimeout(d time.Duration) ConsumerOption {
	return func(c *RedisConsumer) {
		if d > 0 {
			c.wait = d
		}
	}
}

// WithBackoff sets the pause after a Redis error.
func WithBackoff(d time.Duration) ConsumerOption {
	return func(c *RedisConsumer) {
		if d > 0 {
			c.backoff = d
		}
	}
}

func NewRedisConsumer(client *redis.Client, list string, sink Enqueuer, opts ...ConsumerOption) *RedisConsumer {
	if list == "" {
		list = DefaultList
	}
	c := &RedisConsumer{
		client:  client,
		list:    list,
		sink:    sink,
		logger:  slog.Default(),
		wait:    5 * time.Second,
		backoff: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run blocks until ctx is canceled. Undecodable notifications are logged
// and dropped.
func (c *RedisConsumer) Run(ctx context.Context) error {
	c.logger.Info("redis consumer listening", "list", c.list)
	for {
		if ctx.Err() != nil {
			return nil
		}
		res, err := c.client.BLPop(ctx, c.wait, c.list).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Warn("redis pop failed", "list", c.list, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}
		// res is [list, value].
		c.handle(res[1])
	}
}

func (c *RedisConsumer) handle(payload string) {
	objects, err := Decode([]byte(payload))
	if err != nil {
		c.logger.Error("notification dropped", "list", c.list, "error", err)
		return
	}
	for _, obj := range objects {
		if err := c.sink.Enqueue(obj); err != nil {
			c.logger.Error("enqueue failed", "object_key", obj.ObjectKey, "error", err)
		}
	}
}
