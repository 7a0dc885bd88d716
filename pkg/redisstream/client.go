package redisstream

import (
	"context"
	"strings"

	"github.com/Ben-Nachmanson/Fill-Flow/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Client defines the interface for the Redis Streams operations used by the
// event pipeline.
//
//go:generate mockgen -source client.go -destination=mock/client_mock.go -package=redisstream_mock
type Client interface {
	Ping(ctx context.Context) error
	Close() error

	XAdd(ctx context.Context, args *redis.XAddArgs) (string, error)
	XLen(ctx context.Context, stream string) (int64, error)
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) error
	XReadGroup(ctx context.Context, args *redis.XReadGroupArgs) ([]redis.XStream, error)
	XAck(ctx context.Context, stream, group string, ids ...string) (int64, error)
	XPendingExt(ctx context.Context, args *redis.XPendingExtArgs) ([]redis.XPendingExt, error)
	XClaim(ctx context.Context, args *redis.XClaimArgs) ([]redis.XMessage, error)
}

type client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis Streams client and verifies connectivity.
func NewClient(ctx context.Context, config *Config) (Client, error) {
	if config == nil {
		return nil, errors.NewErrorDetails("Redis config is nil", string(errors.RedisConfigError), "config")
	}
	if config.Addr == "" {
		return nil, errors.NewErrorDetails("Redis address is empty", string(errors.RedisConfigError), "addr")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.NewErrorDetails("Failed to connect to Redis", string(errors.RedisConnectionError), "connect")
	}

	return &client{rdb: rdb}, nil
}

// NewClientFromRedis wraps an existing go-redis client. Used by tests that run
// against an in-process Redis.
func NewClientFromRedis(rdb *redis.Client) Client {
	return &client{rdb: rdb}
}

func (c *client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.NewErrorDetails("Failed to ping Redis", string(errors.RedisPingError), "ping")
	}
	return nil
}

func (c *client) Close() error {
	return c.rdb.Close()
}

func (c *client) XAdd(ctx context.Context, args *redis.XAddArgs) (string, error) {
	id, err := c.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", errors.NewErrorDetails("Failed to add entry to stream", string(errors.RedisXAddError), "xadd")
	}
	return id, nil
}

func (c *client) XLen(ctx context.Context, stream string) (int64, error) {
	length, err := c.rdb.XLen(ctx, stream).Result()
	if err != nil {
		return 0, errors.NewErrorDetails("Failed to get stream length", string(errors.RedisXLenError), "xlen")
	}
	return length, nil
}

// XGroupCreateMkStream creates a consumer group, creating the stream if it
// does not exist yet. Creating a group that already exists is a no-op.
func (c *client) XGroupCreateMkStream(ctx context.Context, stream, group, start string) error {
	err := c.rdb.XGroupCreateMkStream(ctx, stream, group, start).Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return errors.NewErrorDetails("Failed to create consumer group", string(errors.RedisXGroupCreateError), "xgroupcreate")
	}
	return nil
}

// XReadGroup reads new entries for the consumer group, blocking up to
// args.Block. An empty read (timeout) returns a nil slice, not an error.
func (c *client) XReadGroup(ctx context.Context, args *redis.XReadGroupArgs) ([]redis.XStream, error) {
	streams, err := c.rdb.XReadGroup(ctx, args).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewErrorDetails("Failed to read from stream group", string(errors.RedisXReadGroupError), "xreadgroup")
	}
	return streams, nil
}

func (c *client) XAck(ctx context.Context, stream, group string, ids ...string) (int64, error) {
	acked, err := c.rdb.XAck(ctx, stream, group, ids...).Result()
	if err != nil {
		return 0, errors.NewErrorDetails("Failed to acknowledge stream entry", string(errors.RedisXAckError), "xack")
	}
	return acked, nil
}

func (c *client) XPendingExt(ctx context.Context, args *redis.XPendingExtArgs) ([]redis.XPendingExt, error) {
	pending, err := c.rdb.XPendingExt(ctx, args).Result()
	if err != nil {
		return nil, errors.NewErrorDetails("Failed to inspect pending stream entries", string(errors.RedisXPendingError), "xpending")
	}
	return pending, nil
}

func (c *client) XClaim(ctx context.Context, args *redis.XClaimArgs) ([]redis.XMessage, error) {
	messages, err := c.rdb.XClaim(ctx, args).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewErrorDetails("Failed to claim pending stream entries", string(errors.RedisXClaimError), "xclaim")
	}
	return messages, nil
}
