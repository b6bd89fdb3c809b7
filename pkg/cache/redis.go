package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(addr, password string, db, poolSize, minIdleConns int) *RedisClient {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     poolSize,
		MinIdleConns: minIdleConns,
	})

	return &RedisClient{client: client}
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return r.client.HGetAll(ctx, key).Result()
}

// SetHash replaces key with fields and sets its expiry in one round trip.
func (r *RedisClient) SetHash(ctx context.Context, key string, fields map[string]interface{}, expiration time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, expiration)
	_, err := pipe.Exec(ctx)
	return err
}

// Counter returns the integer stored at key, or 0 when it is missing.
func (r *RedisClient) Counter(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// DeleteAndIncr deletes keys and bumps every counter in one transaction.
// Counters get expiration when it is positive.
func (r *RedisClient) DeleteAndIncr(ctx context.Context, counters []string, expiration time.Duration, keys ...string) error {
	pipe := r.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	for _, counter := range counters {
		pipe.Incr(ctx, counter)
		if expiration > 0 {
			pipe.Expire(ctx, counter, expiration)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

// SetHashIfCounter works like SetHash but only while counter still holds
// want. It reports whether the hash was written.
func (r *RedisClient) SetHashIfCounter(ctx context.Context, key string, fields map[string]interface{}, expiration time.Duration, counter string, want int64) (bool, error) {
	written := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Get(ctx, counter).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if n != want {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, expiration)
			return nil
		})
		if err != nil {
			return err
		}
		written = true
		return nil
	}, counter)
	if err == redis.TxFailedErr {
		// counter changed under us
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return written, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
