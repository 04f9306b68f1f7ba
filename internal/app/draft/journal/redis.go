package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "draft:journal:"

// Redis is a Journal that keeps one hash per draft (field -> JSON value).
// Every write refreshes the key's TTL so abandoned drafts expire on their own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a go-redis client for the journal.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedis wraps client. A non-positive ttl disables expiry.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func redisKey(draftID string) string {
	return redisKeyPrefix + draftID
}

func (r *Redis) Put(ctx context.Context, draftID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(fields))
	for field, v := range fields {
		raw, err := encodeValue(field, v)
		if err != nil {
			return err
		}
		values[field] = raw
	}

	key := redisKey(draftID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, values)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("journal: redis put %s: %w", draftID, err)
	}
	return nil
}

func (r *Redis) Load(ctx context.Context, draftID string) (map[string]any, error) {
	raw, err := r.client.HGetAll(ctx, redisKey(draftID)).Result()
	if err != nil {
		return nil, fmt.Errorf("journal: redis load %s: %w", draftID, err)
	}
	out := make(map[string]any, len(raw))
	for field, s := range raw {
		v, err := decodeValue(field, s)
		if err != nil {
			return nil, err
		}
		out[field] = v
	}
	return out, nil
}

func (r *Redis) Discard(ctx context.Context, draftID string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return r.client.HDel(ctx, redisKey(draftID), fields...).Err()
}

func (r *Redis) Purge(ctx context.Context, draftID string) error {
	return r.client.Del(ctx, redisKey(draftID)).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
