package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/haripatel07/ecommerce-backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisProductCache(client *redis.Client, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{
		client:  client,
		baseTTL: ttl,
	}
}

type RedisProductCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisProductCache) GetMany(ctx context.Context, ids []string) (map[string]*domain.Product, []string, error) {
	found := make(map[string]*domain.Product, len(ids))
	if len(ids) == 0 {
		return found, nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, ids, fmt.Errorf("redis mget failed: %w", err)
	}

	var missed []string
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			missed = append(missed, ids[i])
			continue
		}
		var p domain.Product
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			missed = append(missed, ids[i])
			continue
		}
		found[ids[i]] = &p
	}

	return found, missed, nil
}

func (r *RedisProductCache) SetMany(ctx context.Context, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal product failed: %w", err)
		}
		pipe.Set(ctx, productKey(p.ID), data, r.ttl())
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// ttl spreads expirations so a warm catalog does not expire all at once.
func (r *RedisProductCache) ttl() time.Duration {
	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/5) + 1))
	return r.baseTTL + jitter
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

func NewRedisEventLog(client *redis.Client, ttl time.Duration) *RedisEventLog {
	return &RedisEventLog{
		client: client,
		ttl:    ttl,
	}
}

type RedisEventLog struct {
	client *redis.Client
	ttl    time.Duration
}

func (r *RedisEventLog) Seen(ctx context.Context, eventID string) (bool, error) {
	err := r.client.Get(ctx, eventKey(eventID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	return true, nil
}

func (r *RedisEventLog) Remember(ctx context.Context, eventID string) error {
	if err := r.client.Set(ctx, eventKey(eventID), time.Now().UTC().Format(time.RFC3339), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func eventKey(eventID string) string {
	return fmt.Sprintf("webhook:event:%s", eventID)
}
