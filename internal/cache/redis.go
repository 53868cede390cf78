package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	listKeyPrefix = "menu:list:"
	itemKeyPrefix = "menu:item:"
	allCategories = "_all"
)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	if baseTTL <= 0 {
		baseTTL = 15 * time.Minute
	}
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) GetMenu(ctx context.Context, category string) ([]domain.MenuItem, error) {
	var items []domain.MenuItem
	if err := r.get(ctx, listKey(category), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *RedisCache) SetMenu(ctx context.Context, category string, items []domain.MenuItem) error {
	return r.set(ctx, listKey(category), items)
}

func (r *RedisCache) GetItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if err := r.get(ctx, itemKey(id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *RedisCache) SetItem(ctx context.Context, item *domain.MenuItem) error {
	return r.set(ctx, itemKey(item.ID), item)
}

func (r *RedisCache) Invalidate(ctx context.Context, ids ...string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, itemKey(id))
	}

	iter := r.client.Scan(ctx, 0, listKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) get(ctx context.Context, key string, dst any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (r *RedisCache) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	jitter := time.Duration(rand.Intn(5)) * time.Minute
	ttl := r.baseTTL + jitter
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func listKey(category string) string {
	if category == "" {
		category = allCategories
	}
	return listKeyPrefix + category
}

func itemKey(id string) string {
	return fmt.Sprintf("%s%s", itemKeyPrefix, id)
}
