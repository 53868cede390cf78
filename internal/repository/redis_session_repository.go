package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/redis/go-redis/v9"
)

// redisSessionRepository stores each cart as a JSON value whose key expires
// together with the cart.
type redisSessionRepository struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisSessionRepository(client *redis.Client) SessionRepository {
	return &redisSessionRepository{client: client, now: time.Now}
}

func (r *redisSessionRepository) GetSession(ctx context.Context, userID string) (*domain.CartSession, error) {
	data, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var session domain.CartSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal cart session failed: %w", err)
	}
	session.UserID = userID
	return &session, nil
}

func (r *redisSessionRepository) PutSession(ctx context.Context, userID string, items []domain.LineItem, expiresAt time.Time) error {
	now := r.now()
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return r.DeleteSession(ctx, userID)
	}

	data, err := json.Marshal(domain.CartSession{
		UserID:    userID,
		Items:     items,
		ExpiresAt: expiresAt,
		UpdatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("marshal cart session failed: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisSessionRepository) DeleteSession(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func sessionKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
