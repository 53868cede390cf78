package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client, 10*time.Minute)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func pizza() *domain.MenuItem {
	return &domain.MenuItem{
		ID:        "pizza",
		Name:      "Margherita",
		Category:  "mains",
		Price:     12,
		Available: true,
		Sizes:     []domain.Size{{Label: "large", Price: 15}},
		Extras:    []domain.Extra{{Name: "cheese", Price: 1.5}},
	}
}

func TestGetItem_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	data, _ := json.Marshal(pizza())
	mr.Set(itemKey("pizza"), string(data))

	item, err := cache.GetItem(context.Background(), "pizza")
	require.NoError(t, err)
	assert.Equal(t, "Margherita", item.Name)
	assert.Equal(t, 15.0, item.Sizes[0].Price)
}

func TestGetItem_CacheMiss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	item, err := cache.GetItem(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, item)
}

func TestGetItem_InvalidJSON(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Set(itemKey("pizza"), "invalid json{")

	item, err := cache.GetItem(context.Background(), "pizza")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, item)
}

func TestSetItem_TTLWithJitter(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, cache.SetItem(context.Background(), pizza()))

	ttl := mr.TTL(itemKey("pizza"))
	assert.GreaterOrEqual(t, ttl, 10*time.Minute)
	assert.Less(t, ttl, 15*time.Minute)
}

func TestMenu_RoundTripPerCategory(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, cache.SetMenu(ctx, "", []domain.MenuItem{*pizza()}))
	require.NoError(t, cache.SetMenu(ctx, "drinks", []domain.MenuItem{}))

	assert.True(t, mr.Exists(listKey("")))
	assert.True(t, mr.Exists("menu:list:drinks"))

	all, err := cache.GetMenu(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	drinks, err := cache.GetMenu(ctx, "drinks")
	require.NoError(t, err)
	assert.Empty(t, drinks)

	_, err = cache.GetMenu(ctx, "desserts")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestInvalidate_DropsItemsAndListings(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, cache.SetItem(ctx, pizza()))
	require.NoError(t, cache.SetMenu(ctx, "", []domain.MenuItem{*pizza()}))
	require.NoError(t, cache.SetMenu(ctx, "mains", []domain.MenuItem{*pizza()}))
	mr.Set("cart:user1", "{}")

	require.NoError(t, cache.Invalidate(ctx, "pizza"))

	assert.False(t, mr.Exists(itemKey("pizza")))
	assert.False(t, mr.Exists(listKey("")))
	assert.False(t, mr.Exists(listKey("mains")))
	assert.True(t, mr.Exists("cart:user1"), "unrelated keys survive")
}

func TestInvalidate_NothingCached(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	assert.NoError(t, cache.Invalidate(context.Background()))
}

func TestRedisConnectionFailure(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Close()

	_, err := cache.GetItem(context.Background(), "pizza")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
