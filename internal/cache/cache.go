package cache

import (
	"context"
	"errors"

	"github.com/nachitzaid/food4u/internal/domain"
)

// MenuCache caches the public menu listing (per category) and single menu
// items.
type MenuCache interface {
	GetMenu(ctx context.Context, category string) ([]domain.MenuItem, error)
	SetMenu(ctx context.Context, category string, items []domain.MenuItem) error
	GetItem(ctx context.Context, id string) (*domain.MenuItem, error)
	SetItem(ctx context.Context, item *domain.MenuItem) error
	// Invalidate drops the given items and every cached listing.
	Invalidate(ctx context.Context, ids ...string) error
}

var ErrCacheMiss = errors.New("cache miss")
