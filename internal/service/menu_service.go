package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nachitzaid/food4u/internal/cache"
	"github.com/nachitzaid/food4u/internal/domain"
	"github.com/nachitzaid/food4u/internal/repository"
	"github.com/nachitzaid/food4u/internal/storage"
	"github.com/nachitzaid/food4u/pkg/logger"
	"golang.org/x/sync/singleflight"
)

// ImageStore keeps uploaded menu images and returns a public reference.
type ImageStore interface {
	Put(ctx context.Context, objectName, contentType string, body []byte) (string, error)
}

type MenuService struct {
	repo   repository.MenuRepository
	cache  cache.MenuCache
	images ImageStore
	log    *logger.Logger
	now    func() time.Time
	sfg    singleflight.Group // Prevents cache stampede
}

func NewMenuService(repo repository.MenuRepository, cache cache.MenuCache, images ImageStore, log *logger.Logger) *MenuService {
	if log == nil {
		log = logger.Nop()
	}
	return &MenuService{
		repo:   repo,
		cache:  cache,
		images: images,
		log:    log,
		now:    time.Now,
	}
}

// ListMenu returns the available dishes, optionally of one category.
func (s *MenuService) ListMenu(ctx context.Context, category string) ([]domain.MenuItem, error) {
	v, err, _ := s.sfg.Do("list:"+category, func() (interface{}, error) {
		items, err := s.cache.GetMenu(ctx, category)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn(ctx, "menu cache get failed", err)
		}

		items, err = s.repo.ListMenuItems(ctx, repository.MenuFilter{Category: category, AvailableOnly: true})
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.SetMenu(context.Background(), category, items); err != nil {
				s.log.Warn(context.Background(), "menu cache set failed", err)
			}
		}()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.MenuItem), nil
}

func (s *MenuService) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	v, err, _ := s.sfg.Do("item:"+id, func() (interface{}, error) {
		item, err := s.cache.GetItem(ctx, id)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn(ctx, "menu cache get failed", err)
		}

		item, err = s.repo.GetMenuItem(ctx, id)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.SetItem(context.Background(), item); err != nil {
				s.log.Warn(context.Background(), "menu cache set failed", err)
			}
		}()
		return item, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.MenuItem), nil
}

func (s *MenuService) CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	now := s.now()
	item.ID = uuid.NewString()
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := s.repo.CreateMenuItem(ctx, &item); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &item, nil
}

// UpdateMenuItem replaces a dish. The image reference and creation time are
// kept when the update does not carry them.
func (s *MenuService) UpdateMenuItem(ctx context.Context, id string, item domain.MenuItem) (*domain.MenuItem, error) {
	current, err := s.repo.GetMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}

	item.ID = id
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = s.now()
	if item.ImageRef == "" {
		item.ImageRef = current.ImageRef
	}

	if err := s.repo.UpdateMenuItem(ctx, &item); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return &item, nil
}

func (s *MenuService) DeleteMenuItem(ctx context.Context, id string) error {
	if err := s.repo.DeleteMenuItem(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// UploadMenuImage stores body as the dish's image and points the dish at it.
func (s *MenuService) UploadMenuImage(ctx context.Context, id, contentType string, body []byte) (*domain.MenuItem, error) {
	if s.images == nil {
		return nil, ErrUploadsDisabled
	}
	item, err := s.repo.GetMenuItem(ctx, id)
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("menu/%s/%s", id, uuid.NewString())
	ref, err := s.images.Put(ctx, objectName, contentType, body)
	if errors.Is(err, storage.ErrNotImage) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store menu image: %w", err)
	}

	item.ImageRef = ref
	item.UpdatedAt = s.now()
	if err := s.repo.UpdateMenuItem(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return item, nil
}

// ListDeals returns every deal, or only those live right now.
func (s *MenuService) ListDeals(ctx context.Context, activeOnly bool) ([]domain.Deal, error) {
	deals, err := s.repo.ListDeals(ctx)
	if err != nil {
		return nil, err
	}
	if !activeOnly {
		return deals, nil
	}

	now := s.now()
	live := make([]domain.Deal, 0, len(deals))
	for _, d := range deals {
		if d.Live(now) {
			live = append(live, d)
		}
	}
	return live, nil
}

func (s *MenuService) CreateDeal(ctx context.Context, deal domain.Deal) (*domain.Deal, error) {
	if err := validateDealWindow(deal); err != nil {
		return nil, err
	}
	now := s.now()
	deal.ID = uuid.NewString()
	deal.CreatedAt = now
	deal.UpdatedAt = now

	if err := s.repo.CreateDeal(ctx, &deal); err != nil {
		return nil, err
	}
	return &deal, nil
}

func (s *MenuService) UpdateDeal(ctx context.Context, id string, deal domain.Deal) (*domain.Deal, error) {
	if err := validateDealWindow(deal); err != nil {
		return nil, err
	}
	current, err := s.repo.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}

	deal.ID = id
	deal.CreatedAt = current.CreatedAt
	deal.UpdatedAt = s.now()
	if err := s.repo.UpdateDeal(ctx, &deal); err != nil {
		return nil, err
	}
	return &deal, nil
}

func (s *MenuService) DeleteDeal(ctx context.Context, id string) error {
	return s.repo.DeleteDeal(ctx, id)
}

func validateDealWindow(d domain.Deal) error {
	if !d.StartsAt.IsZero() && !d.EndsAt.IsZero() && !d.EndsAt.After(d.StartsAt) {
		return fmt.Errorf("%w: endsAt must be after startsAt", ErrInvalidDeal)
	}
	return nil
}

func (s *MenuService) invalidate(ctx context.Context, ids ...string) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		s.log.Warn(ctx, "menu cache invalidate failed", err)
	}
}
