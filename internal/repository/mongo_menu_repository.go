package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nachitzaid/food4u/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoMenuRepository struct {
	items *mongo.Collection
	deals *mongo.Collection
}

func NewMongoMenuRepository(db *mongo.Database) MenuRepository {
	return &mongoMenuRepository{
		items: db.Collection(menuCollection),
		deals: db.Collection(dealsCollection),
	}
}

func (m *mongoMenuRepository) ListMenuItems(ctx context.Context, filter MenuFilter) ([]domain.MenuItem, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.AvailableOnly {
		query["available"] = true
	}

	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := m.items.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}

	items := []domain.MenuItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode menu items: %w", err)
	}
	return items, nil
}

func (m *mongoMenuRepository) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := m.items.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMenuItemNotFound
		}
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}
	return &item, nil
}

func (m *mongoMenuRepository) CreateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	if _, err := m.items.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("failed to create menu item: %w", err)
	}
	return nil
}

func (m *mongoMenuRepository) UpdateMenuItem(ctx context.Context, item *domain.MenuItem) error {
	result, err := m.items.ReplaceOne(ctx, bson.M{"_id": item.ID}, item)
	if err != nil {
		return fmt.Errorf("failed to update menu item: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}

func (m *mongoMenuRepository) DeleteMenuItem(ctx context.Context, id string) error {
	result, err := m.items.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrMenuItemNotFound
	}
	return nil
}

func (m *mongoMenuRepository) ListDeals(ctx context.Context) ([]domain.Deal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.deals.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}

	deals := []domain.Deal{}
	if err := cursor.All(ctx, &deals); err != nil {
		return nil, fmt.Errorf("failed to decode deals: %w", err)
	}
	return deals, nil
}

func (m *mongoMenuRepository) GetDeal(ctx context.Context, id string) (*domain.Deal, error) {
	var deal domain.Deal
	err := m.deals.FindOne(ctx, bson.M{"_id": id}).Decode(&deal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDealNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	return &deal, nil
}

func (m *mongoMenuRepository) CreateDeal(ctx context.Context, deal *domain.Deal) error {
	if _, err := m.deals.InsertOne(ctx, deal); err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

func (m *mongoMenuRepository) UpdateDeal(ctx context.Context, deal *domain.Deal) error {
	result, err := m.deals.ReplaceOne(ctx, bson.M{"_id": deal.ID}, deal)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrDealNotFound
	}
	return nil
}

func (m *mongoMenuRepository) DeleteDeal(ctx context.Context, id string) error {
	result, err := m.deals.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrDealNotFound
	}
	return nil
}
