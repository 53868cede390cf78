package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nachitzaid/food4u/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoSessionRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoSessionRepository(db *mongo.Database) SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionsCollection),
		now:        time.Now,
	}
}

func (m *mongoSessionRepository) GetSession(ctx context.Context, userID string) (*domain.CartSession, error) {
	var session domain.CartSession

	err := m.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get cart session: %w", err)
	}

	return &session, nil
}

func (m *mongoSessionRepository) PutSession(ctx context.Context, userID string, items []domain.LineItem, expiresAt time.Time) error {
	doc := domain.CartSession{
		UserID:    userID,
		Items:     items,
		ExpiresAt: expiresAt,
		UpdatedAt: m.now(),
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := m.collection.ReplaceOne(ctx, bson.M{"_id": userID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert cart session: %w", err)
	}

	return nil
}

func (m *mongoSessionRepository) DeleteSession(ctx context.Context, userID string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("failed to delete cart session: %w", err)
	}
	return nil
}
