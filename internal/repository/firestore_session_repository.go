package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/nachitzaid/food4u/internal/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreSessionRepository keeps carts in the "carts" collection with the
// user id as document id. Configure a Firestore TTL policy on expiresAt so
// abandoned carts are pruned without a login.
type firestoreSessionRepository struct {
	client *firestore.Client
	now    func() time.Time
}

func NewFirestoreSessionRepository(client *firestore.Client) SessionRepository {
	return &firestoreSessionRepository{client: client, now: time.Now}
}

type sessionDoc struct {
	Items     []domain.LineItem `firestore:"items"`
	ExpiresAt time.Time         `firestore:"expiresAt"`
	UpdatedAt time.Time         `firestore:"updatedAt"`
}

func (r *firestoreSessionRepository) col() *firestore.CollectionRef {
	return r.client.Collection("carts")
}

func (r *firestoreSessionRepository) GetSession(ctx context.Context, userID string) (*domain.CartSession, error) {
	id, err := docID(userID)
	if err != nil {
		return nil, err
	}

	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get cart session: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode cart session: %w", err)
	}
	return doc.toDomain(id), nil
}

func (r *firestoreSessionRepository) PutSession(ctx context.Context, userID string, items []domain.LineItem, expiresAt time.Time) error {
	id, err := docID(userID)
	if err != nil {
		return err
	}

	doc := sessionDocFromItems(items, expiresAt, r.now())
	if _, err := r.col().Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to upsert cart session: %w", err)
	}
	return nil
}

func (r *firestoreSessionRepository) DeleteSession(ctx context.Context, userID string) error {
	id, err := docID(userID)
	if err != nil {
		return err
	}

	if _, err := r.col().Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete cart session: %w", err)
	}
	return nil
}

func docID(userID string) (string, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return "", errors.New("firestore session: user id is empty")
	}
	return id, nil
}

// sessionDocFromItems drops lines that can never be restored so the stored
// document stays clean.
func sessionDocFromItems(items []domain.LineItem, expiresAt, now time.Time) sessionDoc {
	kept := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 || strings.TrimSpace(it.MenuItemID) == "" {
			continue
		}
		kept = append(kept, it)
	}
	return sessionDoc{
		Items:     kept,
		ExpiresAt: expiresAt.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (d sessionDoc) toDomain(userID string) *domain.CartSession {
	return &domain.CartSession{
		UserID:    userID,
		Items:     d.Items,
		ExpiresAt: d.ExpiresAt,
		UpdatedAt: d.UpdatedAt,
	}
}
