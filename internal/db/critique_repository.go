package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"handrating-backend/internal/models"
)

const (
	critiquesSubcollection = "critiques"
	defaultCritiqueLimit   = 20
	maxCritiqueLimit       = 100
)

type firestoreCritiqueRepository struct {
	client *firestore.Client
}

// NewFirestoreCritiqueRepository creates a CritiqueRepository backed by Firestore.
func NewFirestoreCritiqueRepository(client *firestore.Client) CritiqueRepository {
	return &firestoreCritiqueRepository{client: client}
}

func (r *firestoreCritiqueRepository) collection(userID string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(userID).Collection(critiquesSubcollection)
}

// Create stores a critique under a generated ID and returns the ID.
func (r *firestoreCritiqueRepository) Create(ctx context.Context, userID string, critique *models.Critique) (string, error) {
	if userID == "" {
		return "", errors.New("userID cannot be empty for critique Create")
	}
	ref := r.collection(userID).NewDoc()
	if _, err := ref.Create(ctx, critique); err != nil {
		return "", fmt.Errorf("failed to save critique for user '%s': %w", userID, err)
	}
	critique.ID = ref.ID
	return ref.ID, nil
}

// ListByUser returns the user's critiques, newest first.
func (r *firestoreCritiqueRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Critique, error) {
	iter := r.collection(userID).
		OrderBy("createdAt", firestore.Desc).
		Limit(ClampLimit(limit)).
		Documents(ctx)
	defer iter.Stop()

	critiques := make([]*models.Critique, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list critiques for user '%s': %w", userID, err)
		}
		var c models.Critique
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("failed to decode critique '%s': %w", doc.Ref.ID, err)
		}
		c.ID = doc.Ref.ID
		critiques = append(critiques, &c)
	}
	return critiques, nil
}

// GetByID returns a single critique of the user.
func (r *firestoreCritiqueRepository) GetByID(ctx context.Context, userID, critiqueID string) (*models.Critique, error) {
	snap, err := r.collection(userID).Doc(critiqueID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("critique '%s' not found: %w", critiqueID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get critique '%s': %w", critiqueID, err)
	}
	var c models.Critique
	if err := snap.DataTo(&c); err != nil {
		return nil, fmt.Errorf("failed to decode critique '%s': %w", critiqueID, err)
	}
	c.ID = snap.Ref.ID
	return &c, nil
}

// ClampLimit bounds a page size to [1, 100], defaulting to 20.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultCritiqueLimit
	case limit > maxCritiqueLimit:
		return maxCritiqueLimit
	default:
		return limit
	}
}
