package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"handrating-backend/internal/models"
)

type firestorePaymentRepository struct {
	client *firestore.Client
}

// NewFirestorePaymentRepository creates a PaymentRepository backed by Firestore.
func NewFirestorePaymentRepository(client *firestore.Client) PaymentRepository {
	return &firestorePaymentRepository{client: client}
}

// GetBySessionID returns the audit record of a credited checkout session.
func (r *firestorePaymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.PaymentRecord, error) {
	snap, err := r.client.Collection(paymentsCollection).Doc(sessionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("payment '%s' not found: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment '%s': %w", sessionID, err)
	}
	var rec models.PaymentRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode payment '%s': %w", sessionID, err)
	}
	return &rec, nil
}
