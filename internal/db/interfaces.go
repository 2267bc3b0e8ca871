package db

import (
	"context"

	"handrating-backend/internal/models"
)

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, userID string, fields map[string]interface{}) error
	// ConsumeCredit atomically takes one upload credit and returns the remaining balance.
	ConsumeCredit(ctx context.Context, userID string) (int, error)
	RefundCredit(ctx context.Context, userID string) error
	// ApplyPaymentGrant credits a checkout session exactly once and writes its audit record.
	ApplyPaymentGrant(ctx context.Context, grant models.PaymentGrant) (*models.GrantResult, error)
}

// CritiqueRepository stores critiques under users/{uid}/critiques.
type CritiqueRepository interface {
	Create(ctx context.Context, userID string, critique *models.Critique) (string, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Critique, error)
	GetByID(ctx context.Context, userID, critiqueID string) (*models.Critique, error)
}

// PaymentRepository reads the payments/{sessionId} audit trail.
type PaymentRepository interface {
	GetBySessionID(ctx context.Context, sessionID string) (*models.PaymentRecord, error)
}
