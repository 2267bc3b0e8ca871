package core

import (
	"context"

	"github.com/stripe/stripe-go/v82"

	"handrating-backend/internal/models"
)

// UserService defines the interface for user-related operations.
type UserService interface {
	// GetOrCreate retrieves a user by ID, creating the profile with zero credits when missing.
	GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	UpdateLanguage(ctx context.Context, userID, language string) (*models.User, error)
	SaveOnboarding(ctx context.Context, userID string, req models.UpdateOnboardingRequest) (*models.User, error)
	GetCredits(ctx context.Context, userID string) (int, error)
}

// BillingService handles checkout creation and the Stripe webhook.
type BillingService interface {
	CreateCheckoutSession(ctx context.Context, userID, email string, req models.CreateCheckoutSessionRequest) (string, error)
	HandleStripeWebhook(ctx context.Context, signature string, payload []byte) (*WebhookResult, error)
	ProcessCheckoutCompleted(ctx context.Context, cs *stripe.CheckoutSession) (*WebhookResult, error)
}

// CritiqueService generates and reads hand critiques.
type CritiqueService interface {
	Generate(ctx context.Context, userID string, image []byte, language string) (*models.Critique, error)
	List(ctx context.Context, userID string, limit int) ([]*models.Critique, error)
	Get(ctx context.Context, userID, critiqueID string) (*models.Critique, error)
}

// DashboardService aggregates what the dashboard page shows.
type DashboardService interface {
	Load(ctx context.Context, userID string) (*Dashboard, error)
}

// CheckoutSessionCreator is the part of the Stripe client used to start a checkout.
// *stripe.Client's V1CheckoutSessions satisfies it.
type CheckoutSessionCreator interface {
	Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}
