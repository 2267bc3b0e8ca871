package api

import (
	"context"

	"firebase.google.com/go/v4/auth"
	"github.com/stripe/stripe-go/v82"

	"handrating-backend/internal/core"
	"handrating-backend/internal/models"
)

type MockTokenVerifier struct{}

// VerifyIDToken accepts any token and uses it as the UID.
func (MockTokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	return &auth.Token{UID: idToken, Claims: map[string]interface{}{"email": idToken + "@example.com"}}, nil
}

type MockUserService struct {
	GetOrCreateFunc    func(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error)
	GetByIDFunc        func(ctx context.Context, userID string) (*models.User, error)
	UpdateLanguageFunc func(ctx context.Context, userID, language string) (*models.User, error)
	SaveOnboardingFunc func(ctx context.Context, userID string, req models.UpdateOnboardingRequest) (*models.User, error)
	GetCreditsFunc     func(ctx context.Context, userID string) (int, error)
}

func (m *MockUserService) GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error) {
	return m.GetOrCreateFunc(ctx, userID, email, displayName, photoURL)
}

func (m *MockUserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	return m.GetByIDFunc(ctx, userID)
}

func (m *MockUserService) UpdateLanguage(ctx context.Context, userID, language string) (*models.User, error) {
	return m.UpdateLanguageFunc(ctx, userID, language)
}

func (m *MockUserService) SaveOnboarding(ctx context.Context, userID string, req models.UpdateOnboardingRequest) (*models.User, error) {
	return m.SaveOnboardingFunc(ctx, userID, req)
}

func (m *MockUserService) GetCredits(ctx context.Context, userID string) (int, error) {
	return m.GetCreditsFunc(ctx, userID)
}

type MockBillingService struct {
	CreateCheckoutSessionFunc    func(ctx context.Context, userID, email string, req models.CreateCheckoutSessionRequest) (string, error)
	HandleStripeWebhookFunc      func(ctx context.Context, signature string, payload []byte) (*core.WebhookResult, error)
	ProcessCheckoutCompletedFunc func(ctx context.Context, cs *stripe.CheckoutSession) (*core.WebhookResult, error)
}

func (m *MockBillingService) CreateCheckoutSession(ctx context.Context, userID, email string, req models.CreateCheckoutSessionRequest) (string, error) {
	return m.CreateCheckoutSessionFunc(ctx, userID, email, req)
}

func (m *MockBillingService) HandleStripeWebhook(ctx context.Context, signature string, payload []byte) (*core.WebhookResult, error) {
	return m.HandleStripeWebhookFunc(ctx, signature, payload)
}

func (m *MockBillingService) ProcessCheckoutCompleted(ctx context.Context, cs *stripe.CheckoutSession) (*core.WebhookResult, error) {
	return m.ProcessCheckoutCompletedFunc(ctx, cs)
}

type MockCritiqueService struct {
	GenerateFunc func(ctx context.Context, userID string, image []byte, language string) (*models.Critique, error)
	ListFunc     func(ctx context.Context, userID string, limit int) ([]*models.Critique, error)
	GetFunc      func(ctx context.Context, userID, critiqueID string) (*models.Critique, error)
}

func (m *MockCritiqueService) Generate(ctx context.Context, userID string, image []byte, language string) (*models.Critique, error) {
	return m.GenerateFunc(ctx, userID, image, language)
}

func (m *MockCritiqueService) List(ctx context.Context, userID string, limit int) ([]*models.Critique, error) {
	return m.ListFunc(ctx, userID, limit)
}

func (m *MockCritiqueService) Get(ctx context.Context, userID, critiqueID string) (*models.Critique, error) {
	return m.GetFunc(ctx, userID, critiqueID)
}

type MockDashboardService struct {
	LoadFunc func(ctx context.Context, userID string) (*core.Dashboard, error)
}

func (m *MockDashboardService) Load(ctx context.Context, userID string) (*core.Dashboard, error) {
	return m.LoadFunc(ctx, userID)
}
