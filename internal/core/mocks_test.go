package core

import (
	"context"
	"errors"
	"sync"

	"github.com/stripe/stripe-go/v82"

	"handrating-backend/internal/db"
	"handrating-backend/internal/events"
	"handrating-backend/internal/mailer"
	"handrating-backend/internal/models"
)

// memUserRepo is an in-memory db.UserRepository with the same
// exactly-once grant rule as the Firestore implementation.
type memUserRepo struct {
	mu       sync.Mutex
	users    map[string]*models.User
	payments map[string]models.PaymentRecord

	grantErr   error
	consumed   int
	refunded   int
	updateLogs []map[string]interface{}
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	r := &memUserRepo{users: map[string]*models.User{}, payments: map[string]models.PaymentRecord{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) GetByID(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return errors.New("already exists")
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) UpdateFields(_ context.Context, userID string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	r.updateLogs = append(r.updateLogs, fields)
	for k, v := range fields {
		switch k {
		case "language":
			u.Language = v.(string)
		case "onboardingCompleted":
			u.OnboardingCompleted = v.(bool)
		case "onboardingData":
			d := v.(models.OnboardingData)
			u.OnboardingData = &d
		}
	}
	return nil
}

func (r *memUserRepo) ConsumeCredit(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return 0, db.ErrNotFound
	}
	if u.UploadsRemaining <= 0 {
		return 0, db.ErrInsufficientCredits
	}
	u.UploadsRemaining--
	u.TotalUploads++
	r.consumed++
	return u.UploadsRemaining, nil
}

func (r *memUserRepo) RefundCredit(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.UploadsRemaining++
	u.TotalUploads--
	r.refunded++
	return nil
}

func (r *memUserRepo) ApplyPaymentGrant(_ context.Context, g models.PaymentGrant) (*models.GrantResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grantErr != nil {
		return nil, r.grantErr
	}
	u, ok := r.users[g.UserID]
	if !ok {
		return nil, db.ErrNotFound
	}
	_, recorded := r.payments[g.SessionID]
	if recorded || u.LastPaymentSessionID == g.SessionID {
		return &models.GrantResult{Duplicate: true, PreviousCredits: u.UploadsRemaining, UploadsRemaining: u.UploadsRemaining}, nil
	}
	prev := u.UploadsRemaining
	u.UploadsRemaining += g.Credits
	u.LastPaymentSessionID = g.SessionID
	u.TotalPayments++
	paid := g.PaidAt
	u.LastPaymentDate = &paid
	r.payments[g.SessionID] = models.PaymentRecord{
		SessionID: g.SessionID, UserID: g.UserID, AmountTotal: g.AmountTotal,
		Currency: g.Currency, CreditsAdded: g.Credits, Status: g.Status, CreatedAt: paid,
	}
	return &models.GrantResult{PreviousCredits: prev, UploadsRemaining: u.UploadsRemaining}, nil
}

func (r *memUserRepo) user(id string) models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.users[id]
}

// MockCritiqueRepository implements db.CritiqueRepository for testing.
type MockCritiqueRepository struct {
	CreateFunc     func(ctx context.Context, userID string, c *models.Critique) (string, error)
	ListByUserFunc func(ctx context.Context, userID string, limit int) ([]*models.Critique, error)
	GetByIDFunc    func(ctx context.Context, userID, critiqueID string) (*models.Critique, error)
}

func (m *MockCritiqueRepository) Create(ctx context.Context, userID string, c *models.Critique) (string, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, c)
	}
	c.ID = "crit_1"
	return c.ID, nil
}

func (m *MockCritiqueRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Critique, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit)
	}
	return []*models.Critique{}, nil
}

func (m *MockCritiqueRepository) GetByID(ctx context.Context, userID, critiqueID string) (*models.Critique, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, userID, critiqueID)
	}
	return nil, db.ErrNotFound
}

// MockVisionClient implements providers.VisionClient for testing.
type MockVisionClient struct {
	AnalyzeFunc func(ctx context.Context, prompt string, image []byte, mime string) (string, error)
	calls       int
}

func (m *MockVisionClient) Name() string { return "mock" }

func (m *MockVisionClient) Analyze(ctx context.Context, prompt string, image []byte, mime string) (string, error) {
	m.calls++
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, prompt, image, mime)
	}
	return `{"score": 75, "critique": "Nice hands."}`, nil
}

// MockCheckout implements CheckoutSessionCreator for testing.
type MockCheckout struct {
	CreateFunc func(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
	last       *stripe.CheckoutSessionCreateParams
}

func (m *MockCheckout) Create(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	m.last = params
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return &stripe.CheckoutSession{ID: "cs_test_new"}, nil
}

// recordingMailer captures sent messages.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu   sync.Mutex
	sent []events.Event
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.sent...)
}
