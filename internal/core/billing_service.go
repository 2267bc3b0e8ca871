package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"handrating-backend/internal/db"
	"handrating-backend/internal/events"
	"handrating-backend/internal/mailer"
	"handrating-backend/internal/models"
)

// Checkout session metadata keys.
const (
	MetadataUserID        = "user_id"
	MetadataCreditsAmount = "credits_amount"
)

const receiptTimeout = 10 * time.Second

// BillingConfig holds the credit pack and URLs used for checkout.
type BillingConfig struct {
	WebhookSecret  string
	BaseURL        string
	PackCredits    int
	PackPriceCents int64
	Currency       string
	ProductName    string
}

// WebhookResult summarizes what a webhook delivery did.
type WebhookResult struct {
	EventID          string `json:"eventId,omitempty"`
	EventType        string `json:"eventType,omitempty"`
	SessionID        string `json:"sessionId,omitempty"`
	UserID           string `json:"userId,omitempty"`
	CreditsAdded     int    `json:"creditsAdded"`
	UploadsRemaining int    `json:"uploadsRemaining,omitempty"`
	Duplicate        bool   `json:"duplicate"`
	Ignored          bool   `json:"ignored"`
}

type billingService struct {
	userRepo db.UserRepository
	checkout CheckoutSessionCreator
	mail     mailer.Mailer
	events   events.Publisher
	cfg      BillingConfig
	log      *zap.Logger
}

// NewBillingService creates a BillingService. mail and pub may be nil to disable
// receipts and events.
func NewBillingService(userRepo db.UserRepository, checkout CheckoutSessionCreator, mail mailer.Mailer, pub events.Publisher, cfg BillingConfig, log *zap.Logger) BillingService {
	if cfg.ProductName == "" {
		cfg.ProductName = "Hand Rating Credits"
	}
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}
	return &billingService{userRepo: userRepo, checkout: checkout, mail: mail, events: pub, cfg: cfg, log: log}
}

// CreateCheckoutSession creates a one-off payment session for the credit pack
// and returns its ID. The user id and credit amount travel in the metadata.
func (s *billingService) CreateCheckoutSession(ctx context.Context, userID, email string, req models.CreateCheckoutSessionRequest) (string, error) {
	successURL := req.SuccessURL
	if successURL == "" {
		successURL = s.cfg.BaseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = s.cfg.BaseURL + "/offer"
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency: stripe.String(s.cfg.Currency),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name:        stripe.String(s.cfg.ProductName),
						Description: stripe.String(fmt.Sprintf("%d hand critiques", s.cfg.PackCredits)),
					},
					UnitAmount: stripe.Int64(s.cfg.PackPriceCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(userID),
		Metadata: map[string]string{
			MetadataUserID:        userID,
			MetadataCreditsAmount: strconv.Itoa(s.cfg.PackCredits),
		},
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}

	cs, err := s.checkout.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStripeClient, err)
	}
	s.log.Info("checkout session created", zap.String("user_id", userID), zap.String("session_id", cs.ID))
	return cs.ID, nil
}

// HandleStripeWebhook verifies the signature over the raw payload and dispatches
// the event. Events other than checkout.session.completed are acknowledged only.
func (s *billingService) HandleStripeWebhook(ctx context.Context, signature string, payload []byte) (*WebhookResult, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		s.log.Info("stripe event ignored", zap.String("event_id", event.ID), zap.String("type", string(event.Type)))
		return &WebhookResult{EventID: event.ID, EventType: string(event.Type), Ignored: true}, nil
	}
	if event.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrWebhookPayload, event.ID)
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookPayload, err)
	}
	res, err := s.ProcessCheckoutCompleted(ctx, &cs)
	if err != nil {
		return nil, err
	}
	res.EventID = event.ID
	res.EventType = string(event.Type)
	return res, nil
}

// ProcessCheckoutCompleted credits the user of a completed checkout exactly once.
func (s *billingService) ProcessCheckoutCompleted(ctx context.Context, cs *stripe.CheckoutSession) (*WebhookResult, error) {
	if cs == nil || cs.ID == "" {
		return nil, fmt.Errorf("%w: checkout session has no id", ErrWebhookPayload)
	}
	log := s.log.With(zap.String("session_id", cs.ID))

	userID := strings.TrimSpace(cs.Metadata[MetadataUserID])
	if userID == "" {
		userID = strings.TrimSpace(cs.ClientReferenceID)
	}
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if cs.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, fmt.Errorf("%w: payment_status=%q", ErrPaymentNotPaid, cs.PaymentStatus)
	}
	credits, err := s.creditsFromMetadata(cs.Metadata)
	if err != nil {
		return nil, err
	}

	grant := models.PaymentGrant{
		SessionID:   cs.ID,
		UserID:      userID,
		Credits:     credits,
		AmountTotal: cs.AmountTotal,
		Currency:    string(cs.Currency),
		Status:      string(cs.PaymentStatus),
		PaidAt:      time.Now().UTC(),
	}
	gr, err := s.userRepo.ApplyPaymentGrant(ctx, grant)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		case errors.Is(err, db.ErrInvalidGrant):
			return nil, fmt.Errorf("%w: %v", ErrWebhookPayload, err)
		}
		log.Error("credit grant failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCreditGrant, err)
	}

	res := &WebhookResult{
		SessionID:        cs.ID,
		UserID:           userID,
		UploadsRemaining: gr.UploadsRemaining,
		Duplicate:        gr.Duplicate,
	}
	if gr.Duplicate {
		log.Info("checkout session already credited", zap.String("user_id", userID))
		return res, nil
	}
	res.CreditsAdded = credits
	log.Info("credits granted",
		zap.String("user_id", userID),
		zap.Int("credits", credits),
		zap.Int("previous", gr.PreviousCredits),
		zap.Int("uploads_remaining", gr.UploadsRemaining))

	s.sendReceipt(ctx, cs, grant, gr.UploadsRemaining)
	publish(ctx, s.events, s.log, events.NewEvent(events.TypePaymentCredited, PaymentCreditedEvent{
		SessionID:        grant.SessionID,
		UserID:           grant.UserID,
		Credits:          grant.Credits,
		AmountTotal:      grant.AmountTotal,
		Currency:         grant.Currency,
		UploadsRemaining: gr.UploadsRemaining,
	}))
	return res, nil
}

// creditsFromMetadata parses credits_amount. A missing value means one pack.
func (s *billingService) creditsFromMetadata(md map[string]string) (int, error) {
	raw, ok := md[MetadataCreditsAmount]
	if !ok || strings.TrimSpace(raw) == "" {
		return s.cfg.PackCredits, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: credits_amount=%q", ErrWebhookPayload, raw)
	}
	return n, nil
}

// sendReceipt emails the buyer. Failures are logged and never fail the webhook.
func (s *billingService) sendReceipt(ctx context.Context, cs *stripe.CheckoutSession, grant models.PaymentGrant, remaining int) {
	if s.mail == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), receiptTimeout)
	defer cancel()

	to, lang := "", models.LanguageEnglish
	if user, err := s.userRepo.GetByID(ctx, grant.UserID); err == nil {
		to, lang = user.Email, user.Language
	}
	if to == "" && cs.CustomerDetails != nil {
		to = cs.CustomerDetails.Email
	}
	if to == "" {
		to = cs.CustomerEmail
	}
	if to == "" {
		s.log.Warn("no email for receipt", zap.String("session_id", grant.SessionID))
		return
	}

	msg, err := mailer.PaymentReceipt(mailer.Receipt{
		To:               to,
		Language:         lang,
		Credits:          grant.Credits,
		UploadsRemaining: remaining,
		AmountTotal:      grant.AmountTotal,
		Currency:         grant.Currency,
		SessionID:        grant.SessionID,
	})
	if err == nil {
		err = s.mail.Send(ctx, msg)
	}
	if err != nil {
		s.log.Warn("payment receipt not sent", zap.String("session_id", grant.SessionID), zap.Error(err))
	}
}
