package core

import "errors"

// User errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidLanguage = errors.New("unsupported language")
)

// Billing errors.
var (
	ErrStripeClient     = errors.New("stripe client operation failed")
	ErrWebhookSignature = errors.New("stripe webhook signature verification failed")
	ErrWebhookPayload   = errors.New("stripe webhook payload is invalid")
	ErrMissingUserID    = errors.New("checkout session has no user id")
	ErrPaymentNotPaid   = errors.New("checkout session is not paid")
	ErrCreditGrant      = errors.New("failed to apply credit grant")
)

// Critique errors.
var (
	ErrNoCredits          = errors.New("no uploads remaining")
	ErrInvalidImage       = errors.New("invalid image")
	ErrImageTooLarge      = errors.New("image too large")
	ErrCritiqueInProgress = errors.New("a critique is already being generated for this user")
	ErrCritiqueProvider   = errors.New("critique provider failed")
	ErrCritiqueNotFound   = errors.New("critique not found")
)
