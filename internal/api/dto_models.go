package api

import "handrating-backend/internal/middleware"

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse = middleware.ErrorResponse

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CreateCheckoutSessionResponse returns the ID of the created Stripe Checkout session.
type CreateCheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
}

// CreditsResponse is returned by GET /users/me/credits.
type CreditsResponse struct {
	UploadsRemaining int `json:"uploadsRemaining"`
}

// EnvCheckResponse reports which secrets are configured, never their values.
type EnvCheckResponse struct {
	GinMode             string `json:"ginMode"`
	FirebaseProjectID   string `json:"firebaseProjectId"`
	FirebaseCredentials bool   `json:"firebaseCredentials"`
	StripeSecretKey     bool   `json:"stripeSecretKey"`
	StripeWebhookSecret bool   `json:"stripeWebhookSecret"`
	GeminiAPIKey        bool   `json:"geminiApiKey"`
	GeminiDryRun        bool   `json:"geminiDryRun"`
	Redis               bool   `json:"redis"`
	AMQP                bool   `json:"amqp"`
	Mail                string `json:"mail"`
}
