package models

// CreateCheckoutSessionRequest is the body of POST /billing/create-checkout-session.
// Both URLs are optional; server defaults derived from BASE_URL are used when empty.
type CreateCheckoutSessionRequest struct {
	SuccessURL string `json:"successUrl,omitempty" binding:"omitempty,url"`
	CancelURL  string `json:"cancelUrl,omitempty" binding:"omitempty,url"`
}

// UpdateLanguageRequest is the body of PUT /users/me/language.
type UpdateLanguageRequest struct {
	Language string `json:"language" binding:"required,oneof=en es fr"`
}

// UpdateOnboardingRequest saves onboarding progress. Completed marks the questionnaire done.
type UpdateOnboardingRequest struct {
	Data      OnboardingData `json:"data"`
	Completed bool           `json:"completed"`
}

// GenerateCritiqueRequest is the JSON form of POST /critiques.
// ImageBase64 may be raw base64 or a full data URL. Language is checked
// case-insensitively by the handler, the same way as the multipart field.
type GenerateCritiqueRequest struct {
	ImageBase64 string `json:"imageBase64" binding:"required"`
	Language    string `json:"language,omitempty"`
}
