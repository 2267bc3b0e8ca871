package models

import "time"

// Supported UI / prompt languages.
const (
	LanguageEnglish = "en"
	LanguageSpanish = "es"
	LanguageFrench  = "fr"
)

// User represents a user in the system.
type User struct {
	ID                   string          `json:"id" firestore:"-"` // Firebase Auth UID, will be the document ID
	Email                string          `json:"email" firestore:"email"`
	DisplayName          string          `json:"displayName,omitempty" firestore:"displayName"`
	PhotoURL             string          `json:"photoURL,omitempty" firestore:"photoURL"`
	OnboardingCompleted  bool            `json:"onboardingCompleted" firestore:"onboardingCompleted"`
	OnboardingData       *OnboardingData `json:"onboardingData,omitempty" firestore:"onboardingData"`
	UploadsRemaining     int             `json:"uploadsRemaining" firestore:"uploadsRemaining"`
	TotalUploads         int             `json:"totalUploads" firestore:"totalUploads"`
	TotalPayments        int             `json:"totalPayments" firestore:"totalPayments"`
	LastPaymentSessionID string          `json:"lastPaymentSessionId,omitempty" firestore:"lastPaymentSessionId"`
	LastPaymentDate      *time.Time      `json:"lastPaymentDate,omitempty" firestore:"lastPaymentDate,omitempty"`
	Language             string          `json:"language" firestore:"language"`
	CreatedAt            time.Time       `json:"createdAt" firestore:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt" firestore:"updatedAt"`
}

// OnboardingData holds the answers to the onboarding questionnaire.
type OnboardingData struct {
	DreamInterest string   `json:"dreamInterest" firestore:"dreamInterest"`
	Obstacles     []string `json:"obstacles" firestore:"obstacles"`
	Validation    string   `json:"validation" firestore:"validation"`
	Opportunity   string   `json:"opportunity" firestore:"opportunity"`
	Urgency       string   `json:"urgency" firestore:"urgency"`
}
