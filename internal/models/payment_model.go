package models

import "time"

// PaymentRecord is the audit trail entry written for every credited checkout session.
type PaymentRecord struct {
	SessionID    string    `json:"sessionId" firestore:"sessionId"`
	UserID       string    `json:"userId" firestore:"userId"`
	AmountTotal  int64     `json:"amountTotal" firestore:"amountTotal"`
	Currency     string    `json:"currency" firestore:"currency"`
	CreditsAdded int       `json:"creditsAdded" firestore:"creditsAdded"`
	Status       string    `json:"status" firestore:"status"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
}

// PaymentGrant describes credits to apply to a user for one checkout session.
type PaymentGrant struct {
	SessionID   string
	UserID      string
	Credits     int
	AmountTotal int64
	Currency    string
	Status      string
	PaidAt      time.Time
}

// GrantResult reports what ApplyPaymentGrant did.
type GrantResult struct {
	Duplicate        bool `json:"duplicate"`
	PreviousCredits  int  `json:"previousCredits"`
	UploadsRemaining int  `json:"uploadsRemaining"`
}
