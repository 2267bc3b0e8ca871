package models

import "time"

// Critique is a single AI assessment of an uploaded hand photo.
// Stored under users/{uid}/critiques and never updated after creation.
type Critique struct {
	ID           string    `json:"id" firestore:"-"`
	UserID       string    `json:"userId" firestore:"userId"`
	ImageURL     string    `json:"imageUrl" firestore:"imageUrl"` // inline base64 data URL
	Score        int       `json:"score" firestore:"score"`
	Critique     string    `json:"critique" firestore:"critique"`
	Strengths    []string  `json:"strengths" firestore:"strengths"`
	Improvements []string  `json:"improvements" firestore:"improvements"`
	Verdict      string    `json:"verdict" firestore:"verdict"`
	Language     string    `json:"language" firestore:"language"`
	Fallback     bool      `json:"fallback,omitempty" firestore:"fallback"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
}
