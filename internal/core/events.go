package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"handrating-backend/internal/events"
)

const publishTimeout = 5 * time.Second

// PaymentCreditedEvent is published after credits were granted for a checkout session.
type PaymentCreditedEvent struct {
	SessionID        string `json:"sessionId"`
	UserID           string `json:"userId"`
	Credits          int    `json:"credits"`
	AmountTotal      int64  `json:"amountTotal"`
	Currency         string `json:"currency"`
	UploadsRemaining int    `json:"uploadsRemaining"`
}

// CritiqueCreatedEvent is published after a critique was saved.
type CritiqueCreatedEvent struct {
	CritiqueID string `json:"critiqueId"`
	UserID     string `json:"userId"`
	Score      int    `json:"score"`
	Language   string `json:"language"`
	Fallback   bool   `json:"fallback"`
}

// publish delivers e on a detached context. Failures are logged only.
func publish(ctx context.Context, pub events.Publisher, log *zap.Logger, e events.Event) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := pub.Publish(ctx, e); err != nil {
		log.Warn("event not published", zap.String("type", e.Type), zap.String("event_id", e.ID), zap.Error(err))
	}
}
