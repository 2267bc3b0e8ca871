// Package events publishes domain events for downstream consumers.
// RabbitMQ is used when AMQP_URL is configured; otherwise events are only logged.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"handrating-backend/internal/config"
)

// Event types.
const (
	TypePaymentCredited = "payment.credited"
	TypeCritiqueCreated = "critique.created"
)

// Event is the envelope written to the queue.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// NewEvent stamps data with a fresh id and the current time.
func NewEvent(eventType string, data any) Event {
	return Event{ID: uuid.New().String(), Type: eventType, OccurredAt: time.Now().UTC(), Data: data}
}

func encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// New picks the publisher from configuration.
func New(cfg *config.Config, log *zap.Logger) (Publisher, error) {
	if cfg.AMQPURL == "" {
		log.Info("events: AMQP_URL not set, events will only be logged")
		return &LogPublisher{Log: log}, nil
	}
	return NewRabbitMQPublisher(NewRabbitMQPublisherConfig{URL: cfg.AMQPURL, Queue: cfg.AMQPQueue}, log)
}

// LogPublisher writes events to the logger.
type LogPublisher struct {
	Log *zap.Logger
}

// Publish logs the event at debug level.
func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	body, err := encode(e)
	if err != nil {
		return err
	}
	p.Log.Debug("event", zap.String("type", e.Type), zap.String("event_id", e.ID), zap.ByteString("body", body))
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
