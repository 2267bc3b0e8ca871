package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"handrating-backend/internal/config"
	"handrating-backend/internal/db"
)

// FirestorePinger round-trips a test document. db.Ping bound to a client satisfies it.
type FirestorePinger func(ctx context.Context) (*db.PingResult, error)

// DebugHandler serves the development-only /debug endpoints.
type DebugHandler struct {
	cfg     *config.Config
	billing *BillingHandler
	ping    FirestorePinger
	log     *zap.Logger
}

// NewDebugHandler creates a new DebugHandler.
func NewDebugHandler(cfg *config.Config, billing *BillingHandler, ping FirestorePinger, log *zap.Logger) *DebugHandler {
	return &DebugHandler{cfg: cfg, billing: billing, ping: ping, log: log}
}

// EnvCheck handles GET /debug/env-check.
func (h *DebugHandler) EnvCheck(c *gin.Context) {
	mail := "log"
	switch {
	case h.cfg.ResendAPIKey != "":
		mail = "resend"
	case h.cfg.SMTPHost != "":
		mail = "smtp"
	}
	c.JSON(http.StatusOK, EnvCheckResponse{
		GinMode:             h.cfg.GinMode,
		FirebaseProjectID:   h.cfg.FirebaseProjectID,
		FirebaseCredentials: h.cfg.GoogleApplicationCredentials != "" || h.cfg.FirebaseServiceAccountJSONBase64 != "",
		StripeSecretKey:     h.cfg.StripeSecretKey != "",
		StripeWebhookSecret: h.cfg.StripeWebhookSecret != "",
		GeminiAPIKey:        h.cfg.GeminiAPIKey != "",
		GeminiDryRun:        h.cfg.GeminiDryRun,
		Redis:               h.cfg.RedisAddr != "",
		AMQP:                h.cfg.AMQPURL != "",
		Mail:                mail,
	})
}

// FirestorePing handles GET /debug/firestore.
func (h *DebugHandler) FirestorePing(c *gin.Context) {
	if h.ping == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Firestore is not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	res, err := h.ping(ctx)
	if err != nil {
		h.log.Error("firestore ping failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Firestore ping failed", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Firestore connection OK", Data: res})
}

// SimulateWebhook handles POST /debug/simulate-webhook. The body is an unsigned
// checkout.session.completed event, run through the same grant path as a real one.
func (h *DebugHandler) SimulateWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read payload", Details: err.Error()})
		return
	}
	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid event JSON", Details: err.Error()})
		return
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted || event.Data == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Only checkout.session.completed events can be simulated"})
		return
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid checkout session", Details: err.Error()})
		return
	}

	h.log.Warn("simulating stripe webhook", zap.String("event_id", event.ID), zap.String("session_id", cs.ID))
	res, err := h.billing.billingService.ProcessCheckoutCompleted(c.Request.Context(), &cs)
	if err != nil {
		h.billing.mapBillingErrorToStatus(c, err)
		return
	}
	res.EventID = event.ID
	res.EventType = string(event.Type)
	c.JSON(http.StatusOK, SuccessResponse{Message: "Simulated webhook processed", Data: res})
}
