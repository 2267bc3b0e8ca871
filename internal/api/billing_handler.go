package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"handrating-backend/internal/core"
	"handrating-backend/internal/middleware"
	"handrating-backend/internal/models"
)

// maxWebhookBodyBytes matches the largest event body Stripe sends.
const maxWebhookBodyBytes = 65536

// BillingHandler handles billing-related API endpoints.
type BillingHandler struct {
	billingService core.BillingService
	log            *zap.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(bs core.BillingService, log *zap.Logger) *BillingHandler {
	return &BillingHandler{billingService: bs, log: log}
}

// mapBillingErrorToStatus maps errors from core.BillingService to HTTP status codes.
// Anything that is not the caller's fault answers 5xx so Stripe retries the delivery.
func (h *BillingHandler) mapBillingErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrWebhookSignature):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: "Webhook signature verification failed"}
	case errors.Is(err, core.ErrWebhookPayload):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: "Invalid webhook payload", Details: err.Error()}
	case errors.Is(err, core.ErrMissingUserID):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: "Missing user id in checkout session"}
	case errors.Is(err, core.ErrPaymentNotPaid):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: "Payment not completed", Details: err.Error()}
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: "User profile not found"}
	case errors.Is(err, core.ErrStripeClient):
		statusCode = http.StatusServiceUnavailable
		errResponse = ErrorResponse{Error: "Payment provider error", Details: "Could not complete the operation with the payment provider."}
	default:
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}

	fields := []zap.Field{
		zap.String("path", c.FullPath()),
		zap.Int("status_code", statusCode),
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.Error(err),
	}
	if statusCode >= http.StatusInternalServerError {
		h.log.Error("billing request failed", fields...)
	} else {
		h.log.Warn("billing request rejected", fields...)
	}
	c.JSON(statusCode, errResponse)
}

// CreateCheckoutSession handles POST /billing/create-checkout-session.
// The body is optional; both redirect URLs default to BASE_URL pages.
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	var req models.CreateCheckoutSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
			return
		}
	}

	sessionID, err := h.billingService.CreateCheckoutSession(c.Request.Context(), userID, c.GetString(middleware.ContextUserEmail), req)
	if err != nil {
		h.mapBillingErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, CreateCheckoutSessionResponse{SessionID: sessionID})
}

// HandleStripeWebhook handles POST /billing/webhooks/stripe.
// This endpoint is public; Stripe authenticates it with the Stripe-Signature header
// computed over the raw body, so the body must not be parsed before verification.
func (h *BillingHandler) HandleStripeWebhook(c *gin.Context) {
	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		h.log.Warn("stripe webhook without Stripe-Signature header", zap.String("request_id", middleware.GetRequestID(c)))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing Stripe-Signature header"})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Webhook payload too large"})
			return
		}
		h.log.Error("failed to read webhook body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read webhook payload", Details: err.Error()})
		return
	}

	res, err := h.billingService.HandleStripeWebhook(c.Request.Context(), signature, payload)
	if err != nil {
		h.mapBillingErrorToStatus(c, err)
		return
	}

	msg := "Webhook received successfully"
	switch {
	case res.Ignored:
		msg = "Event type ignored"
	case res.Duplicate:
		msg = "Payment already processed"
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: msg, Data: res})
}
