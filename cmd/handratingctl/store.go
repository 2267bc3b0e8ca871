package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"handrating-backend/internal/config"
	"handrating-backend/internal/core"
	"handrating-backend/internal/db"
	"handrating-backend/internal/events"
	"handrating-backend/internal/logger"
	"handrating-backend/internal/mailer"
)

// withStore loads the server configuration and opens Firestore for fn.
func withStore(ctx context.Context, fn func(*config.Config, *zap.Logger, *db.Clients) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	clients, err := db.InitFirestore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer clients.Close()
	return fn(cfg, log, clients)
}

func paymentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payment [sessionId]",
		Short: "Print the audit record of a checkout session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			return withStore(ctx, func(_ *config.Config, _ *zap.Logger, clients *db.Clients) error {
				rec, err := db.NewFirestorePaymentRepository(clients.Firestore).GetBySessionID(ctx, args[0])
				if errors.Is(err, db.ErrNotFound) {
					return fmt.Errorf("no payment recorded for session %s", args[0])
				}
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			})
		},
	}
}

// manualSession builds a paid checkout session for a grant made by an operator.
func manualSession(userID string, credits int) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:                "manual_" + uuid.New().String(),
		ClientReferenceID: userID,
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: map[string]string{
			core.MetadataUserID:        userID,
			core.MetadataCreditsAmount: strconv.Itoa(credits),
		},
	}
}

func grantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant [uid] [credits]",
		Short: "Add credits to a user through the payment grant path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			credits, err := strconv.Atoi(args[1])
			if err != nil || credits < 1 {
				return fmt.Errorf("credits must be a positive integer, got %q", args[1])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			return withStore(ctx, func(cfg *config.Config, log *zap.Logger, clients *db.Clients) error {
				pub, err := events.New(cfg, log)
				if err != nil {
					return err
				}
				defer pub.Close()

				billing := core.NewBillingService(
					db.NewFirestoreUserRepository(clients.Firestore),
					stripe.NewClient(cfg.StripeSecretKey).V1CheckoutSessions,
					mailer.New(cfg, log),
					pub,
					core.BillingConfig{
						WebhookSecret: cfg.StripeWebhookSecret,
						BaseURL:       cfg.BaseURL,
						PackCredits:   cfg.CreditsPackAmount,
						Currency:      cfg.CreditsPackCurrency,
					},
					log,
				)
				res, err := billing.ProcessCheckoutCompleted(ctx, manualSession(args[0], credits))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "granted %d credits to %s (session %s), uploads remaining: %d\n",
					res.CreditsAdded, res.UserID, res.SessionID, res.UploadsRemaining)
				return nil
			})
		},
	}
}
