package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"handrating-backend/internal/api"
	"handrating-backend/internal/cache"
	"handrating-backend/internal/config"
	"handrating-backend/internal/core"
	"handrating-backend/internal/critique"
	"handrating-backend/internal/db"
	"handrating-backend/internal/events"
	"handrating-backend/internal/logger"
	"handrating-backend/internal/mailer"
	"handrating-backend/internal/middleware"
	"handrating-backend/internal/providers"
)

func main() {
	// --- 1. Load Application Configuration ---
	// A .env file is optional and ignored in release mode.
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("WARNING: could not read .env file: %v", err)
	}
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	// --- 2. Initialize Logger (Zap) ---
	zapLogger, err := logger.New(appConfig)
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Application configuration loaded successfully.", zap.String("ginMode", appConfig.GinMode))

	// --- 3. Initialize Firebase Admin SDK (Firestore and Auth clients) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	clients, err := db.InitFirestore(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firestore and Firebase Admin SDK", zap.Error(err))
	}
	defer clients.Close()

	// --- 4. Initialize Repositories ---
	userRepo := db.NewFirestoreUserRepository(clients.Firestore)
	critiqueRepo := db.NewFirestoreCritiqueRepository(clients.Firestore)

	// --- 5. Initialize external clients ---
	stripeClient := stripe.NewClient(appConfig.StripeSecretKey)
	mail := mailer.New(appConfig, zapLogger)
	vision := providers.NewGemini(
		appConfig.GeminiAPIKey,
		appConfig.GeminiModel,
		appConfig.GeminiBaseURL,
		appConfig.GeminiRPS,
		appConfig.GeminiBurst,
		appConfig.GeminiMaxRetries,
		appConfig.GeminiDryRun,
		zapLogger,
	)
	verdicts, err := critique.LoadVerdicts()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load verdicts", zap.Error(err))
	}

	var locker cache.Locker
	if appConfig.RedisAddr != "" {
		redisLocker, err := cache.NewRedisLocker(initCtx, cache.NewRedisLockerConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
			Prefix:   "handrating:",
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("CRITICAL_ERROR: Failed to connect to Redis", zap.Error(err))
		}
		defer redisLocker.Close()
		locker = redisLocker
	} else {
		zapLogger.Info("REDIS_ADDR not set, critique locks are process-local")
		locker = cache.NewLocalLocker()
	}

	publisher, err := events.New(appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize event publisher", zap.Error(err))
	}
	defer publisher.Close()

	// --- 6. Initialize Services ---
	userService := core.NewUserService(userRepo)
	billingService := core.NewBillingService(userRepo, stripeClient.V1CheckoutSessions, mail, publisher, core.BillingConfig{
		WebhookSecret:  appConfig.StripeWebhookSecret,
		BaseURL:        appConfig.BaseURL,
		PackCredits:    appConfig.CreditsPackAmount,
		PackPriceCents: appConfig.CreditsPackPriceCents,
		Currency:       appConfig.CreditsPackCurrency,
		ProductName:    fmt.Sprintf("Hand Rating - %d uploads", appConfig.CreditsPackAmount),
	}, zapLogger)
	critiqueService := core.NewCritiqueService(userRepo, critiqueRepo, vision, locker, publisher, verdicts, core.CritiqueConfig{
		MaxImageBytes: appConfig.UploadMaxBytes(),
		ImageMaxWidth: appConfig.ImageMaxWidth,
		LockTTL:       vision.MaxCallDuration() + 30*time.Second,
	}, zapLogger)
	dashboardService := core.NewDashboardService(userService, critiqueService)
	zapLogger.Info("Core services initialized successfully.")

	// --- 7. Setup Gin HTTP Engine ---
	if appConfig.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	// --- 8. Apply Global Middleware (Order is important) ---
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig))

	// --- 9. Setup API Routes ---
	api.SetupRoutes(router, api.Dependencies{
		Config:           appConfig,
		Logger:           zapLogger,
		TokenVerifier:    clients.Auth,
		UserService:      userService,
		BillingService:   billingService,
		CritiqueService:  critiqueService,
		DashboardService: dashboardService,
		FirestorePing: func(ctx context.Context) (*db.PingResult, error) {
			return db.Ping(ctx, clients.Firestore)
		},
	})

	// --- 10. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 11. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	// Critique requests wait on the vision model, so give them time to finish.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting gracefully.")
}
